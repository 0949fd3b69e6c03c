// Package picklist loads and caches lookup lists (industries, company sizes,
// lead statuses, lead temperatures) for selects, filters and cell rendering.
package picklist

import (
	"fmt"
	"sort"
	"sync"
)

// Lookup list entity types, as used in GET /picklists/{type}.
const (
	Industries       = "industries"
	CompanySizes     = "companysizes"
	LeadStatuses     = "leadstatuses"
	LeadTemperatures = "leadtemperatures"
)

var (
	registryMu sync.RWMutex
	// searchNames maps list types to the singular names POST /picklists/search expects.
	searchNames = map[string]string{
		Industries:       "industry",
		CompanySizes:     "companysize",
		LeadStatuses:     "leadstatus",
		LeadTemperatures: "leadtemperature",
	}
)

// Register adds or replaces the search name for a list type.
func Register(entityType, searchName string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	searchNames[entityType] = searchName
}

// SearchName returns the singular search name for a list type.
func SearchName(entityType string) (string, error) {
	registryMu.RLock()
	name, ok := searchNames[entityType]
	registryMu.RUnlock()
	if !ok {
		return "", &UnknownPicklistError{Type: entityType, Available: ListTypes()}
	}
	return name, nil
}

// ListTypes returns all registered list types (sorted).
func ListTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(searchNames))
	for name := range searchNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a list type is known.
func IsRegistered(entityType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := searchNames[entityType]
	return ok
}

// UnknownPicklistError is returned when an unknown list type is requested.
type UnknownPicklistError struct {
	Type      string
	Available []string
}

func (e *UnknownPicklistError) Error() string {
	return fmt.Sprintf("unknown picklist %q\nAvailable picklists: %v", e.Type, e.Available)
}
