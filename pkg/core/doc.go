// Package core defines the shared language of the LeapCRM system.
//
// This package contains:
//   - Entity list contracts (Column, ViewConfig, EntityQueryRequest/Response)
//   - Typed filters (FilterSpec, Filters) and their operator sets
//   - Picklist wire types (PicklistItem, PicklistPage, PicklistSearchRequest)
//   - Business records (User, Company, Contact, Lead, Deal)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// The API client, the dev server and the CLI all depend on core, not the reverse.
package core
