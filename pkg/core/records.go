package core

import (
	"fmt"
	"strings"
	"time"
)

// User is an authenticated CRM user.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName returns "First Last", falling back to the email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Company is a business account.
type Company struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Website    string    `json:"website,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	IndustryID string    `json:"industryId,omitempty"`
	SizeID     string    `json:"sizeId,omitempty"`
	Revenue    *float64  `json:"revenue,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate checks required fields.
func (c Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &RequiredFieldError{Resource: "company", Field: "name"}
	}
	return nil
}

// Contact is a person, optionally attached to a company.
type Contact struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Title      string    `json:"title,omitempty"`
	Department string    `json:"department,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	CompanyID  string    `json:"companyId,omitempty"`
	EmailOptIn bool      `json:"emailOptIn"`
	SMSOptIn   bool      `json:"smsOptIn"`
	CallOptIn  bool      `json:"callOptIn"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate checks required fields.
func (c Contact) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return &RequiredFieldError{Resource: "contact", Field: "firstName"}
	}
	if strings.TrimSpace(c.LastName) == "" {
		return &RequiredFieldError{Resource: "contact", Field: "lastName"}
	}
	return nil
}

// Lead is a prospective customer.
type Lead struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"firstName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	Title         string    `json:"title,omitempty"`
	Email         string    `json:"email,omitempty"`
	StatusID      string    `json:"statusId,omitempty"`
	TemperatureID string    `json:"temperatureId,omitempty"`
	Source        string    `json:"source,omitempty"`
	Campaign      string    `json:"campaign,omitempty"`
	Score         int       `json:"score"`
	CompanyID     string    `json:"companyId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Deal is an opportunity moving through the sales pipeline.
type Deal struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Amount            *float64   `json:"amount,omitempty"`
	Currency          string     `json:"currency"`
	Probability       float64    `json:"probability"`
	Stage             string     `json:"stage"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	CompanyID         string     `json:"companyId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// PipelineStages are the deal stages shown on the dashboard, in order.
var PipelineStages = []string{"Prospecting", "Qualification", "Proposal", "Negotiation", "Closed Won"}

// StageCount is the number of deals in a pipeline stage.
type StageCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DashboardStats aggregates record counts for the dashboard.
type DashboardStats struct {
	TotalCompanies int          `json:"totalCompanies"`
	TotalContacts  int          `json:"totalContacts"`
	TotalLeads     int          `json:"totalLeads"`
	TotalDeals     int          `json:"totalDeals"`
	PipelineStages []StageCount `json:"pipelineStages"`
}

// RequiredFieldError is returned when a required form field is blank.
type RequiredFieldError struct {
	Resource string
	Field    string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("%s: %s is required", e.Resource, e.Field)
}
