// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewListCommand(t *testing.T) {
	cmd := NewListCommand()

	assert.Equal(t, "list <entity>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"page", "page-size", "sort", "order", "view", "search", "filter", "all"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "f", cmd.Flags().Lookup("filter").Shorthand)
}

func TestNewBrowseCommand(t *testing.T) {
	cmd := NewBrowseCommand()

	assert.Equal(t, "browse <entity>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	// no --page or --all: paging happens at the prompt
	assert.Nil(t, cmd.Flags().Lookup("page"))
	assert.Nil(t, cmd.Flags().Lookup("all"))
	assert.NotNil(t, cmd.Flags().Lookup("filter"))
}

func TestNewViewsCommand(t *testing.T) {
	cmd := NewViewsCommand()

	assert.Equal(t, "views <entity>", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("view"))

	completions, _ := cmd.ValidArgsFunction(cmd, nil, "")
	assert.Equal(t, []string{"companies", "contacts", "leads", "deals"}, completions)
}

func TestNewPicklistCommand(t *testing.T) {
	cmd := NewPicklistCommand()

	assert.Equal(t, "picklist <type>", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("search"))
	assert.NotNil(t, cmd.Flags().Lookup("all"))

	completions, _ := cmd.ValidArgsFunction(cmd, nil, "")
	assert.Contains(t, completions, "industries")
	assert.Contains(t, completions, "leadtemperatures")
}

func TestNewCreateCommand(t *testing.T) {
	cmd := NewCreateCommand()

	assert.Equal(t, "create", cmd.Use)
	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"company", "contact"}, names)
}

func TestAuthCommands(t *testing.T) {
	login := NewLoginCommand()
	assert.Equal(t, "login", login.Use)
	assert.NotNil(t, login.Flags().Lookup("email"))
	assert.NotNil(t, login.Flags().Lookup("password"))

	register := NewRegisterCommand()
	for _, flag := range []string{"email", "password", "first-name", "last-name"} {
		assert.NotNil(t, register.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	assert.Equal(t, "logout", NewLogoutCommand().Use)
	assert.Equal(t, "whoami", NewWhoamiCommand().Use)
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	for _, flag := range []string{"port", "database", "seed-companies", "jwt-secret"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewDashboardCommand(t *testing.T) {
	cmd := NewDashboardCommand()

	assert.Equal(t, "dashboard", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestNewDoctorCommand(t *testing.T) {
	cmd := NewDoctorCommand()

	assert.Equal(t, "doctor", cmd.Use)
	assert.NotEmpty(t, cmd.Long, "Long description should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}
