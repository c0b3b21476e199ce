package domain

import "strings"

// Contact is one recipient fetched from the backend contact source.
// Email is required and unique within a source; everything else is optional.
type Contact struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Name         string         `json:"name,omitempty"`
	Company      string         `json:"company,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// DisplayName returns the contact name, falling back to the local part of
// the email address when no name is set.
func (c *Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if at := strings.Index(c.Email, "@"); at > 0 {
		return c.Email[:at]
	}
	return c.Email
}
