package domain

import "time"

// EmailTemplate holds reusable email content with {variable_name}
// placeholders substituted per recipient at send time.
type EmailTemplate struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Subject   string `json:"subject" db:"subject"`
	Body      string `json:"body" db:"body"` // HTML content
	Language  string `json:"language" db:"language"`
	IsDefault bool   `json:"is_default" db:"is_default"`
	CreatedBy string `json:"created_by" db:"created_by"`

	// Variables documents the placeholders this template expects
	// (name → description). Informational only.
	Variables map[string]string `json:"variables" db:"variables"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
