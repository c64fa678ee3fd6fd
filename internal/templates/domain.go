package templates

import "time"

// Template holds the HTML body an agreement document is rendered from.
// The body is a Go html/template using the fields of RenderData.
type Template struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	HTMLBody    string    `json:"html_body"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
