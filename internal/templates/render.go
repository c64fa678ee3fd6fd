package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RenderData is the full set of placeholders a template body may use.
type RenderData struct {
	Number          string
	LandlordName    string
	LandlordAddress string
	TenantName      string
	TenantEmail     string
	SocietyName     string
	PropertyAddress string
	FlatNo          string
	City            string
	RentAmount      string
	DepositAmount   string
	StartDate       string
	EndDate         string
	NotarizedAt     string
	GeneratedAt     string
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a monetary amount with grouped thousands.
func FormatAmount(amount int64) string {
	return amountPrinter.Sprintf("%d", amount)
}

// FormatDate renders dates the way agreement documents show them.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02 Jan 2006")
}

// Render executes the template body against data and returns the HTML.
func Render(body string, data RenderData) (string, error) {
	tmpl, err := template.New("agreement").Parse(body)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// SampleData returns placeholder values used by template previews.
func SampleData() RenderData {
	now := time.Now()
	return RenderData{
		Number:          "AGR-SAMPLE-0001",
		LandlordName:    "Sample Landlord",
		LandlordAddress: "12 Example Road, Sampletown",
		TenantName:      "Sample Tenant",
		TenantEmail:     "tenant@example.com",
		SocietyName:     "Green Meadows Society",
		PropertyAddress: "Green Meadows Society, Flat B-404",
		FlatNo:          "B-404",
		City:            "Sampletown",
		RentAmount:      FormatAmount(25000),
		DepositAmount:   FormatAmount(100000),
		StartDate:       FormatDate(now),
		EndDate:         FormatDate(now.AddDate(0, 11, 0)),
		NotarizedAt:     "",
		GeneratedAt:     FormatDate(now),
	}
}
