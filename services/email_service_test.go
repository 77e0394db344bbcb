package services

import (
	"strings"
	"testing"
)

func TestConvertHTMLToText(t *testing.T) {
	htmlBody := `<p>Dear Jane,</p><p>Your quote <b>Q-2026-00001</b> totals 480.00.</p>`
	text := convertHTMLToText(htmlBody)

	if strings.Contains(text, "<") {
		t.Errorf("converted text still contains markup: %q", text)
	}
	if !strings.Contains(text, "Dear Jane,") || !strings.Contains(text, "Q-2026-00001") {
		t.Errorf("converted text lost content: %q", text)
	}
}

func TestProcessTemplate(t *testing.T) {
	data := EmailData{
		ClientName:  "Jane Smith",
		CompanyName: "Drapely Interiors",
		QuoteNumber: "Q-2026-00042",
		Total:       "480.00",
	}
	got := processTemplate("Hi {{client_name}}, quote {{quote_number}} from {{company_name}} totals {{total}}.", data)
	want := "Hi Jane Smith, quote Q-2026-00042 from Drapely Interiors totals 480.00."
	if got != want {
		t.Errorf("processTemplate() = %q, want %q", got, want)
	}
}

func TestProcessTemplateLeavesUnknownPlaceholders(t *testing.T) {
	got := processTemplate("Hello {{unknown}}", EmailData{})
	if got != "Hello {{unknown}}" {
		t.Errorf("processTemplate() = %q, unknown placeholders should pass through", got)
	}
}
