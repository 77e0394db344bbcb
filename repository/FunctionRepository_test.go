package repository

import (
	"fmt"
	"regexp"
	"testing"
	"time"
)

func TestGenerateSKU(t *testing.T) {
	tests := []struct {
		name     string
		category string
		itemName string
		pattern  string
	}{
		{name: "category and name", category: "Fabric", itemName: "Velvet Curtain", pattern: `^FAB-VEL-\d{5}$`},
		{name: "short words kept whole", category: "de", itemName: "ab", pattern: `^DE-AB-\d{5}$`},
		{name: "empty category falls back", category: "", itemName: "Velvet", pattern: `^ITM-VEL-\d{5}$`},
		{name: "empty name drops middle", category: "Fabric", itemName: "", pattern: `^FAB-\d{5}$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateSKU(tt.category, tt.itemName)
			matched, err := regexp.MatchString(tt.pattern, got)
			if err != nil {
				t.Fatal(err)
			}
			if !matched {
				t.Errorf("GenerateSKU(%q, %q) = %q, want match for %q", tt.category, tt.itemName, got, tt.pattern)
			}
		})
	}
}

func TestGenerateQuoteNumber(t *testing.T) {
	want := fmt.Sprintf("Q-%d-00042", time.Now().Year())
	if got := GenerateQuoteNumber(42); got != want {
		t.Errorf("GenerateQuoteNumber(42) = %q, want %q", got, want)
	}
}

func TestGenerateInvoiceNumber(t *testing.T) {
	want := fmt.Sprintf("INV-%d-00007", time.Now().Year())
	if got := GenerateInvoiceNumber(7); got != want {
		t.Errorf("GenerateInvoiceNumber(7) = %q, want %q", got, want)
	}
}

func TestGenerateGridCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]{2}\d{5}$`)
	got := GenerateGridCode()
	if !pattern.MatchString(got) {
		t.Errorf("GenerateGridCode() = %q, want two letters and five digits", got)
	}
}

func TestNextVersionCode(t *testing.T) {
	tests := []struct {
		previous string
		want     string
	}{
		{previous: "", want: "RV-01"},
		{previous: "RV-01", want: "RV-02"},
		{previous: "RV-09", want: "RV-10"},
		{previous: "garbage", want: "RV-01"},
	}
	for _, tt := range tests {
		if got := NextVersionCode(tt.previous); got != tt.want {
			t.Errorf("NextVersionCode(%q) = %q, want %q", tt.previous, got, tt.want)
		}
	}
}
