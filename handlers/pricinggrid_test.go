package handlers

import (
	"drapely/models"
	"testing"
)

func testGrid() models.PricingGrid {
	return models.PricingGrid{
		ID:           1,
		Code:         "RB1001",
		Name:         "Roller Blinds Standard",
		WidthColumns: []float64{60, 90, 120, 180},
		Rows: []models.GridRow{
			{DropCm: 100, Prices: []float64{40, 55, 70, 95}},
			{DropCm: 160, Prices: []float64{50, 68, 88, 120}},
			{DropCm: 220, Prices: []float64{62, 84, 110, 150}},
		},
	}
}

func TestSelectPricingRule(t *testing.T) {
	rules := []models.PricingGridRule{
		{ID: 1, GridID: 10, ProductType: "roller", Priority: 1},
		{ID: 2, GridID: 20, ProductType: "roller", SystemType: "cassette", Priority: 5},
		{ID: 3, GridID: 30, ProductType: "curtain", Priority: 5},
		{ID: 4, GridID: 40, Priority: 0},
	}

	tests := []struct {
		name        string
		productType string
		systemType  string
		priceGroup  string
		wantID      int
	}{
		{
			name:        "higher priority wins over generic match",
			productType: "roller",
			systemType:  "cassette",
			wantID:      2,
		},
		{
			name:        "falls back to generic rule when specific does not match",
			productType: "roller",
			systemType:  "open",
			wantID:      1,
		},
		{
			name:        "catch-all wildcard used when nothing else matches",
			productType: "venetian",
			wantID:      4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectPricingRule(rules, tt.productType, tt.systemType, tt.priceGroup)
			if got == nil {
				t.Fatalf("SelectPricingRule() = nil, want rule %d", tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("SelectPricingRule() = rule %d, want rule %d", got.ID, tt.wantID)
			}
		})
	}
}

func TestSelectPricingRuleSpecificityTieBreak(t *testing.T) {
	rules := []models.PricingGridRule{
		{ID: 1, GridID: 10, ProductType: "roller", Priority: 3},
		{ID: 2, GridID: 20, ProductType: "roller", SystemType: "cassette", PriceGroup: "A", Priority: 3},
	}
	got := SelectPricingRule(rules, "roller", "cassette", "A")
	if got == nil || got.ID != 2 {
		t.Fatalf("want the more specific rule 2, got %+v", got)
	}
}

func TestSelectPricingRuleLowestIDTieBreak(t *testing.T) {
	rules := []models.PricingGridRule{
		{ID: 7, GridID: 10, ProductType: "roller", Priority: 2},
		{ID: 3, GridID: 20, ProductType: "roller", Priority: 2},
	}
	got := SelectPricingRule(rules, "roller", "", "")
	if got == nil || got.ID != 3 {
		t.Fatalf("want rule 3 (lowest ID), got %+v", got)
	}
}

func TestSelectPricingRuleNoMatch(t *testing.T) {
	rules := []models.PricingGridRule{
		{ID: 1, ProductType: "curtain", Priority: 1},
	}
	if got := SelectPricingRule(rules, "roller", "", ""); got != nil {
		t.Errorf("SelectPricingRule() = %+v, want nil", got)
	}
}

func TestPriceFromGrid(t *testing.T) {
	grid := testGrid()

	tests := []struct {
		name    string
		width   float64
		drop    float64
		want    float64
		wantErr bool
	}{
		{name: "rounds up to covering band", width: 75, drop: 130, want: 68},
		{name: "exact grid point", width: 90, drop: 160, want: 68},
		{name: "smallest band", width: 30, drop: 50, want: 40},
		{name: "largest band", width: 180, drop: 220, want: 150},
		{name: "width beyond grid", width: 200, drop: 100, wantErr: true},
		{name: "drop beyond grid", width: 60, drop: 300, wantErr: true},
		{name: "zero width", width: 0, drop: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceFromGrid(grid, tt.width, tt.drop)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("PriceFromGrid(%v, %v) = %v, want error", tt.width, tt.drop, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("PriceFromGrid(%v, %v) unexpected error: %v", tt.width, tt.drop, err)
			}
			if got != tt.want {
				t.Errorf("PriceFromGrid(%v, %v) = %v, want %v", tt.width, tt.drop, got, tt.want)
			}
		})
	}
}

func TestPriceFromGridEmpty(t *testing.T) {
	if _, err := PriceFromGrid(models.PricingGrid{Code: "XX0000"}, 100, 100); err == nil {
		t.Error("expected error for grid without price data")
	}
}

func TestQuoteTotals(t *testing.T) {
	lines := []models.QuoteLine{
		{LineTotal: 100},
		{LineTotal: 50},
	}
	subtotal, tax, total := QuoteTotals(lines, 20)
	if subtotal != 150 {
		t.Errorf("subtotal = %v, want 150", subtotal)
	}
	if tax != 30 {
		t.Errorf("tax = %v, want 30", tax)
	}
	if total != 180 {
		t.Errorf("total = %v, want 180", total)
	}
}
