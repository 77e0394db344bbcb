package models

import "time"

// GridRow is one drop band of a pricing grid with a price per width
// column. Prices are parallel to the grid's WidthColumns.
type GridRow struct {
	DropCm float64   `json:"drop_cm"`
	Prices []float64 `json:"prices"`
}

// PricingGrid is a 2-D price table: width columns ascending across,
// drop rows ascending down.
type PricingGrid struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	WidthColumns []float64 `json:"width_columns"`
	Rows         []GridRow `json:"rows"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PricingGridRule binds product attributes to a grid. Empty SystemType
// or PriceGroup act as wildcards; higher Priority wins when several
// rules match.
type PricingGridRule struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	GridID      int       `json:"grid_id"`
	ProductType string    `json:"product_type"`
	SystemType  string    `json:"system_type"`
	PriceGroup  string    `json:"price_group"`
	Priority    int       `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

// GridResolution is the outcome of matching a product against the
// configured rules. A nil resolution means no grid applies, which is a
// valid business outcome rather than an error.
type GridResolution struct {
	GridName    string          `json:"grid_name"`
	GridCode    string          `json:"grid_code"`
	MatchedRule PricingGridRule `json:"matched_rule"`
	Grid        PricingGrid     `json:"grid"`
}

type ResolveGridRequest struct {
	ProductType string `json:"product_type" binding:"required"`
	SystemType  string `json:"system_type"`
	PriceGroup  string `json:"price_group"`
}

type GridPriceRequest struct {
	ProductType string  `json:"product_type" binding:"required"`
	SystemType  string  `json:"system_type"`
	PriceGroup  string  `json:"price_group"`
	WidthCm     float64 `json:"width_cm" binding:"required"`
	DropCm      float64 `json:"drop_cm" binding:"required"`
}
