package models

import "time"

// QuoteLine prices one surface. GridCode records which pricing grid
// produced the price so a quote stays explainable after grid edits.
type QuoteLine struct {
	ID          int     `json:"id"`
	QuoteID     int     `json:"quote_id"`
	SurfaceID   int     `json:"surface_id"`
	Description string  `json:"description"`
	ProductType string  `json:"product_type"`
	WidthCm     float64 `json:"width_cm"`
	DropCm      float64 `json:"drop_cm"`
	GridCode    string  `json:"grid_code"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
}

// Quote is a priced proposal for a project.
type Quote struct {
	ID          int         `json:"id"`
	UserID      int         `json:"user_id"`
	ProjectID   int         `json:"project_id"`
	ClientID    int         `json:"client_id"`
	QuoteNumber string      `json:"quote_number"`
	Status      string      `json:"status"`
	Subtotal    float64     `json:"subtotal"`
	TaxRate     float64     `json:"tax_rate"`
	TaxAmount   float64     `json:"tax_amount"`
	Total       float64     `json:"total"`
	ValidUntil  time.Time   `json:"valid_until"`
	Lines       []QuoteLine `json:"lines"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Quote statuses.
const (
	QuoteStatusDraft    = "draft"
	QuoteStatusSent     = "sent"
	QuoteStatusAccepted = "accepted"
	QuoteStatusDeclined = "declined"
)
