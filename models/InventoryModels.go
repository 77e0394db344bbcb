package models

import "time"

// InventoryItem is a stocked product keyed by its unique SKU.
type InventoryItem struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Supplier      string    `json:"supplier"`
	Unit          string    `json:"unit"`
	CostPrice     float64   `json:"cost_price"`
	SellPrice     float64   `json:"sell_price"`
	StockQuantity float64   `json:"stock_quantity"`
	ReorderLevel  float64   `json:"reorder_level"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Import row statuses.
const (
	ImportStatusSuccess = "success"
	ImportStatusUpdated = "updated"
	ImportStatusError   = "error"
)

// ImportResultRow is the per-row outcome of a batch import, ordered by
// the 1-based source row number. Rows are appended once and never
// mutated afterwards.
type ImportResultRow struct {
	RowNumber int    `json:"row_number"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Name      string `json:"name,omitempty"`
}

// ImportProgress is a derived view recomputed from the result list.
type ImportProgress struct {
	Current      int     `json:"current"`
	Total        int     `json:"total"`
	Percentage   float64 `json:"percentage"`
	SuccessCount int     `json:"success_count"`
	UpdatedCount int     `json:"updated_count"`
	ErrorCount   int     `json:"error_count"`
}

// Import job states.
const (
	ImportStateIdle       = "idle"
	ImportStatePreparing  = "preparing"
	ImportStateProcessing = "processing"
	ImportStatePaused     = "paused"
	ImportStateCompleted  = "completed"
	ImportStateError      = "error"
)
