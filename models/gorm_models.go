package models

import (
	"time"
)

// GORM-compatible models with proper tags

// ImportJobGorm represents the import_jobs table with GORM tags
type ImportJobGorm struct {
	ID             uint       `gorm:"primaryKey;column:id" json:"id"`
	UserID         int        `gorm:"column:user_id;not null" json:"user_id"`
	JobType        string     `gorm:"column:job_type;not null" json:"job_type"`
	Status         string     `gorm:"column:status;not null;default:'idle'" json:"status"`
	TotalItems     int        `gorm:"column:total_items;default:0" json:"total_items"`
	ProcessedItems int        `gorm:"column:processed_items;default:0" json:"processed_items"`
	SuccessCount   int        `gorm:"column:success_count;default:0" json:"success_count"`
	UpdatedCount   int        `gorm:"column:updated_count;default:0" json:"updated_count"`
	ErrorCount     int        `gorm:"column:error_count;default:0" json:"error_count"`
	CreatedBy      string     `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Error          *string    `gorm:"column:error" json:"error,omitempty"`
	Results        *string    `gorm:"column:results" json:"results,omitempty"`
}

// TableName specifies the table name for ImportJobGorm
func (ImportJobGorm) TableName() string {
	return "import_jobs"
}

// InventoryItemGorm represents the inventory_items table with GORM tags
type InventoryItemGorm struct {
	ID            uint      `gorm:"primaryKey;column:id" json:"id"`
	UserID        int       `gorm:"column:user_id;not null" json:"user_id"`
	SKU           string    `gorm:"column:sku;uniqueIndex:idx_inventory_user_sku;not null" json:"sku"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	Category      string    `gorm:"column:category" json:"category"`
	Supplier      string    `gorm:"column:supplier" json:"supplier"`
	Unit          string    `gorm:"column:unit" json:"unit"`
	CostPrice     float64   `gorm:"column:cost_price" json:"cost_price"`
	SellPrice     float64   `gorm:"column:sell_price" json:"sell_price"`
	StockQuantity float64   `gorm:"column:stock_quantity;default:0" json:"stock_quantity"`
	ReorderLevel  float64   `gorm:"column:reorder_level;default:0" json:"reorder_level"`
	CreatedAt     time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for InventoryItemGorm
func (InventoryItemGorm) TableName() string {
	return "inventory_items"
}
