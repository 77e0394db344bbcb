package models

import "time"

// SurfaceUsage records how much of a fabric one surface ordered and
// consumed. It is replaced wholesale whenever the surface's fabric
// computation is saved.
type SurfaceUsage struct {
	SurfaceID     int       `json:"surface_id"`
	SurfaceName   string    `json:"surface_name"`
	AmountOrdered float64   `json:"amount_ordered"`
	AmountUsed    float64   `json:"amount_used"`
	LeftoverMade  float64   `json:"leftover_made"`
	DrawnFromPool float64   `json:"drawn_from_pool"`
	Orientation   string    `json:"orientation"`
	WidthsOrdered int       `json:"widths_ordered"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FabricPoolEntry is the per-fabric ledger of ordered versus used
// material within one project. AvailableLeftover is always recomputed
// from TotalOrdered - TotalUsed, never stored independently.
type FabricPoolEntry struct {
	FabricID          string         `json:"fabric_id"`
	FabricName        string         `json:"fabric_name"`
	FabricWidthCm     float64        `json:"fabric_width_cm"`
	TotalOrdered      float64        `json:"total_ordered"`
	TotalUsed         float64        `json:"total_used"`
	AvailableLeftover float64        `json:"available_leftover"`
	Unit              string         `json:"unit"`
	CostPerUnit       float64        `json:"cost_per_unit"`
	Surfaces          []SurfaceUsage `json:"surfaces"`
}

// FabricPoolMap is the whole-project pool document stored as a JSONB
// column on the project row, keyed by fabric ID.
type FabricPoolMap map[string]FabricPoolEntry

// FabricNeeds is the result of deciding how much of a requirement can
// come from leftover stock versus fresh ordering.
type FabricNeeds struct {
	AvailableFromPool float64 `json:"available_from_pool"`
	UsedFromPool      float64 `json:"used_from_pool"`
	NeedsOrdering     float64 `json:"needs_ordering"`
	CostSavings       float64 `json:"cost_savings"`
}

// FabricUsageRequest is the payload saved when a surface's fabric
// computation is confirmed.
type FabricUsageRequest struct {
	FabricID      string  `json:"fabric_id" binding:"required"`
	FabricName    string  `json:"fabric_name"`
	FabricWidthCm float64 `json:"fabric_width_cm"`
	Unit          string  `json:"unit"`
	CostPerUnit   float64 `json:"cost_per_unit"`
	SurfaceName   string  `json:"surface_name"`
	AmountOrdered float64 `json:"amount_ordered"`
	AmountUsed    float64 `json:"amount_used"`
	DrawnFromPool float64 `json:"drawn_from_pool"`
	Orientation   string  `json:"orientation"`
	WidthsOrdered int     `json:"widths_ordered"`
}
