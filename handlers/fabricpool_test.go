package handlers

import (
	"drapely/models"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func poolWithLeftover(fabricID string, leftover float64) models.FabricPoolMap {
	pools := models.FabricPoolMap{}
	return ApplySurfaceUsage(pools, 1, models.FabricUsageRequest{
		FabricID:      fabricID,
		FabricName:    "Test Fabric",
		SurfaceName:   "Lounge Window",
		AmountOrdered: leftover + 10,
		AmountUsed:    10,
	})
}

func TestCalculateFabricNeeds(t *testing.T) {
	tests := []struct {
		name          string
		leftover      float64
		required      float64
		costPerUnit   float64
		wantUsed      float64
		wantOrdering  float64
		wantSavings   float64
		wantAvailable float64
	}{
		{
			name:          "pool covers the whole requirement",
			leftover:      10,
			required:      6,
			costPerUnit:   12,
			wantUsed:      6,
			wantOrdering:  0,
			wantSavings:   72,
			wantAvailable: 10,
		},
		{
			name:          "pool covers part of the requirement",
			leftover:      5,
			required:      8,
			costPerUnit:   10,
			wantUsed:      5,
			wantOrdering:  3,
			wantSavings:   50,
			wantAvailable: 5,
		},
		{
			name:          "exact match drains the pool",
			leftover:      4,
			required:      4,
			costPerUnit:   7.5,
			wantUsed:      4,
			wantOrdering:  0,
			wantSavings:   30,
			wantAvailable: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pools := poolWithLeftover("velvet-01", tt.leftover)
			needs := CalculateFabricNeeds("velvet-01", tt.required, pools, tt.costPerUnit)

			if !almostEqual(needs.UsedFromPool, tt.wantUsed) {
				t.Errorf("UsedFromPool = %v, want %v", needs.UsedFromPool, tt.wantUsed)
			}
			if !almostEqual(needs.NeedsOrdering, tt.wantOrdering) {
				t.Errorf("NeedsOrdering = %v, want %v", needs.NeedsOrdering, tt.wantOrdering)
			}
			if !almostEqual(needs.CostSavings, tt.wantSavings) {
				t.Errorf("CostSavings = %v, want %v", needs.CostSavings, tt.wantSavings)
			}
			if !almostEqual(needs.AvailableFromPool, tt.wantAvailable) {
				t.Errorf("AvailableFromPool = %v, want %v", needs.AvailableFromPool, tt.wantAvailable)
			}
			if !almostEqual(needs.UsedFromPool+needs.NeedsOrdering, tt.required) {
				t.Errorf("UsedFromPool + NeedsOrdering = %v, want %v",
					needs.UsedFromPool+needs.NeedsOrdering, tt.required)
			}
		})
	}
}

func TestCalculateFabricNeedsNoPool(t *testing.T) {
	needs := CalculateFabricNeeds("unknown", 8, models.FabricPoolMap{}, 10)
	if needs.UsedFromPool != 0 {
		t.Errorf("UsedFromPool = %v, want 0", needs.UsedFromPool)
	}
	if needs.NeedsOrdering != 8 {
		t.Errorf("NeedsOrdering = %v, want 8", needs.NeedsOrdering)
	}
	if needs.CostSavings != 0 {
		t.Errorf("CostSavings = %v, want 0", needs.CostSavings)
	}
}

func TestCalculateFabricNeedsZeroRequirement(t *testing.T) {
	pools := poolWithLeftover("velvet-01", 5)
	needs := CalculateFabricNeeds("velvet-01", 0, pools, 10)
	if needs.UsedFromPool != 0 || needs.NeedsOrdering != 0 {
		t.Errorf("got used %v ordering %v, want both 0", needs.UsedFromPool, needs.NeedsOrdering)
	}
}

func TestApplySurfaceUsageInvariant(t *testing.T) {
	pools := models.FabricPoolMap{}
	pools = ApplySurfaceUsage(pools, 1, models.FabricUsageRequest{
		FabricID: "linen-02", AmountOrdered: 12, AmountUsed: 7,
	})
	pools = ApplySurfaceUsage(pools, 2, models.FabricUsageRequest{
		FabricID: "linen-02", AmountOrdered: 6, AmountUsed: 6,
	})

	entry := pools["linen-02"]
	if !almostEqual(entry.TotalOrdered, 18) {
		t.Errorf("TotalOrdered = %v, want 18", entry.TotalOrdered)
	}
	if !almostEqual(entry.TotalUsed, 13) {
		t.Errorf("TotalUsed = %v, want 13", entry.TotalUsed)
	}
	if !almostEqual(entry.AvailableLeftover, entry.TotalOrdered-entry.TotalUsed) {
		t.Errorf("AvailableLeftover = %v, want TotalOrdered - TotalUsed = %v",
			entry.AvailableLeftover, entry.TotalOrdered-entry.TotalUsed)
	}
}

func TestApplySurfaceUsageUpsertsBySurfaceID(t *testing.T) {
	pools := models.FabricPoolMap{}
	pools = ApplySurfaceUsage(pools, 1, models.FabricUsageRequest{
		FabricID: "velvet-01", AmountOrdered: 10, AmountUsed: 4,
	})
	// same surface saved again with corrected numbers
	pools = ApplySurfaceUsage(pools, 1, models.FabricUsageRequest{
		FabricID: "velvet-01", AmountOrdered: 9, AmountUsed: 5,
	})

	entry := pools["velvet-01"]
	if len(entry.Surfaces) != 1 {
		t.Fatalf("len(Surfaces) = %d, want 1", len(entry.Surfaces))
	}
	if !almostEqual(entry.TotalOrdered, 9) {
		t.Errorf("TotalOrdered = %v, want 9", entry.TotalOrdered)
	}
	if !almostEqual(entry.AvailableLeftover, 4) {
		t.Errorf("AvailableLeftover = %v, want 4", entry.AvailableLeftover)
	}
}

func TestApplySurfaceUsageLeftoverFloorsAtZero(t *testing.T) {
	pools := models.FabricPoolMap{}
	// used more than ordered, e.g. drawn from another roll
	pools = ApplySurfaceUsage(pools, 1, models.FabricUsageRequest{
		FabricID: "silk-03", AmountOrdered: 5, AmountUsed: 8,
	})

	entry := pools["silk-03"]
	if entry.AvailableLeftover != 0 {
		t.Errorf("AvailableLeftover = %v, want 0", entry.AvailableLeftover)
	}
}

func TestRemoveSurfaceUsage(t *testing.T) {
	pools := models.FabricPoolMap{}
	pools = ApplySurfaceUsage(pools, 1, models.FabricUsageRequest{
		FabricID: "velvet-01", AmountOrdered: 10, AmountUsed: 4,
	})
	pools = ApplySurfaceUsage(pools, 2, models.FabricUsageRequest{
		FabricID: "velvet-01", AmountOrdered: 6, AmountUsed: 2,
	})
	pools = ApplySurfaceUsage(pools, 2, models.FabricUsageRequest{
		FabricID: "linen-02", AmountOrdered: 3, AmountUsed: 1,
	})

	pools = RemoveSurfaceUsage(pools, 2)

	entry, ok := pools["velvet-01"]
	if !ok {
		t.Fatal("velvet-01 entry missing after removal")
	}
	if len(entry.Surfaces) != 1 || entry.Surfaces[0].SurfaceID != 1 {
		t.Errorf("velvet-01 surfaces = %+v, want only surface 1", entry.Surfaces)
	}
	if !almostEqual(entry.AvailableLeftover, 6) {
		t.Errorf("AvailableLeftover = %v, want 6", entry.AvailableLeftover)
	}

	if _, ok := pools["linen-02"]; ok {
		t.Error("linen-02 entry should be dropped once its last surface is removed")
	}
}
