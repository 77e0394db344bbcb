package handlers

import (
	"strings"
	"testing"
)

func TestParseInventoryCSV(t *testing.T) {
	csvData := `SKU,Name,Category,Supplier,Unit,CostPrice,SellPrice,StockQuantity,ReorderLevel
fab-vel-10001,velvet curtain fabric,Fabric,Acme Textiles,m,12.50,29.99,120,20
,roller tube 45mm,Hardware,BlindCo,pcs,3.20,8.00,50,10
`
	items, err := ParseInventoryCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ParseInventoryCSV() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	first := items[0]
	if first.SKU != "FAB-VEL-10001" {
		t.Errorf("SKU = %q, want upper-cased FAB-VEL-10001", first.SKU)
	}
	if first.Name != "Velvet Curtain Fabric" {
		t.Errorf("Name = %q, want title-cased Velvet Curtain Fabric", first.Name)
	}
	if first.CostPrice != 12.5 || first.StockQuantity != 120 {
		t.Errorf("numeric fields = %+v", first)
	}

	if items[1].SKU != "" {
		t.Errorf("blank SKU should stay empty for later generation, got %q", items[1].SKU)
	}
}

func TestParseInventoryCSVMissingColumn(t *testing.T) {
	csvData := `SKU,Supplier
A,B
`
	if _, err := ParseInventoryCSV(strings.NewReader(csvData)); err == nil {
		t.Error("expected error for missing required column")
	}
}

func TestParseInventoryCSVSkipsBlankNames(t *testing.T) {
	csvData := `Name,Category
Roller Tube,Hardware
,Hardware
`
	items, err := ParseInventoryCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ParseInventoryCSV() error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("len(items) = %d, want 1 (blank name skipped)", len(items))
	}
}

func TestParseInventoryCSVEmpty(t *testing.T) {
	csvData := `Name,Category
`
	if _, err := ParseInventoryCSV(strings.NewReader(csvData)); err == nil {
		t.Error("expected error for CSV without data rows")
	}
}
