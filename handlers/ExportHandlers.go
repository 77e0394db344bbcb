package handlers

import (
	"drapely/models"
	"drapely/storage"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

var inventoryExportHeader = []string{
	"SKU", "Name", "Category", "Supplier", "Unit",
	"CostPrice", "SellPrice", "StockQuantity", "ReorderLevel",
}

func fetchInventoryForExport(userID int, category string) ([]models.InventoryItemGorm, error) {
	query := storage.GetGormDB().Where("user_id = ?", userID)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var items []models.InventoryItemGorm
	if err := query.Order("category ASC, name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch inventory: %w", err)
	}
	return items, nil
}

// ExportInventoryCSVHandler godoc
// @Summary      Export inventory as CSV
// @Description  The exported file round-trips through the CSV import.
// @Tags         export
// @Produce      text/csv
// @Param        category  query  string  false  "Filter by category"
// @Success      200  {string}  string
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/exports/inventory/csv [get]
func ExportInventoryCSVHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	items, err := fetchInventoryForExport(user.ID, c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=inventory_export.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write(inventoryExportHeader); err != nil {
		return
	}
	for _, item := range items {
		record := []string{
			item.SKU, item.Name, item.Category, item.Supplier, item.Unit,
			strconv.FormatFloat(item.CostPrice, 'f', 2, 64),
			strconv.FormatFloat(item.SellPrice, 'f', 2, 64),
			strconv.FormatFloat(item.StockQuantity, 'f', 2, 64),
			strconv.FormatFloat(item.ReorderLevel, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return
		}
	}
}

// ExportInventoryExcelHandler godoc
// @Summary      Export inventory as an Excel workbook
// @Description  One sheet of items plus a summary sheet with per-category totals.
// @Tags         export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {string}  string
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/exports/inventory/xlsx [get]
func ExportInventoryExcelHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	items, err := fetchInventoryForExport(user.ID, c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const itemsSheet = "Inventory"
	index, err := f.NewSheet(itemsSheet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create sheet"})
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, title := range inventoryExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(itemsSheet, cell, title)
	}

	categoryValue := make(map[string]float64)
	categoryCount := make(map[string]int)
	var categories []string

	for row, item := range items {
		values := []any{
			item.SKU, item.Name, item.Category, item.Supplier, item.Unit,
			item.CostPrice, item.SellPrice, item.StockQuantity, item.ReorderLevel,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(itemsSheet, cell, v)
		}

		if _, seen := categoryCount[item.Category]; !seen {
			categories = append(categories, item.Category)
		}
		categoryCount[item.Category]++
		categoryValue[item.Category] += item.CostPrice * item.StockQuantity
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err == nil {
		f.SetCellValue(summarySheet, "A1", "Inventory Export Summary")
		f.SetCellValue(summarySheet, "A2", "Exported At")
		f.SetCellValue(summarySheet, "B2", time.Now().Format(time.RFC3339))
		f.SetCellValue(summarySheet, "A3", "Total Items")
		f.SetCellValue(summarySheet, "B3", len(items))

		f.SetCellValue(summarySheet, "A5", "Category")
		f.SetCellValue(summarySheet, "B5", "Items")
		f.SetCellValue(summarySheet, "C5", "Stock Value")
		for i, category := range categories {
			row := 6 + i
			f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), category)
			f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), categoryCount[category])
			f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), categoryValue[category])
		}
	}

	filename := fmt.Sprintf("inventory_export_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%s", filename))

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write workbook"})
	}
}

// ExportInventoryTemplateHandler godoc
// @Summary      Download the CSV import template
// @Tags         export
// @Produce      text/csv
// @Success      200  {string}  string
// @Router       /api/exports/inventory/template [get]
func ExportInventoryTemplateHandler(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=inventory_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(inventoryExportHeader)
	writer.Write([]string{"", "Velvet Curtain Fabric", "Fabric", "Acme Textiles", "m", "12.50", "29.99", "120", "20"})
}
