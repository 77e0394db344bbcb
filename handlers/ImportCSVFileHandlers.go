package handlers

import (
	"drapely/models"
	"drapely/storage"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var inventoryCSVColumns = []string{"Name", "Category"}

var titleCaser = cases.Title(language.English)

// ParseInventoryCSV reads an inventory CSV into items in file order.
// SKU, Supplier, Unit and the numeric columns are optional; missing
// SKUs are generated later during import preparation.
func ParseInventoryCSV(src io.Reader) ([]models.InventoryItem, error) {
	reader := csv.NewReader(src)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columnIndices := make(map[string]int)
	for i, col := range header {
		columnIndices[strings.TrimSpace(col)] = i
	}
	for _, col := range inventoryCSVColumns {
		if _, exists := columnIndices[col]; !exists {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columnIndices[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	numeric := func(record []string, name string) float64 {
		v, _ := strconv.ParseFloat(field(record, name), 64)
		return v
	}

	var items []models.InventoryItem
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(items)+2, err)
		}

		name := field(record, "Name")
		if name == "" {
			continue
		}

		items = append(items, models.InventoryItem{
			SKU:           strings.ToUpper(field(record, "SKU")),
			Name:          titleCaser.String(strings.ToLower(name)),
			Category:      field(record, "Category"),
			Supplier:      field(record, "Supplier"),
			Unit:          field(record, "Unit"),
			CostPrice:     numeric(record, "CostPrice"),
			SellPrice:     numeric(record, "SellPrice"),
			StockQuantity: numeric(record, "StockQuantity"),
			ReorderLevel:  numeric(record, "ReorderLevel"),
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("CSV contains no data rows")
	}
	return items, nil
}

// ImportInventoryCSVHandler godoc
// @Summary      Import inventory items from a CSV file
// @Description  Parses the file, creates an import job and processes it in chunks in the background. Poll the job status endpoint for progress.
// @Tags         import
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "CSV file"
// @Success      202  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/import-jobs [post]
func ImportInventoryCSVHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file not found"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to open file"})
		return
	}
	defer src.Close()

	items, err := ParseInventoryCSV(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	manager := GetImportJobManager()
	jobID, err := manager.CreateJob(user.ID, "inventory_csv", user.FirstName+" "+user.LastName, len(items))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create import job"})
		return
	}

	manager.StartJob(jobID, user.ID, items)

	LogActivity(db, models.ActivityLog{
		EventContext: "Inventory",
		EventName:    "Import",
		Description:  fmt.Sprintf("Started inventory import job %d with %d rows from %s", jobID, len(items), file.Filename),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusAccepted, gin.H{
		"message":     "import started",
		"job_id":      jobID,
		"total_items": len(items),
	})
}
