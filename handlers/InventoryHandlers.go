package handlers

import (
	"drapely/models"
	"drapely/repository"
	"drapely/storage"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListInventoryHandler godoc
// @Summary      List inventory items
// @Tags         inventory
// @Produce      json
// @Param        category   query  string  false  "Filter by category"
// @Param        search     query  string  false  "Search in name and SKU"
// @Param        low_stock  query  bool    false  "Only items at or below reorder level"
// @Success      200  {array}  models.InventoryItemGorm
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/inventory [get]
func ListInventoryHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	gdb := storage.GetGormDB()
	query := gdb.Where("user_id = ?", user.ID)

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	if c.Query("low_stock") == "true" {
		query = query.Where("stock_quantity <= reorder_level")
	}

	var items []models.InventoryItemGorm
	if err := query.Order("name ASC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch inventory"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetInventoryItemHandler godoc
// @Summary      Get a single inventory item
// @Tags         inventory
// @Produce      json
// @Param        id  path  int  true  "Item ID"
// @Success      200  {object}  models.InventoryItemGorm
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/inventory/{id} [get]
func GetInventoryItemHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var item models.InventoryItemGorm
	if err := storage.GetGormDB().Where("id = ? AND user_id = ?", id, user.ID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch item"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// CreateInventoryItemHandler godoc
// @Summary      Create an inventory item
// @Description  Generates a SKU when none is supplied. SKUs are unique per user.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        item  body  models.InventoryItem  true  "Item"
// @Success      201  {object}  models.InventoryItemGorm
// @Failure      400  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/inventory [post]
func CreateInventoryItemHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var req models.InventoryItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.SKU == "" {
		req.SKU = repository.GenerateSKU(req.Category, req.Name)
	}
	req.SKU = strings.ToUpper(req.SKU)

	gdb := storage.GetGormDB()

	var count int64
	gdb.Model(&models.InventoryItemGorm{}).
		Where("user_id = ? AND sku = ?", user.ID, req.SKU).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("SKU %s already exists", req.SKU)})
		return
	}

	now := time.Now()
	item := models.InventoryItemGorm{
		UserID:        user.ID,
		SKU:           req.SKU,
		Name:          req.Name,
		Category:      req.Category,
		Supplier:      req.Supplier,
		Unit:          req.Unit,
		CostPrice:     req.CostPrice,
		SellPrice:     req.SellPrice,
		StockQuantity: req.StockQuantity,
		ReorderLevel:  req.ReorderLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := gdb.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create item"})
		return
	}

	LogActivity(db, models.ActivityLog{
		EventContext: "Inventory",
		EventName:    "Create",
		Description:  fmt.Sprintf("Created inventory item %s (%s)", item.Name, item.SKU),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusCreated, item)
}

// UpdateInventoryItemHandler godoc
// @Summary      Update an inventory item
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id    path  int                   true  "Item ID"
// @Param        item  body  models.InventoryItem  true  "Item"
// @Success      200  {object}  models.InventoryItemGorm
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/inventory/{id} [put]
func UpdateInventoryItemHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req models.InventoryItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}

	gdb := storage.GetGormDB()
	var item models.InventoryItemGorm
	if err := gdb.Where("id = ? AND user_id = ?", id, user.ID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch item"})
		return
	}

	// SKU is immutable after creation; only descriptive fields change.
	item.Name = req.Name
	item.Category = req.Category
	item.Supplier = req.Supplier
	item.Unit = req.Unit
	item.CostPrice = req.CostPrice
	item.SellPrice = req.SellPrice
	item.StockQuantity = req.StockQuantity
	item.ReorderLevel = req.ReorderLevel
	item.UpdatedAt = time.Now()

	if err := gdb.Save(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update item"})
		return
	}

	if item.StockQuantity <= item.ReorderLevel {
		NotifyUser(db, user.ID,
			fmt.Sprintf("Stock for %s (%s) is at or below reorder level", item.Name, item.SKU),
			"inventory_low_stock")
	}

	c.JSON(http.StatusOK, item)
}

// DeleteInventoryItemHandler godoc
// @Summary      Delete an inventory item
// @Tags         inventory
// @Produce      json
// @Param        id  path  int  true  "Item ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/inventory/{id} [delete]
func DeleteInventoryItemHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	result := storage.GetGormDB().
		Where("id = ? AND user_id = ?", id, user.ID).
		Delete(&models.InventoryItemGorm{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete item"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	LogActivity(db, models.ActivityLog{
		EventContext: "Inventory",
		EventName:    "Delete",
		Description:  fmt.Sprintf("Deleted inventory item %d", id),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}
