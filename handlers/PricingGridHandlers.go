package handlers

import (
	"database/sql"
	"drapely/models"
	"drapely/repository"
	"drapely/storage"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ruleMatches reports whether a rule applies to the query. Unset rule
// attributes are wildcards; set attributes must match exactly.
func ruleMatches(rule models.PricingGridRule, productType, systemType, priceGroup string) bool {
	if rule.ProductType != "" && rule.ProductType != productType {
		return false
	}
	if rule.SystemType != "" && rule.SystemType != systemType {
		return false
	}
	if rule.PriceGroup != "" && rule.PriceGroup != priceGroup {
		return false
	}
	return true
}

// ruleSpecificity counts the non-wildcard attributes a rule matched on.
// Used as the tie-break when two candidates share a priority: the more
// specific rule wins, then the lower rule ID for determinism.
func ruleSpecificity(rule models.PricingGridRule) int {
	n := 0
	if rule.ProductType != "" {
		n++
	}
	if rule.SystemType != "" {
		n++
	}
	if rule.PriceGroup != "" {
		n++
	}
	return n
}

// SelectPricingRule picks the winning rule among candidates: highest
// priority first, then most-specific-match, then lowest ID. Returns nil
// when nothing matches, which is a business outcome and not an error.
func SelectPricingRule(rules []models.PricingGridRule, productType, systemType, priceGroup string) *models.PricingGridRule {
	var best *models.PricingGridRule
	for i := range rules {
		rule := &rules[i]
		if !ruleMatches(*rule, productType, systemType, priceGroup) {
			continue
		}
		if best == nil {
			best = rule
			continue
		}
		switch {
		case rule.Priority > best.Priority:
			best = rule
		case rule.Priority == best.Priority && ruleSpecificity(*rule) > ruleSpecificity(*best):
			best = rule
		case rule.Priority == best.Priority && ruleSpecificity(*rule) == ruleSpecificity(*best) && rule.ID < best.ID:
			best = rule
		}
	}
	return best
}

// PriceFromGrid looks up the price band covering the requested
// dimensions: the first width column and drop row that are >= the
// request (made-to-measure round-up). Exact grid points return the
// cell unchanged. Dimensions beyond the last band are an error.
func PriceFromGrid(grid models.PricingGrid, widthCm, dropCm float64) (float64, error) {
	if widthCm <= 0 || dropCm <= 0 {
		return 0, fmt.Errorf("dimensions must be positive, got %vx%v", widthCm, dropCm)
	}
	if len(grid.WidthColumns) == 0 || len(grid.Rows) == 0 {
		return 0, fmt.Errorf("grid %s has no price data", grid.Code)
	}

	col := -1
	for i, w := range grid.WidthColumns {
		if widthCm <= w {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, fmt.Errorf("width %.0fcm exceeds grid %s maximum %.0fcm", widthCm, grid.Code, grid.WidthColumns[len(grid.WidthColumns)-1])
	}

	for _, row := range grid.Rows {
		if dropCm <= row.DropCm {
			if col >= len(row.Prices) {
				return 0, fmt.Errorf("grid %s row %.0f has no price for column %d", grid.Code, row.DropCm, col)
			}
			return row.Prices[col], nil
		}
	}
	return 0, fmt.Errorf("drop %.0fcm exceeds grid %s maximum %.0fcm", dropCm, grid.Code, grid.Rows[len(grid.Rows)-1].DropCm)
}

// fetchPricingRules loads a user's rules ordered by priority descending.
func fetchPricingRules(db *sql.DB, userID int) ([]models.PricingGridRule, error) {
	rows, err := db.Query(`
		SELECT id, user_id, grid_id, product_type, system_type, price_group, priority, created_at
		FROM pricing_grid_rule WHERE user_id = $1
		ORDER BY priority DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing rules: %w", err)
	}
	defer rows.Close()

	var rules []models.PricingGridRule
	for rows.Next() {
		var r models.PricingGridRule
		if err := rows.Scan(&r.ID, &r.UserID, &r.GridID, &r.ProductType, &r.SystemType, &r.PriceGroup, &r.Priority, &r.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func fetchPricingGrid(db *sql.DB, gridID int) (*models.PricingGrid, error) {
	var grid models.PricingGrid
	var widthsJSON, rowsJSON []byte
	err := db.QueryRow(`
		SELECT id, user_id, name, code, width_columns, rows, created_at, updated_at
		FROM pricing_grid WHERE id = $1`, gridID).Scan(
		&grid.ID, &grid.UserID, &grid.Name, &grid.Code, &widthsJSON, &rowsJSON, &grid.CreatedAt, &grid.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("pricing grid %d not found", gridID)
		}
		return nil, fmt.Errorf("failed to query pricing grid: %w", err)
	}
	if err := json.Unmarshal(widthsJSON, &grid.WidthColumns); err != nil {
		return nil, fmt.Errorf("failed to decode grid width columns: %w", err)
	}
	if err := json.Unmarshal(rowsJSON, &grid.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode grid rows: %w", err)
	}
	return &grid, nil
}

// ResolveGridForProduct finds the grid that should price the given
// product attributes. A nil result with nil error means no grid is
// configured for the combination.
func ResolveGridForProduct(db *sql.DB, userID int, productType, systemType, priceGroup string) (*models.GridResolution, error) {
	rules, err := fetchPricingRules(db, userID)
	if err != nil {
		return nil, err
	}

	rule := SelectPricingRule(rules, productType, systemType, priceGroup)
	if rule == nil {
		return nil, nil
	}

	grid, err := fetchPricingGrid(db, rule.GridID)
	if err != nil {
		return nil, err
	}

	return &models.GridResolution{
		GridName:    grid.Name,
		GridCode:    grid.Code,
		MatchedRule: *rule,
		Grid:        *grid,
	}, nil
}

// CreatePricingGridHandler godoc
// @Summary      Create a pricing grid
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        body  body  models.PricingGrid  true  "Grid"
// @Success      200  {object}  models.PricingGrid
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/pricing-grids [post]
func CreatePricingGridHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var grid models.PricingGrid
	if err := c.ShouldBindJSON(&grid); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	if grid.Name == "" || len(grid.WidthColumns) == 0 || len(grid.Rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, width_columns and rows are required"})
		return
	}
	for _, row := range grid.Rows {
		if len(row.Prices) != len(grid.WidthColumns) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("row %.0f has %d prices, want %d", row.DropCm, len(row.Prices), len(grid.WidthColumns))})
			return
		}
	}

	if grid.Code == "" {
		grid.Code = repository.GenerateGridCode()
	}
	grid.UserID = user.ID
	grid.CreatedAt = time.Now()
	grid.UpdatedAt = grid.CreatedAt

	widthsJSON, _ := json.Marshal(grid.WidthColumns)
	rowsJSON, _ := json.Marshal(grid.Rows)

	err = db.QueryRow(`
		INSERT INTO pricing_grid (user_id, name, code, width_columns, rows, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		grid.UserID, grid.Name, grid.Code, widthsJSON, rowsJSON, grid.CreatedAt, grid.UpdatedAt,
	).Scan(&grid.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to insert pricing grid: %v", err)})
		return
	}

	c.JSON(http.StatusOK, grid)
}

// ListPricingGridsHandler godoc
// @Summary      List pricing grids
// @Tags         pricing
// @Produce      json
// @Success      200  {array}  models.PricingGrid
// @Router       /api/pricing-grids [get]
func ListPricingGridsHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	rows, err := db.Query(`
		SELECT id, user_id, name, code, width_columns, rows, created_at, updated_at
		FROM pricing_grid WHERE user_id = $1 ORDER BY name`, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()

	grids := []models.PricingGrid{}
	for rows.Next() {
		var grid models.PricingGrid
		var widthsJSON, rowsJSON []byte
		if err := rows.Scan(&grid.ID, &grid.UserID, &grid.Name, &grid.Code, &widthsJSON, &rowsJSON, &grid.CreatedAt, &grid.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := json.Unmarshal(widthsJSON, &grid.WidthColumns); err == nil {
			_ = json.Unmarshal(rowsJSON, &grid.Rows)
		}
		grids = append(grids, grid)
	}

	c.JSON(http.StatusOK, grids)
}

// CreatePricingRuleHandler godoc
// @Summary      Create a pricing grid rule
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        body  body  models.PricingGridRule  true  "Rule"
// @Success      200  {object}  models.PricingGridRule
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/pricing-rules [post]
func CreatePricingRuleHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var rule models.PricingGridRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	if rule.GridID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "grid_id is required"})
		return
	}

	rule.UserID = user.ID
	rule.CreatedAt = time.Now()

	err = db.QueryRow(`
		INSERT INTO pricing_grid_rule (user_id, grid_id, product_type, system_type, price_group, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		rule.UserID, rule.GridID, rule.ProductType, rule.SystemType, rule.PriceGroup, rule.Priority, rule.CreatedAt,
	).Scan(&rule.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to insert pricing rule: %v", err)})
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeletePricingRuleHandler godoc
// @Summary      Delete a pricing grid rule
// @Tags         pricing
// @Produce      json
// @Param        id  path  int  true  "Rule ID"
// @Success      200  {object}  object
// @Router       /api/pricing-rules/{id} [delete]
func DeletePricingRuleHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	ruleID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	res, err := db.Exec(`DELETE FROM pricing_grid_rule WHERE id = $1 AND user_id = $2`, ruleID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rule deleted"})
}

// ResolveGridHandler godoc
// @Summary      Resolve the pricing grid for product attributes
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        body  body  models.ResolveGridRequest  true  "Product attributes"
// @Success      200  {object}  models.GridResolution
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/pricing/resolve [post]
func ResolveGridHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var req models.ResolveGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}

	resolution, err := ResolveGridForProduct(db, user.ID, req.ProductType, req.SystemType, req.PriceGroup)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if resolution == nil {
		// "no applicable grid" is distinct from an error
		c.JSON(http.StatusOK, gin.H{"resolution": nil, "message": "no matching pricing grid found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolution": resolution})
}

// GridPriceHandler godoc
// @Summary      Price a product from its resolved grid
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        body  body  models.GridPriceRequest  true  "Attributes and dimensions"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/pricing/price [post]
func GridPriceHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var req models.GridPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}

	resolution, err := ResolveGridForProduct(db, user.ID, req.ProductType, req.SystemType, req.PriceGroup)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if resolution == nil {
		c.JSON(http.StatusOK, gin.H{"price": nil, "message": "no matching pricing grid found"})
		return
	}

	price, err := PriceFromGrid(resolution.Grid, req.WidthCm, req.DropCm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"price":     price,
		"grid_name": resolution.GridName,
		"grid_code": resolution.GridCode,
	})
}
