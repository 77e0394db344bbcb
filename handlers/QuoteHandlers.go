package handlers

import (
	"database/sql"
	"drapely/models"
	"drapely/repository"
	"drapely/storage"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// BuildQuoteLines prices each surface via the grid resolver. Surfaces
// with no matching grid or measurements outside the grid come back in
// the second return value and get a zero-priced line for manual entry.
func BuildQuoteLines(db *sql.DB, userID int, surfaces []models.Surface) ([]models.QuoteLine, []string) {
	var lines []models.QuoteLine
	var unpriced []string

	for _, s := range surfaces {
		line := models.QuoteLine{
			SurfaceID:   s.ID,
			Description: fmt.Sprintf("%s - %s (%s)", s.RoomName, s.Name, s.ProductType),
			ProductType: s.ProductType,
			WidthCm:     s.WidthCm,
			DropCm:      s.DropCm,
			Quantity:    1,
		}

		resolution, err := ResolveGridForProduct(db, userID, s.ProductType, s.SystemType, s.FabricID)
		if err == nil && resolution != nil {
			price, perr := PriceFromGrid(resolution.Grid, s.WidthCm, s.DropCm)
			if perr == nil {
				line.GridCode = resolution.GridCode
				line.UnitPrice = price
				line.LineTotal = price * float64(line.Quantity)
				lines = append(lines, line)
				continue
			}
		}

		unpriced = append(unpriced, s.Name)
		lines = append(lines, line)
	}
	return lines, unpriced
}

// QuoteTotals recomputes subtotal, tax and total from the lines.
func QuoteTotals(lines []models.QuoteLine, taxRate float64) (subtotal, tax, total float64) {
	for _, line := range lines {
		subtotal += line.LineTotal
	}
	tax = subtotal * taxRate / 100.0
	total = subtotal + tax
	return subtotal, tax, total
}

// CreateQuoteHandler godoc
// @Summary      Create a quote for a project
// @Description  Prices every surface of the project through the pricing grid resolver. Surfaces without a matching grid get zero-priced lines and are listed in unpriced_surfaces.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Success      201  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/quotes [post]
func CreateQuoteHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var req struct {
		ProjectID int     `json:"project_id" binding:"required"`
		TaxRate   float64 `json:"tax_rate"`
		ValidDays int     `json:"valid_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	if req.ValidDays <= 0 {
		req.ValidDays = 30
	}

	var clientID int
	if err := db.QueryRow(`SELECT client_id FROM project WHERE id = $1 AND user_id = $2`, req.ProjectID, user.ID).Scan(&clientID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	rows, err := db.Query(`
		SELECT id, project_id, name, room_name, product_type, system_type, width_cm, drop_cm, fabric_id, fabric_name, created_at, updated_at
		FROM surfaces WHERE project_id = $1 ORDER BY id ASC`, req.ProjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch surfaces"})
		return
	}
	defer rows.Close()

	var surfaces []models.Surface
	for rows.Next() {
		var s models.Surface
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.RoomName, &s.ProductType, &s.SystemType,
			&s.WidthCm, &s.DropCm, &s.FabricID, &s.FabricName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan surface"})
			return
		}
		surfaces = append(surfaces, s)
	}
	if len(surfaces) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project has no surfaces to quote"})
		return
	}

	lines, unpriced := BuildQuoteLines(db, user.ID, surfaces)
	subtotal, tax, total := QuoteTotals(lines, req.TaxRate)

	var seq int
	if err := db.QueryRow(`SELECT COUNT(*) + 1 FROM quotes WHERE user_id = $1`, user.ID).Scan(&seq); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to number quote"})
		return
	}
	quoteNumber := repository.GenerateQuoteNumber(seq)

	tx, err := db.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start transaction"})
		return
	}
	defer tx.Rollback()

	quote := models.Quote{
		UserID:      user.ID,
		ProjectID:   req.ProjectID,
		ClientID:    clientID,
		QuoteNumber: quoteNumber,
		Status:      models.QuoteStatusDraft,
		Subtotal:    subtotal,
		TaxRate:     req.TaxRate,
		TaxAmount:   tax,
		Total:       total,
		ValidUntil:  time.Now().AddDate(0, 0, req.ValidDays),
	}
	err = tx.QueryRow(`
		INSERT INTO quotes (user_id, project_id, client_id, quote_number, status, subtotal, tax_rate, tax_amount, total, valid_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		quote.UserID, quote.ProjectID, quote.ClientID, quote.QuoteNumber, quote.Status,
		quote.Subtotal, quote.TaxRate, quote.TaxAmount, quote.Total, quote.ValidUntil,
	).Scan(&quote.ID, &quote.CreatedAt, &quote.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create quote", "details": err.Error()})
		return
	}

	for i := range lines {
		lines[i].QuoteID = quote.ID
		err := tx.QueryRow(`
			INSERT INTO quote_lines (quote_id, surface_id, description, product_type, width_cm, drop_cm, grid_code, unit_price, quantity, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			lines[i].QuoteID, lines[i].SurfaceID, lines[i].Description, lines[i].ProductType,
			lines[i].WidthCm, lines[i].DropCm, lines[i].GridCode, lines[i].UnitPrice,
			lines[i].Quantity, lines[i].LineTotal,
		).Scan(&lines[i].ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save quote line", "details": err.Error()})
			return
		}
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to commit"})
		return
	}
	quote.Lines = lines

	LogActivity(db, models.ActivityLog{
		EventContext: "Quotes",
		EventName:    "Create",
		Description:  fmt.Sprintf("Created quote %s for project %d", quoteNumber, req.ProjectID),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
		ProjectID:    req.ProjectID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"quote":             quote,
		"unpriced_surfaces": unpriced,
	})
}

func fetchQuote(db *sql.DB, quoteID, userID int) (*models.Quote, error) {
	var q models.Quote
	err := db.QueryRow(`
		SELECT id, user_id, project_id, client_id, quote_number, status, subtotal, tax_rate, tax_amount, total, valid_until, created_at, updated_at
		FROM quotes WHERE id = $1 AND user_id = $2`, quoteID, userID,
	).Scan(&q.ID, &q.UserID, &q.ProjectID, &q.ClientID, &q.QuoteNumber, &q.Status,
		&q.Subtotal, &q.TaxRate, &q.TaxAmount, &q.Total, &q.ValidUntil, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, quote_id, surface_id, description, product_type, width_cm, drop_cm, grid_code, unit_price, quantity, line_total
		FROM quote_lines WHERE quote_id = $1 ORDER BY id ASC`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line models.QuoteLine
		if err := rows.Scan(&line.ID, &line.QuoteID, &line.SurfaceID, &line.Description, &line.ProductType,
			&line.WidthCm, &line.DropCm, &line.GridCode, &line.UnitPrice, &line.Quantity, &line.LineTotal); err != nil {
			return nil, err
		}
		q.Lines = append(q.Lines, line)
	}
	return &q, nil
}

// GetQuoteHandler godoc
// @Summary      Get a quote with its lines
// @Tags         quotes
// @Produce      json
// @Param        id  path  int  true  "Quote ID"
// @Success      200  {object}  models.Quote
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quotes/{id} [get]
func GetQuoteHandler(c *gin.Context) {
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

	quote, err := fetchQuote(db, id, user.ID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "quote not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quote"})
		return
	}
	c.JSON(http.StatusOK, quote)
}

// ListQuotesHandler godoc
// @Summary      List quotes
// @Tags         quotes
// @Produce      json
// @Param        project_id  query  int     false  "Filter by project"
// @Param        status      query  string  false  "Filter by status"
// @Success      200  {array}  models.Quote
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/quotes [get]
func ListQuotesHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	query := `SELECT id, user_id, project_id, client_id, quote_number, status, subtotal, tax_rate, tax_amount, total, valid_until, created_at, updated_at
		FROM quotes WHERE user_id = $1`
	args := []any{user.ID}
	if projectID := c.Query("project_id"); projectID != "" {
		args = append(args, projectID)
		query += fmt.Sprintf(` AND project_id = $%d`, len(args))
	}
	if status := c.Query("status"); status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotes"})
		return
	}
	defer rows.Close()

	quotes := []models.Quote{}
	for rows.Next() {
		var q models.Quote
		if err := rows.Scan(&q.ID, &q.UserID, &q.ProjectID, &q.ClientID, &q.QuoteNumber, &q.Status,
			&q.Subtotal, &q.TaxRate, &q.TaxAmount, &q.Total, &q.ValidUntil, &q.CreatedAt, &q.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan quote"})
			return
		}
		quotes = append(quotes, q)
	}
	c.JSON(http.StatusOK, quotes)
}

var quoteTransitions = map[string][]string{
	models.QuoteStatusDraft:    {models.QuoteStatusSent},
	models.QuoteStatusSent:     {models.QuoteStatusAccepted, models.QuoteStatusDeclined},
	models.QuoteStatusAccepted: {},
	models.QuoteStatusDeclined: {models.QuoteStatusSent},
}

// UpdateQuoteStatusHandler godoc
// @Summary      Move a quote through its status lifecycle
// @Description  draft -> sent -> accepted or declined. A declined quote can be re-sent.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id  path  int  true  "Quote ID"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/status [put]
func UpdateQuoteStatusHandler(c *gin.Context) {
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

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	var current string
	if err := db.QueryRow(`SELECT status FROM quotes WHERE id = $1 AND user_id = $2`, id, user.ID).Scan(&current); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "quote not found"})
		return
	}

	allowed := false
	for _, next := range quoteTransitions[current] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot change status from %s to %s", current, req.Status)})
		return
	}

	if _, err := db.Exec(`UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`, req.Status, id, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update quote"})
		return
	}

	if req.Status == models.QuoteStatusAccepted {
		NotifyUser(db, user.ID, fmt.Sprintf("Quote %d was accepted", id), "quote_accepted")
	}

	c.JSON(http.StatusOK, gin.H{"message": "status updated", "status": req.Status})
}
