package handlers

import (
	"context"
	"database/sql"
	"drapely/models"
	"drapely/repository"
	"drapely/storage"
	"drapely/utils"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const invoiceColumns = `id, user_id, quote_id, client_id, invoice_number, status, subtotal, tax_amount, total, amount_paid, due_date, paid_at, created_at, updated_at`

func scanInvoice(row interface{ Scan(dest ...any) error }) (models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.UserID, &inv.QuoteID, &inv.ClientID, &inv.InvoiceNumber, &inv.Status,
		&inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.AmountPaid, &inv.DueDate, &inv.PaidAt,
		&inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// CreateInvoiceHandler godoc
// @Summary      Create an invoice from an accepted quote
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.Invoice
// @Failure      400  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/invoices [post]
func CreateInvoiceHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var req struct {
		QuoteID int `json:"quote_id" binding:"required"`
		DueDays int `json:"due_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quote_id is required"})
		return
	}
	if req.DueDays <= 0 {
		req.DueDays = 14
	}

	quote, err := fetchQuote(db, req.QuoteID, user.ID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "quote not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quote"})
		return
	}
	if quote.Status != models.QuoteStatusAccepted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only accepted quotes can be invoiced"})
		return
	}

	var existing int
	if err := db.QueryRow(`SELECT COUNT(*) FROM invoices WHERE quote_id = $1`, quote.ID).Scan(&existing); err == nil && existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "quote already invoiced"})
		return
	}

	var seq int
	if err := db.QueryRow(`SELECT COUNT(*) + 1 FROM invoices WHERE user_id = $1`, user.ID).Scan(&seq); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to number invoice"})
		return
	}

	inv := models.Invoice{
		UserID:        user.ID,
		QuoteID:       quote.ID,
		ClientID:      quote.ClientID,
		InvoiceNumber: repository.GenerateInvoiceNumber(seq),
		Status:        models.InvoiceStatusDraft,
		Subtotal:      quote.Subtotal,
		TaxAmount:     quote.TaxAmount,
		Total:         quote.Total,
		DueDate:       time.Now().AddDate(0, 0, req.DueDays),
	}
	err = db.QueryRow(`
		INSERT INTO invoices (user_id, quote_id, client_id, invoice_number, status, subtotal, tax_amount, total, amount_paid, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		inv.UserID, inv.QuoteID, inv.ClientID, inv.InvoiceNumber, inv.Status,
		inv.Subtotal, inv.TaxAmount, inv.Total, inv.DueDate,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice", "details": err.Error()})
		return
	}

	LogActivity(db, models.ActivityLog{
		EventContext: "Invoices",
		EventName:    "Create",
		Description:  fmt.Sprintf("Created invoice %s from quote %s", inv.InvoiceNumber, quote.QuoteNumber),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
		ProjectID:    quote.ProjectID,
	})

	c.JSON(http.StatusCreated, inv)
}

// ListInvoicesHandler godoc
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        status  query  string  false  "Filter by status"
// @Success      200  {array}  models.Invoice
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/invoices [get]
func ListInvoicesHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE user_id = $1`, invoiceColumns)
	args := []any{user.ID}
	if status := c.Query("status"); status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan invoice"})
			return
		}
		invoices = append(invoices, inv)
	}
	c.JSON(http.StatusOK, invoices)
}

// RecordInvoicePaymentHandler godoc
// @Summary      Record a payment against an invoice
// @Description  Marks the invoice paid when the amount reaches the total.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id  path  int  true  "Invoice ID"
// @Success      200  {object}  models.Invoice
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/invoices/{id}/payments [post]
func RecordInvoicePaymentHandler(c *gin.Context) {
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
		Amount float64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	row := db.QueryRow(fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 AND user_id = $2`, invoiceColumns), id, user.ID)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoice"})
		return
	}
	if inv.Status == models.InvoiceStatusPaid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice is already paid"})
		return
	}

	inv.AmountPaid += req.Amount
	if inv.AmountPaid >= inv.Total {
		inv.Status = models.InvoiceStatusPaid
		now := time.Now()
		inv.PaidAt = &now
	}

	if _, err := db.Exec(`
		UPDATE invoices SET amount_paid = $1, status = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5`,
		inv.AmountPaid, inv.Status, inv.PaidAt, id, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
		return
	}

	if inv.Status == models.InvoiceStatusPaid {
		NotifyUser(db, user.ID, fmt.Sprintf("Invoice %s fully paid", inv.InvoiceNumber), "invoice_paid")
	}

	c.JSON(http.StatusOK, inv)
}

// SendInvoiceHandler godoc
// @Summary      Mark a draft invoice as sent
// @Tags         invoices
// @Produce      json
// @Param        id  path  int  true  "Invoice ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/invoices/{id}/send [post]
func SendInvoiceHandler(c *gin.Context) {
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

	result, err := db.Exec(`
		UPDATE invoices SET status = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = $4`,
		models.InvoiceStatusSent, id, user.ID, models.InvoiceStatusDraft)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send invoice"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no draft invoice with that id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "invoice sent"})
}

// FlagOverdueInvoices moves past-due sent invoices to overdue and
// notifies their owners. Called from the daily maintenance cron.
func FlagOverdueInvoices(db *sql.DB) error {
	ctx, cancel := utils.GetSlowQueryContext(context.Background())
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		UPDATE invoices SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date < NOW()
		RETURNING id, user_id, invoice_number`,
		models.InvoiceStatusOverdue, models.InvoiceStatusSent)
	if err != nil {
		return fmt.Errorf("failed to flag overdue invoices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, userID int
		var number string
		if err := rows.Scan(&id, &userID, &number); err != nil {
			return err
		}
		NotifyUser(db, userID, fmt.Sprintf("Invoice %s is overdue", number), "invoice_overdue")
		log.Printf("Invoice %s (id %d) flagged overdue", number, id)
	}
	return rows.Err()
}
