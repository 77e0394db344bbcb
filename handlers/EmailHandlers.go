package handlers

import (
	"database/sql"
	"drapely/models"
	"drapely/services"
	"drapely/storage"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SendQuoteEmailHandler godoc
// @Summary      Email a quote to the client and mark it sent
// @Tags         quotes
// @Produce      json
// @Param        id  path  int  true  "Quote ID"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/send [post]
func SendQuoteEmailHandler(c *gin.Context) {
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
	if quote.Status != models.QuoteStatusDraft && quote.Status != models.QuoteStatusDeclined {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("quote in status %s cannot be sent", quote.Status)})
		return
	}

	row := db.QueryRow(fmt.Sprintf(`SELECT %s FROM clients WHERE id = $1 AND user_id = $2`, clientColumns), quote.ClientID, user.ID)
	client, err := scanClient(row)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch client"})
		return
	}
	if client.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client has no email address"})
		return
	}

	emailService := services.NewEmailService(db)
	if err := emailService.SendQuoteEmail(*quote, client, *user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email", "details": err.Error()})
		return
	}

	if _, err := db.Exec(`UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		models.QuoteStatusSent, id, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "email sent but status update failed"})
		return
	}

	LogActivity(db, models.ActivityLog{
		EventContext: "Quotes",
		EventName:    "Send",
		Description:  fmt.Sprintf("Emailed quote %s to %s", quote.QuoteNumber, client.Email),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
		ProjectID:    quote.ProjectID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "quote emailed", "status": models.QuoteStatusSent})
}

// SendInvoiceEmailHandler godoc
// @Summary      Email an invoice to the client and mark it sent
// @Tags         invoices
// @Produce      json
// @Param        id  path  int  true  "Invoice ID"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/invoices/{id}/email [post]
func SendInvoiceEmailHandler(c *gin.Context) {
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

	clientRow := db.QueryRow(fmt.Sprintf(`SELECT %s FROM clients WHERE id = $1 AND user_id = $2`, clientColumns), inv.ClientID, user.ID)
	client, err := scanClient(clientRow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch client"})
		return
	}
	if client.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client has no email address"})
		return
	}

	emailService := services.NewEmailService(db)
	if err := emailService.SendInvoiceEmail(inv, client, *user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email", "details": err.Error()})
		return
	}

	if inv.Status == models.InvoiceStatusDraft {
		db.Exec(`UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
			models.InvoiceStatusSent, id, user.ID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "invoice emailed"})
}
