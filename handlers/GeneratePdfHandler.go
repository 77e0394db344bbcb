package handlers

import (
	"bytes"
	"database/sql"
	"drapely/models"
	"drapely/storage"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// embedQuoteQR draws a QR code with the quote reference in the top
// right corner of the current page.
func embedQuoteQR(pdf *gofpdf.Fpdf, reference string) {
	png, err := qrcode.Encode(reference, qrcode.Medium, 256)
	if err != nil {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: "png"}
	pdf.RegisterImageOptionsReader(reference, opts, bytes.NewReader(png))
	pdf.ImageOptions(reference, 170, 10, 28, 28, false, opts, 0, "")
}

// GenerateQuotePDFHandler godoc
// @Summary      Render a quote as PDF
// @Tags         quotes
// @Produce      application/pdf
// @Param        id  path  int  true  "Quote ID"
// @Success      200  {file}  file
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quotes/{id}/pdf [get]
func GenerateQuotePDFHandler(c *gin.Context) {
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

	var clientName, clientAddress string
	db.QueryRow(`SELECT name, COALESCE(address, '') FROM clients WHERE id = $1`, quote.ClientID).Scan(&clientName, &clientAddress)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	embedQuoteQR(pdf, quote.QuoteNumber)

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, "Quotation")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(100, 7, quote.QuoteNumber)
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(100, 6, fmt.Sprintf("Prepared by: %s %s, %s", user.FirstName, user.LastName, user.CompanyName))
	pdf.Ln(6)
	pdf.Cell(100, 6, fmt.Sprintf("Client: %s", clientName))
	pdf.Ln(6)
	if clientAddress != "" {
		pdf.Cell(100, 6, clientAddress)
		pdf.Ln(6)
	}
	pdf.Cell(100, 6, fmt.Sprintf("Valid until: %s", quote.ValidUntil.Format("2 Jan 2006")))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(70, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Width (cm)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Drop (cm)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(15, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Unit Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range quote.Lines {
		description := line.Description
		if len(description) > 40 {
			description = description[:37] + "..."
		}
		pdf.CellFormat(70, 8, description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%.1f", line.WidthCm), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%.1f", line.DropCm), "1", 0, "C", false, 0, "")
		pdf.CellFormat(15, 8, strconv.Itoa(line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%.2f", line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", line.LineTotal), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(160, 8, "Subtotal", "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", quote.Subtotal), "1", 1, "R", false, 0, "")
	pdf.CellFormat(160, 8, fmt.Sprintf("Tax (%.1f%%)", quote.TaxRate), "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", quote.TaxAmount), "1", 1, "R", false, 0, "")
	pdf.CellFormat(160, 8, "Total", "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", quote.Total), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render PDF"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%s.pdf", quote.QuoteNumber))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// GenerateInvoicePDFHandler godoc
// @Summary      Render an invoice as PDF
// @Tags         invoices
// @Produce      application/pdf
// @Param        id  path  int  true  "Invoice ID"
// @Success      200  {file}  file
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/invoices/{id}/pdf [get]
func GenerateInvoicePDFHandler(c *gin.Context) {
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

	quote, err := fetchQuote(db, inv.QuoteID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quote lines"})
		return
	}

	var clientName string
	db.QueryRow(`SELECT name FROM clients WHERE id = $1`, inv.ClientID).Scan(&clientName)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	embedQuoteQR(pdf, inv.InvoiceNumber)

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, "Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(100, 7, inv.InvoiceNumber)
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(100, 6, fmt.Sprintf("Billed to: %s", clientName))
	pdf.Ln(6)
	pdf.Cell(100, 6, fmt.Sprintf("Quote reference: %s", quote.QuoteNumber))
	pdf.Ln(6)
	pdf.Cell(100, 6, fmt.Sprintf("Due date: %s", inv.DueDate.Format("2 Jan 2006")))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(100, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Unit Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range quote.Lines {
		description := line.Description
		if len(description) > 55 {
			description = description[:52] + "..."
		}
		pdf.CellFormat(100, 8, description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, strconv.Itoa(line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", line.LineTotal), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(160, 8, "Subtotal", "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", inv.Subtotal), "1", 1, "R", false, 0, "")
	pdf.CellFormat(160, 8, "Tax", "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", inv.TaxAmount), "1", 1, "R", false, 0, "")
	pdf.CellFormat(160, 8, "Total", "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", inv.Total), "1", 1, "R", false, 0, "")
	pdf.CellFormat(160, 8, "Paid", "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", inv.AmountPaid), "1", 1, "R", false, 0, "")
	pdf.CellFormat(160, 8, "Balance Due", "0", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", inv.Total-inv.AmountPaid), "1", 1, "R", false, 0, "")

	if inv.Status == models.InvoiceStatusOverdue {
		pdf.Ln(8)
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(180, 0, 0)
		pdf.Cell(100, 8, fmt.Sprintf("OVERDUE since %s", inv.DueDate.Format("2 Jan 2006")))
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(12)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(100, 6, fmt.Sprintf("Generated %s", time.Now().Format("2 Jan 2006 15:04")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render PDF"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%s.pdf", inv.InvoiceNumber))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
