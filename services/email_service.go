package services

import (
	"database/sql"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"drapely/models"

	"golang.org/x/net/html"
)

// convertHTMLToText flattens an HTML template body into plain text for
// the email wire format.
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6", "table", "tr":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "td", "th":
				text.WriteString(" | ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}
	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	return strings.TrimSpace(result)
}

// EmailService sends templated customer emails over SMTP.
type EmailService struct {
	db *sql.DB
}

func NewEmailService(db *sql.DB) *EmailService {
	return &EmailService{db: db}
}

// Built-in templates. Placeholders use {{name}} syntax.
const (
	quoteEmailSubject = "Your quotation {{quote_number}} from {{company_name}}"
	quoteEmailBody    = `<p>Dear {{client_name}},</p>
<p>Please find attached your quotation <b>{{quote_number}}</b> totalling {{total}}.</p>
<p>The quote is valid until {{valid_until}}. Reply to this email or call us to accept.</p>
<p>Kind regards,<br>{{user_name}}<br>{{company_name}}</p>`

	invoiceEmailSubject = "Invoice {{invoice_number}} from {{company_name}}"
	invoiceEmailBody    = `<p>Dear {{client_name}},</p>
<p>Your invoice <b>{{invoice_number}}</b> for {{total}} is attached.</p>
<p>Payment is due by {{due_date}}.</p>
<p>Kind regards,<br>{{user_name}}<br>{{company_name}}</p>`
)

// EmailData carries the variables substituted into email templates.
type EmailData struct {
	Email         string
	ClientName    string
	UserName      string
	CompanyName   string
	QuoteNumber   string
	InvoiceNumber string
	Total         string
	ValidUntil    string
	DueDate       string
}

func processTemplate(templateStr string, data EmailData) string {
	variables := map[string]string{
		"email":          data.Email,
		"client_name":    data.ClientName,
		"user_name":      data.UserName,
		"company_name":   data.CompanyName,
		"quote_number":   data.QuoteNumber,
		"invoice_number": data.InvoiceNumber,
		"total":          data.Total,
		"valid_until":    data.ValidUntil,
		"due_date":       data.DueDate,
	}

	result := templateStr
	for key, value := range variables {
		result = strings.ReplaceAll(result, fmt.Sprintf("{{%s}}", key), value)
	}
	return result
}

// SendQuoteEmail emails the client that a quote is ready.
func (es *EmailService) SendQuoteEmail(quote models.Quote, client models.Client, user models.User) error {
	data := EmailData{
		Email:       client.Email,
		ClientName:  client.Name,
		UserName:    user.FirstName + " " + user.LastName,
		CompanyName: user.CompanyName,
		QuoteNumber: quote.QuoteNumber,
		Total:       fmt.Sprintf("%.2f", quote.Total),
		ValidUntil:  quote.ValidUntil.Format("2 Jan 2006"),
	}
	subject := processTemplate(quoteEmailSubject, data)
	body := convertHTMLToText(processTemplate(quoteEmailBody, data))
	return es.sendEmail(client.Email, subject, body)
}

// SendInvoiceEmail emails the client an invoice notice.
func (es *EmailService) SendInvoiceEmail(inv models.Invoice, client models.Client, user models.User) error {
	data := EmailData{
		Email:         client.Email,
		ClientName:    client.Name,
		UserName:      user.FirstName + " " + user.LastName,
		CompanyName:   user.CompanyName,
		InvoiceNumber: inv.InvoiceNumber,
		Total:         fmt.Sprintf("%.2f", inv.Total),
		DueDate:       inv.DueDate.Format("2 Jan 2006"),
	}
	subject := processTemplate(invoiceEmailSubject, data)
	body := convertHTMLToText(processTemplate(invoiceEmailBody, data))
	return es.sendEmail(client.Email, subject, body)
}

func (es *EmailService) sendEmail(to, subject, body string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}
	if host == "" || user == "" {
		return fmt.Errorf("SMTP is not configured")
	}
	if port == "" {
		port = "587"
	}

	auth := smtp.PlainAuth("", user, pass, host)

	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(host+":"+port, auth, from, []string{to}, msg)
}
