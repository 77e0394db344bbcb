package models

import "time"

// Invoice bills an accepted quote.
type Invoice struct {
	ID            int        `json:"id"`
	UserID        int        `json:"user_id"`
	QuoteID       int        `json:"quote_id"`
	ClientID      int        `json:"client_id"`
	InvoiceNumber string     `json:"invoice_number"`
	Status        string     `json:"status"`
	Subtotal      float64    `json:"subtotal"`
	TaxAmount     float64    `json:"tax_amount"`
	Total         float64    `json:"total"`
	AmountPaid    float64    `json:"amount_paid"`
	DueDate       time.Time  `json:"due_date"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSent    = "sent"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)
