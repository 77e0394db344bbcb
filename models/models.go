package models

import (
	"time"
)

// User represents a retailer staff account.
type User struct {
	ID          int       `json:"id"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	CompanyName string    `json:"company_name"`
	PhoneNo     string    `json:"phone_no"`
	IsAdmin     bool      `json:"is_admin"`
	Suspended   bool      `json:"suspended"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	FirstAccess time.Time `json:"first_access"`
	LastAccess  time.Time `json:"last_access"`
}

// Session represents an authenticated device session.
type Session struct {
	UserID                int       `json:"user_id"`
	SessionID             string    `json:"session_id"`
	HostName              string    `json:"host_name"`
	IPAddress             string    `json:"ip_address"`
	Timestamp             time.Time `json:"timestp"`
	ExpiresAt             time.Time `json:"expires_at"`
	RefreshToken          string    `json:"-"`
	RefreshTokenExpiresAt time.Time `json:"-"`
}

// Client is a CRM customer record owned by a user.
type Client struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PhoneNo   string    `json:"phone_no"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	PostCode  string    `json:"post_code"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project groups the surfaces measured at a client's property.
type Project struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	ClientID    int       `json:"client_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	SiteAddress string    `json:"site_address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Surface is a single window or opening within a project.
type Surface struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"project_id"`
	Name        string    `json:"name"`
	RoomName    string    `json:"room_name"`
	ProductType string    `json:"product_type"`
	SystemType  string    `json:"system_type"`
	WidthCm     float64   `json:"width_cm"`
	DropCm      float64   `json:"drop_cm"`
	FabricID    string    `json:"fabric_id"`
	FabricName  string    `json:"fabric_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Notification is a per-user message shown in the app shell.
type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActivityLog records a mutating action for auditing.
type ActivityLog struct {
	ID           int       `json:"id"`
	EventContext string    `json:"event_context"`
	EventName    string    `json:"event_name"`
	Description  string    `json:"description"`
	UserName     string    `json:"user_name"`
	HostName     string    `json:"host_name"`
	IPAddress    string    `json:"ip_address"`
	ProjectID    int       `json:"project_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	SessionID    string `json:"session_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
