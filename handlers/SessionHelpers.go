package handlers

import (
	"database/sql"
	"drapely/models"
	"drapely/storage"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetSessionUser resolves the Authorization header to a user. On
// failure it writes the error response itself so callers can just
// return.
func GetSessionUser(c *gin.Context, db *sql.DB) (*models.User, error) {
	sessionID := c.GetHeader("Authorization")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id header is missing"})
		return nil, errors.New("missing session header")
	}

	user, err := storage.GetUserBySessionID(db, sessionID)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		if err == nil {
			err = errors.New("invalid session")
		}
		return nil, err
	}
	return user, nil
}

// GetSessionDetails returns the session row and the display name of its
// user for activity logging.
func GetSessionDetails(db *sql.DB, sessionID string) (*models.Session, string, error) {
	var session models.Session
	var firstName, lastName string
	query := `
		SELECT s.user_id, s.session_id, s.host_name, s.ip_address, s.timestp,
			   u.first_name, u.last_name
		FROM session s
		JOIN users u ON s.user_id = u.id
		WHERE s.session_id = $1`
	err := db.QueryRow(query, sessionID).Scan(
		&session.UserID, &session.SessionID, &session.HostName, &session.IPAddress,
		&session.Timestamp, &firstName, &lastName,
	)
	if err != nil {
		return nil, "", err
	}
	return &session, firstName + " " + lastName, nil
}

// LogActivity inserts an activity log row. Failures are logged, not
// surfaced; auditing must never block the user action.
func LogActivity(db *sql.DB, entry models.ActivityLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	query := `INSERT INTO activity_log (event_context, event_name, description, user_name, host_name, ip_address, project_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := db.Exec(query, entry.EventContext, entry.EventName, entry.Description,
		entry.UserName, entry.HostName, entry.IPAddress, entry.ProjectID, entry.CreatedAt)
	if err != nil {
		log.Printf("Failed to insert activity log: %v", err)
	}
}

// NotifyUser inserts an unread notification for a user.
func NotifyUser(db *sql.DB, userID int, message, action string) {
	_, err := db.Exec(`
		INSERT INTO notifications (user_id, message, status, action, created_at, updated_at)
		VALUES ($1, $2, 'unread', $3, $4, $5)
	`, userID, message, action, time.Now(), time.Now())
	if err != nil {
		log.Printf("Failed to insert notification: %v", err)
	}
}
