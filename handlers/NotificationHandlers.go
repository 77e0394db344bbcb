package handlers

import (
	"drapely/models"
	"drapely/storage"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListNotificationsHandler godoc
// @Summary      List notifications for the current user
// @Tags         notifications
// @Produce      json
// @Param        unread  query  bool  false  "Only unread notifications"
// @Success      200  {array}  models.Notification
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/notifications [get]
func ListNotificationsHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	query := `SELECT id, user_id, message, status, action, created_at, updated_at
		FROM notifications WHERE user_id = $1`
	args := []any{user.ID}
	if c.Query("unread") == "true" {
		query += ` AND status = 'unread'`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := db.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Status, &n.Action, &n.CreatedAt, &n.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification"})
			return
		}
		notifications = append(notifications, n)
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationReadHandler godoc
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Param        id  path  int  true  "Notification ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/notifications/{id}/read [put]
func MarkNotificationReadHandler(c *gin.Context) {
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
		UPDATE notifications SET status = 'read', updated_at = NOW()
		WHERE id = $1 AND user_id = $2`, id, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked read"})
}

// MarkAllNotificationsReadHandler godoc
// @Summary      Mark all notifications as read
// @Tags         notifications
// @Produce      json
// @Success      200  {object}  object
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/notifications [put]
func MarkAllNotificationsReadHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	if _, err := db.Exec(`
		UPDATE notifications SET status = 'read', updated_at = NOW()
		WHERE user_id = $1 AND status = 'unread'`, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all notifications marked read"})
}
