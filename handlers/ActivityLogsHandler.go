package handlers

import (
	"drapely/models"
	"drapely/storage"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListActivityLogsHandler godoc
// @Summary      List activity logs
// @Tags         activity
// @Produce      json
// @Param        project_id  query  int     false  "Filter by project"
// @Param        context     query  string  false  "Filter by event context"
// @Success      200  {array}  models.ActivityLog
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/activity-logs [get]
func ListActivityLogsHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	query := `SELECT id, event_context, event_name, description, user_name, host_name, ip_address, project_id, created_at
		FROM activity_logs WHERE user_name = $1`
	args := []any{user.FirstName + " " + user.LastName}

	if projectID := c.Query("project_id"); projectID != "" {
		args = append(args, projectID)
		query += fmt.Sprintf(` AND project_id = $%d`, len(args))
	}
	if eventContext := c.Query("context"); eventContext != "" {
		args = append(args, eventContext)
		query += fmt.Sprintf(` AND event_context = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC LIMIT 200`

	rows, err := db.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch activity logs"})
		return
	}
	defer rows.Close()

	logs := []models.ActivityLog{}
	for rows.Next() {
		var entry models.ActivityLog
		if err := rows.Scan(&entry.ID, &entry.EventContext, &entry.EventName, &entry.Description,
			&entry.UserName, &entry.HostName, &entry.IPAddress, &entry.ProjectID, &entry.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan activity log"})
			return
		}
		logs = append(logs, entry)
	}
	c.JSON(http.StatusOK, logs)
}
