package handlers

import (
	"database/sql"
	"drapely/models"
	"drapely/storage"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// FindConflictingAppointment returns the first booked appointment that
// overlaps [startsAt, endsAt), or nil when the slot is free. An
// overlapping slot is not an error condition, the caller reports it as
// a normal business outcome.
func FindConflictingAppointment(db *sql.DB, userID int, startsAt, endsAt time.Time, excludeID int) (*models.Appointment, error) {
	var a models.Appointment
	err := db.QueryRow(`
		SELECT id, user_id, project_id, client_id, kind, notes, starts_at, ends_at, status, created_at, updated_at
		FROM appointments
		WHERE user_id = $1 AND status = $2 AND id != $3
		  AND starts_at < $4 AND ends_at > $5
		ORDER BY starts_at ASC LIMIT 1`,
		userID, models.AppointmentStatusBooked, excludeID, endsAt, startsAt,
	).Scan(&a.ID, &a.UserID, &a.ProjectID, &a.ClientID, &a.Kind, &a.Notes,
		&a.StartsAt, &a.EndsAt, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAppointmentHandler godoc
// @Summary      Book an appointment
// @Description  Returns 200 with a conflict payload instead of booking when the slot overlaps an existing appointment.
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        appointment  body  models.Appointment  true  "Appointment"
// @Success      201  {object}  models.Appointment
// @Success      200  {object}  object  "Slot conflict"
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/appointments [post]
func CreateAppointmentHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var req models.Appointment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must be after starts_at"})
		return
	}
	if req.Kind == "" {
		req.Kind = "measure"
	}

	conflict, err := FindConflictingAppointment(db, user.ID, req.StartsAt, req.EndsAt, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check availability"})
		return
	}
	if conflict != nil {
		c.JSON(http.StatusOK, gin.H{
			"booked":   false,
			"message":  "slot conflicts with an existing appointment",
			"conflict": conflict,
		})
		return
	}

	req.Status = models.AppointmentStatusBooked
	err = db.QueryRow(`
		INSERT INTO appointments (user_id, project_id, client_id, kind, notes, starts_at, ends_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		user.ID, req.ProjectID, req.ClientID, req.Kind, req.Notes, req.StartsAt, req.EndsAt, req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to book appointment", "details": err.Error()})
		return
	}
	req.UserID = user.ID

	c.JSON(http.StatusCreated, req)
}

// ListAppointmentsHandler godoc
// @Summary      List appointments in a date range
// @Tags         appointments
// @Produce      json
// @Param        from  query  string  false  "RFC3339 range start"
// @Param        to    query  string  false  "RFC3339 range end"
// @Success      200  {array}  models.Appointment
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/appointments [get]
func ListAppointmentsHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	query := `SELECT id, user_id, project_id, client_id, kind, notes, starts_at, ends_at, status, created_at, updated_at
		FROM appointments WHERE user_id = $1`
	args := []any{user.ID}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		args = append(args, t)
		query += fmt.Sprintf(` AND ends_at >= $%d`, len(args))
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		args = append(args, t)
		query += fmt.Sprintf(` AND starts_at <= $%d`, len(args))
	}
	query += ` ORDER BY starts_at ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch appointments"})
		return
	}
	defer rows.Close()

	appointments := []models.Appointment{}
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProjectID, &a.ClientID, &a.Kind, &a.Notes,
			&a.StartsAt, &a.EndsAt, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan appointment"})
			return
		}
		appointments = append(appointments, a)
	}
	c.JSON(http.StatusOK, appointments)
}

// UpdateAppointmentStatusHandler godoc
// @Summary      Complete or cancel an appointment
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        id  path  int  true  "Appointment ID"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/appointments/{id}/status [put]
func UpdateAppointmentStatusHandler(c *gin.Context) {
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
	if req.Status != models.AppointmentStatusCompleted && req.Status != models.AppointmentStatusCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be completed or cancelled"})
		return
	}

	result, err := db.Exec(`
		UPDATE appointments SET status = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = $4`,
		req.Status, id, user.ID, models.AppointmentStatusBooked)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update appointment"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no booked appointment with that id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "appointment updated", "status": req.Status})
}

// RescheduleAppointmentHandler godoc
// @Summary      Move an appointment to a new slot
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        id  path  int  true  "Appointment ID"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/appointments/{id}/reschedule [put]
func RescheduleAppointmentHandler(c *gin.Context) {
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
		StartsAt time.Time `json:"starts_at" binding:"required"`
		EndsAt   time.Time `json:"ends_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must be after starts_at"})
		return
	}

	conflict, err := FindConflictingAppointment(db, user.ID, req.StartsAt, req.EndsAt, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check availability"})
		return
	}
	if conflict != nil {
		c.JSON(http.StatusOK, gin.H{
			"rescheduled": false,
			"message":     "slot conflicts with an existing appointment",
			"conflict":    conflict,
		})
		return
	}

	result, err := db.Exec(`
		UPDATE appointments SET starts_at = $1, ends_at = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4 AND status = $5`,
		req.StartsAt, req.EndsAt, id, user.ID, models.AppointmentStatusBooked)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reschedule"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no booked appointment with that id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rescheduled": true})
}
