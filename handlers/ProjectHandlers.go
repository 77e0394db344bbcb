package handlers

import (
	"database/sql"
	"drapely/models"
	"drapely/storage"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Project statuses.
const (
	ProjectStatusMeasuring = "measuring"
	ProjectStatusQuoted    = "quoted"
	ProjectStatusOrdered   = "ordered"
	ProjectStatusFitted    = "fitted"
	ProjectStatusClosed    = "closed"
)

// ListProjectsHandler godoc
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Param        client_id  query  int     false  "Filter by client"
// @Param        status     query  string  false  "Filter by status"
// @Success      200  {array}  models.Project
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/projects [get]
func ListProjectsHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	query := `SELECT id, user_id, client_id, name, status, site_address, created_at, updated_at
		FROM project WHERE user_id = $1`
	args := []any{user.ID}
	if clientID := c.Query("client_id"); clientID != "" {
		args = append(args, clientID)
		query += fmt.Sprintf(` AND client_id = $%d`, len(args))
	}
	if status := c.Query("status"); status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects", "details": err.Error()})
		return
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.ClientID, &p.Name, &p.Status, &p.SiteAddress, &p.CreatedAt, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan project"})
			return
		}
		projects = append(projects, p)
	}
	c.JSON(http.StatusOK, projects)
}

// CreateProjectHandler godoc
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        project  body  models.Project  true  "Project"
// @Success      201  {object}  models.Project
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/projects [post]
func CreateProjectHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var req models.Project
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	if req.Name == "" || req.ClientID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and client_id are required"})
		return
	}
	if req.Status == "" {
		req.Status = ProjectStatusMeasuring
	}

	var clientExists bool
	if err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1 AND user_id = $2)`, req.ClientID, user.ID).Scan(&clientExists); err != nil || !clientExists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client not found"})
		return
	}

	err = db.QueryRow(`
		INSERT INTO project (user_id, client_id, name, status, site_address, fabric_pools, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '{}'::jsonb, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		user.ID, req.ClientID, req.Name, req.Status, req.SiteAddress,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project", "details": err.Error()})
		return
	}
	req.UserID = user.ID

	LogActivity(db, models.ActivityLog{
		EventContext: "Projects",
		EventName:    "Create",
		Description:  fmt.Sprintf("Created project %s", req.Name),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
		ProjectID:    req.ID,
	})

	c.JSON(http.StatusCreated, req)
}

// UpdateProjectHandler godoc
// @Summary      Update a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        project_id  path  int             true  "Project ID"
// @Param        project     body  models.Project  true  "Project"
// @Success      200  {object}  models.Project
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id} [put]
func UpdateProjectHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	id, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}

	var req models.Project
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}

	result, err := db.Exec(`
		UPDATE project SET name = $1, status = $2, site_address = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5`,
		req.Name, req.Status, req.SiteAddress, id, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	req.ID = id
	req.UserID = user.ID
	c.JSON(http.StatusOK, req)
}

// DeleteProjectHandler godoc
// @Summary      Delete a project with its surfaces and fabric pools
// @Tags         projects
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id} [delete]
func DeleteProjectHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	id, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}

	tx, err := db.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start transaction"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM surfaces WHERE project_id = $1`, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete surfaces"})
		return
	}
	result, err := tx.Exec(`DELETE FROM project WHERE id = $1 AND user_id = $2`, id, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to commit"})
		return
	}

	LogActivity(db, models.ActivityLog{
		EventContext: "Projects",
		EventName:    "Delete",
		Description:  fmt.Sprintf("Deleted project %d", id),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
		ProjectID:    id,
	})

	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

// requireProject verifies the project belongs to the user.
func requireProject(db *sql.DB, projectID, userID int) error {
	var exists bool
	if err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM project WHERE id = $1 AND user_id = $2)`, projectID, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return sql.ErrNoRows
	}
	return nil
}

// ListSurfacesHandler godoc
// @Summary      List the surfaces of a project
// @Tags         surfaces
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {array}  models.Surface
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/surfaces [get]
func ListSurfacesHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	projectID, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}
	if err := requireProject(db, projectID, user.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	rows, err := db.Query(`
		SELECT id, project_id, name, room_name, product_type, system_type, width_cm, drop_cm, fabric_id, fabric_name, created_at, updated_at
		FROM surfaces WHERE project_id = $1 ORDER BY id ASC`, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch surfaces"})
		return
	}
	defer rows.Close()

	surfaces := []models.Surface{}
	for rows.Next() {
		var s models.Surface
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.RoomName, &s.ProductType, &s.SystemType,
			&s.WidthCm, &s.DropCm, &s.FabricID, &s.FabricName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan surface"})
			return
		}
		surfaces = append(surfaces, s)
	}
	c.JSON(http.StatusOK, surfaces)
}

// CreateSurfaceHandler godoc
// @Summary      Add a surface to a project
// @Tags         surfaces
// @Accept       json
// @Produce      json
// @Param        project_id  path  int             true  "Project ID"
// @Param        surface     body  models.Surface  true  "Surface"
// @Success      201  {object}  models.Surface
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/surfaces [post]
func CreateSurfaceHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	projectID, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}
	if err := requireProject(db, projectID, user.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	var req models.Surface
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.WidthCm <= 0 || req.DropCm <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width_cm and drop_cm must be positive"})
		return
	}

	err = db.QueryRow(`
		INSERT INTO surfaces (project_id, name, room_name, product_type, system_type, width_cm, drop_cm, fabric_id, fabric_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		projectID, req.Name, req.RoomName, req.ProductType, req.SystemType,
		req.WidthCm, req.DropCm, req.FabricID, req.FabricName,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create surface", "details": err.Error()})
		return
	}
	req.ProjectID = projectID

	c.JSON(http.StatusCreated, req)
}

// UpdateSurfaceHandler godoc
// @Summary      Update a surface
// @Tags         surfaces
// @Accept       json
// @Produce      json
// @Param        project_id  path  int             true  "Project ID"
// @Param        surface_id  path  int             true  "Surface ID"
// @Param        surface     body  models.Surface  true  "Surface"
// @Success      200  {object}  models.Surface
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/surfaces/{surface_id} [put]
func UpdateSurfaceHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	projectID, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}
	surfaceID, err := strconv.Atoi(c.Param("surface_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid surface_id"})
		return
	}
	if err := requireProject(db, projectID, user.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	var req models.Surface
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}

	result, err := db.Exec(`
		UPDATE surfaces
		SET name = $1, room_name = $2, product_type = $3, system_type = $4,
			width_cm = $5, drop_cm = $6, fabric_id = $7, fabric_name = $8, updated_at = NOW()
		WHERE id = $9 AND project_id = $10`,
		req.Name, req.RoomName, req.ProductType, req.SystemType,
		req.WidthCm, req.DropCm, req.FabricID, req.FabricName, surfaceID, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update surface"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "surface not found"})
		return
	}

	req.ID = surfaceID
	req.ProjectID = projectID
	c.JSON(http.StatusOK, req)
}

// DeleteSurfaceHandler godoc
// @Summary      Delete a surface and remove its fabric pool usage
// @Tags         surfaces
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Param        surface_id  path  int  true  "Surface ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/surfaces/{surface_id} [delete]
func DeleteSurfaceHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	projectID, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}
	surfaceID, err := strconv.Atoi(c.Param("surface_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid surface_id"})
		return
	}
	if err := requireProject(db, projectID, user.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	result, err := db.Exec(`DELETE FROM surfaces WHERE id = $1 AND project_id = $2`, surfaceID, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete surface"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "surface not found"})
		return
	}

	// deleting a surface also releases its fabric usage back to the pools
	if _, err := RemoveSurfaceFromPool(db, projectID, surfaceID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "surface deleted but pool cleanup failed", "details": err.Error()})
		return
	}

	LogActivity(db, models.ActivityLog{
		EventContext: "Surfaces",
		EventName:    "Delete",
		Description:  fmt.Sprintf("Deleted surface %d and released its fabric usage", surfaceID),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
		ProjectID:    projectID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "surface deleted"})
}
