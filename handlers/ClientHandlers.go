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

func scanClient(row interface{ Scan(dest ...any) error }) (models.Client, error) {
	var client models.Client
	err := row.Scan(&client.ID, &client.UserID, &client.Name, &client.Email, &client.PhoneNo,
		&client.Address, &client.City, &client.PostCode, &client.Notes,
		&client.CreatedAt, &client.UpdatedAt)
	return client, err
}

const clientColumns = `id, user_id, name, email, phone_no, address, city, post_code, notes, created_at, updated_at`

// ListClientsHandler godoc
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Param        search  query  string  false  "Search in name, email and phone"
// @Success      200  {array}  models.Client
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/clients [get]
func ListClientsHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	query := fmt.Sprintf(`SELECT %s FROM clients WHERE user_id = $1`, clientColumns)
	args := []any{user.ID}
	if search := c.Query("search"); search != "" {
		query += ` AND (name ILIKE $2 OR email ILIKE $2 OR phone_no ILIKE $2)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clients", "details": err.Error()})
		return
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan client"})
			return
		}
		clients = append(clients, client)
	}
	c.JSON(http.StatusOK, clients)
}

// GetClientHandler godoc
// @Summary      Get a client
// @Tags         clients
// @Produce      json
// @Param        id  path  int  true  "Client ID"
// @Success      200  {object}  models.Client
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/clients/{id} [get]
func GetClientHandler(c *gin.Context) {
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

	row := db.QueryRow(fmt.Sprintf(`SELECT %s FROM clients WHERE id = $1 AND user_id = $2`, clientColumns), id, user.ID)
	client, err := scanClient(row)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch client"})
		return
	}
	c.JSON(http.StatusOK, client)
}

// CreateClientHandler godoc
// @Summary      Create a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        client  body  models.Client  true  "Client"
// @Success      201  {object}  models.Client
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/clients [post]
func CreateClientHandler(c *gin.Context) {
	db := storage.GetDB()
	user, err := GetSessionUser(c, db)
	if err != nil {
		return
	}

	var req models.Client
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	err = db.QueryRow(`
		INSERT INTO clients (user_id, name, email, phone_no, address, city, post_code, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		user.ID, req.Name, req.Email, req.PhoneNo, req.Address, req.City, req.PostCode, req.Notes,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create client", "details": err.Error()})
		return
	}
	req.UserID = user.ID

	LogActivity(db, models.ActivityLog{
		EventContext: "Clients",
		EventName:    "Create",
		Description:  fmt.Sprintf("Created client %s", req.Name),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusCreated, req)
}

// UpdateClientHandler godoc
// @Summary      Update a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id      path  int            true  "Client ID"
// @Param        client  body  models.Client  true  "Client"
// @Success      200  {object}  models.Client
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/clients/{id} [put]
func UpdateClientHandler(c *gin.Context) {
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

	var req models.Client
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}

	result, err := db.Exec(`
		UPDATE clients
		SET name = $1, email = $2, phone_no = $3, address = $4, city = $5, post_code = $6, notes = $7, updated_at = NOW()
		WHERE id = $8 AND user_id = $9`,
		req.Name, req.Email, req.PhoneNo, req.Address, req.City, req.PostCode, req.Notes, id, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update client"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	req.ID = id
	req.UserID = user.ID
	c.JSON(http.StatusOK, req)
}

// DeleteClientHandler godoc
// @Summary      Delete a client
// @Description  Fails while the client still has projects.
// @Tags         clients
// @Produce      json
// @Param        id  path  int  true  "Client ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/clients/{id} [delete]
func DeleteClientHandler(c *gin.Context) {
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

	var projectCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM project WHERE client_id = $1 AND user_id = $2`, id, user.ID).Scan(&projectCount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check projects"})
		return
	}
	if projectCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("client has %d projects and cannot be deleted", projectCount)})
		return
	}

	result, err := db.Exec(`DELETE FROM clients WHERE id = $1 AND user_id = $2`, id, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete client"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	LogActivity(db, models.ActivityLog{
		EventContext: "Clients",
		EventName:    "Delete",
		Description:  fmt.Sprintf("Deleted client %d", id),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "client deleted"})
}
