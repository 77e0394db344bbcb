package handlers

import (
	"database/sql"
	"drapely/models"
	"drapely/storage"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CalculateFabricNeeds decides how much of a requirement can be drawn
// from leftover pool stock versus freshly ordered. Pure function; the
// caller records the actual draw afterwards via SaveSurfaceFabricUsage.
func CalculateFabricNeeds(fabricID string, requiredAmount float64, pools models.FabricPoolMap, costPerUnit float64) models.FabricNeeds {
	needs := models.FabricNeeds{NeedsOrdering: requiredAmount}
	if requiredAmount <= 0 {
		needs.NeedsOrdering = 0
		return needs
	}

	entry, ok := pools[fabricID]
	if !ok || entry.AvailableLeftover <= 0 {
		return needs
	}

	needs.AvailableFromPool = entry.AvailableLeftover
	if entry.AvailableLeftover >= requiredAmount {
		needs.UsedFromPool = requiredAmount
		needs.NeedsOrdering = 0
	} else {
		needs.UsedFromPool = entry.AvailableLeftover
		needs.NeedsOrdering = requiredAmount - entry.AvailableLeftover
	}
	needs.CostSavings = needs.UsedFromPool * costPerUnit
	return needs
}

// recomputePoolTotals derives the entry totals from its surface list.
// AvailableLeftover is never stored independently of the sums.
func recomputePoolTotals(entry *models.FabricPoolEntry) {
	var ordered, used float64
	for _, s := range entry.Surfaces {
		ordered += s.AmountOrdered
		used += s.AmountUsed
	}
	entry.TotalOrdered = ordered
	entry.TotalUsed = used
	entry.AvailableLeftover = ordered - used
	if entry.AvailableLeftover < 0 {
		entry.AvailableLeftover = 0
	}
}

// ApplySurfaceUsage upserts a surface's usage record into the pool map,
// replacing by surface ID if present, and recomputes the entry totals.
// A pool entry is created lazily on first use of a fabric.
func ApplySurfaceUsage(pools models.FabricPoolMap, surfaceID int, req models.FabricUsageRequest) models.FabricPoolMap {
	if pools == nil {
		pools = models.FabricPoolMap{}
	}

	entry, ok := pools[req.FabricID]
	if !ok {
		entry = models.FabricPoolEntry{
			FabricID:      req.FabricID,
			FabricName:    req.FabricName,
			FabricWidthCm: req.FabricWidthCm,
			Unit:          req.Unit,
			CostPerUnit:   req.CostPerUnit,
		}
	}

	usage := models.SurfaceUsage{
		SurfaceID:     surfaceID,
		SurfaceName:   req.SurfaceName,
		AmountOrdered: req.AmountOrdered,
		AmountUsed:    req.AmountUsed,
		LeftoverMade:  req.AmountOrdered - req.AmountUsed,
		DrawnFromPool: req.DrawnFromPool,
		Orientation:   req.Orientation,
		WidthsOrdered: req.WidthsOrdered,
		UpdatedAt:     time.Now(),
	}

	replaced := false
	for i := range entry.Surfaces {
		if entry.Surfaces[i].SurfaceID == surfaceID {
			entry.Surfaces[i] = usage
			replaced = true
			break
		}
	}
	if !replaced {
		entry.Surfaces = append(entry.Surfaces, usage)
	}

	recomputePoolTotals(&entry)
	pools[req.FabricID] = entry
	return pools
}

// RemoveSurfaceUsage strips a surface from every fabric entry and drops
// entries left with no surfaces.
func RemoveSurfaceUsage(pools models.FabricPoolMap, surfaceID int) models.FabricPoolMap {
	for fabricID, entry := range pools {
		kept := entry.Surfaces[:0]
		for _, s := range entry.Surfaces {
			if s.SurfaceID != surfaceID {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(pools, fabricID)
			continue
		}
		entry.Surfaces = kept
		recomputePoolTotals(&entry)
		pools[fabricID] = entry
	}
	return pools
}

// FetchFabricPools loads the project's pool map from its JSONB column.
func FetchFabricPools(db *sql.DB, projectID int) (models.FabricPoolMap, error) {
	var raw []byte
	err := db.QueryRow(`SELECT COALESCE(fabric_pools, '{}') FROM project WHERE id = $1`, projectID).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("project %d not found", projectID)
		}
		return nil, fmt.Errorf("failed to load fabric pools: %w", err)
	}

	pools := models.FabricPoolMap{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &pools); err != nil {
			return nil, fmt.Errorf("failed to decode fabric pools: %w", err)
		}
	}
	return pools, nil
}

// persistFabricPools writes the whole map back. Read-modify-write with
// last-write-wins: edits come from a single signed-in user in practice,
// so there is no optimistic locking on the document.
func persistFabricPools(db *sql.DB, projectID int, pools models.FabricPoolMap) error {
	raw, err := json.Marshal(pools)
	if err != nil {
		return fmt.Errorf("failed to encode fabric pools: %w", err)
	}
	res, err := db.Exec(`UPDATE project SET fabric_pools = $1, updated_at = $2 WHERE id = $3`, raw, time.Now(), projectID)
	if err != nil {
		return fmt.Errorf("failed to persist fabric pools: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("project %d not found", projectID)
	}
	return nil
}

// UpdatePool fetches the project's pool map, upserts the surface usage
// and persists the map back wholesale.
func UpdatePool(db *sql.DB, projectID, surfaceID int, req models.FabricUsageRequest) (models.FabricPoolMap, error) {
	pools, err := FetchFabricPools(db, projectID)
	if err != nil {
		return nil, err
	}
	pools = ApplySurfaceUsage(pools, surfaceID, req)
	if err := persistFabricPools(db, projectID, pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// RemoveSurfaceFromPool removes the surface's usage from every fabric
// entry in the project and persists the result.
func RemoveSurfaceFromPool(db *sql.DB, projectID, surfaceID int) (models.FabricPoolMap, error) {
	pools, err := FetchFabricPools(db, projectID)
	if err != nil {
		return nil, err
	}
	pools = RemoveSurfaceUsage(pools, surfaceID)
	if err := persistFabricPools(db, projectID, pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// GetFabricPoolsHandler godoc
// @Summary      Get the fabric pool ledger for a project
// @Tags         fabric-pool
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/fabric-pools [get]
func GetFabricPoolsHandler(c *gin.Context) {
	db := storage.GetDB()
	if _, err := GetSessionUser(c, db); err != nil {
		return
	}

	projectID, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}

	pools, err := FetchFabricPools(db, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pools)
}

// CalculateFabricNeedsHandler godoc
// @Summary      Compute pool draw versus fresh ordering for a requirement
// @Tags         fabric-pool
// @Accept       json
// @Produce      json
// @Param        project_id  path  int     true  "Project ID"
// @Param        body        body  object  true  "fabric_id, required_amount, cost_per_unit"
// @Success      200  {object}  models.FabricNeeds
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/fabric-needs [post]
func CalculateFabricNeedsHandler(c *gin.Context) {
	db := storage.GetDB()
	if _, err := GetSessionUser(c, db); err != nil {
		return
	}

	projectID, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}

	var req struct {
		FabricID       string  `json:"fabric_id" binding:"required"`
		RequiredAmount float64 `json:"required_amount" binding:"required"`
		CostPerUnit    float64 `json:"cost_per_unit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.RequiredAmount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "required_amount must be >= 0"})
		return
	}

	pools, err := FetchFabricPools(db, projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, CalculateFabricNeeds(req.FabricID, req.RequiredAmount, pools, req.CostPerUnit))
}

// SaveSurfaceFabricUsageHandler godoc
// @Summary      Save a surface's fabric usage into the project pool
// @Tags         fabric-pool
// @Accept       json
// @Produce      json
// @Param        project_id  path  int                        true  "Project ID"
// @Param        surface_id  path  int                        true  "Surface ID"
// @Param        body        body  models.FabricUsageRequest  true  "Usage"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/surfaces/{surface_id}/fabric-usage [put]
func SaveSurfaceFabricUsageHandler(c *gin.Context) {
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

	var req models.FabricUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.AmountOrdered < 0 || req.AmountUsed < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amounts must be >= 0"})
		return
	}

	pools, err := UpdatePool(db, projectID, surfaceID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	LogActivity(db, models.ActivityLog{
		EventContext: "Fabric Pool",
		EventName:    "Update",
		Description:  fmt.Sprintf("Saved fabric usage for surface %d (fabric %s)", surfaceID, req.FabricID),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
		ProjectID:    projectID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "fabric usage saved", "pools": pools})
}

// RemoveSurfaceFromPoolHandler godoc
// @Summary      Remove a surface's usage from every fabric pool entry
// @Tags         fabric-pool
// @Produce      json
// @Param        project_id  path  int  true  "Project ID"
// @Param        surface_id  path  int  true  "Surface ID"
// @Success      200  {object}  object
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/surfaces/{surface_id}/fabric-usage [delete]
func RemoveSurfaceFromPoolHandler(c *gin.Context) {
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

	pools, err := RemoveSurfaceFromPool(db, projectID, surfaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	LogActivity(db, models.ActivityLog{
		EventContext: "Fabric Pool",
		EventName:    "Delete",
		Description:  fmt.Sprintf("Removed surface %d from fabric pools", surfaceID),
		UserName:     user.FirstName + " " + user.LastName,
		IPAddress:    c.ClientIP(),
		ProjectID:    projectID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "surface removed from pools", "pools": pools})
}
