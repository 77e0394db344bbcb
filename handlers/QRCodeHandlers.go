package handlers

import (
	"bytes"
	"drapely/models"
	"drapely/storage"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

func drawLabel(img *image.RGBA, x, y int, label string, bold bool) {
	face := inconsolata.Regular8x16
	col := color.RGBA{0, 0, 0, 255}
	if bold {
		face = inconsolata.Bold8x16
		col = color.RGBA{30, 30, 30, 255}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	d.DrawString(label)
}

// GenerateSurfaceQRLabelHandler godoc
// @Summary      Generate a fitting label for a surface as JPEG
// @Description  QR payload carries surface and project IDs for scanning at the workroom. Text block below gives fitters the room and measurements.
// @Tags         qr
// @Produce      image/jpeg
// @Param        project_id  path  int  true  "Project ID"
// @Param        surface_id  path  int  true  "Surface ID"
// @Success      200  {file}  file
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/projects/{project_id}/surfaces/{surface_id}/label [get]
func GenerateSurfaceQRLabelHandler(c *gin.Context) {
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

	var s models.Surface
	var projectName string
	err = db.QueryRow(`
		SELECT s.id, s.project_id, s.name, s.room_name, s.product_type, s.width_cm, s.drop_cm, s.fabric_name, p.name
		FROM surfaces s
		JOIN project p ON s.project_id = p.id
		WHERE s.id = $1 AND s.project_id = $2`, surfaceID, projectID,
	).Scan(&s.ID, &s.ProjectID, &s.Name, &s.RoomName, &s.ProductType, &s.WidthCm, &s.DropCm, &s.FabricName, &projectName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "surface not found"})
		return
	}

	payload, err := json.Marshal(gin.H{
		"surface_id": s.ID,
		"project_id": s.ProjectID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build QR payload"})
		return
	}

	qr, err := qrcode.New(string(payload), qrcode.Medium)
	if err != nil {
		c.String(http.StatusInternalServerError, "QR code generation failed")
		return
	}
	qrImg := qr.Image(512)

	qrSize := qrImg.Bounds().Dy()
	padding := 30
	lineHeight := 28
	textAreaHeight := 5*lineHeight + padding
	totalHeight := qrSize + padding + textAreaHeight

	combined := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
	draw.Draw(combined, combined.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(combined, image.Rect(0, 0, qrSize, qrSize), qrImg, image.Point{}, draw.Src)

	separatorY := qrSize + padding/2
	for x := 0; x < qrSize; x++ {
		combined.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
	}

	truncate := func(s string, max int) string {
		if len(s) > max {
			return s[:max-3] + "..."
		}
		return s
	}

	startY := qrSize + padding + lineHeight
	xPos := 20

	drawLabel(combined, xPos, startY, "Surface:", true)
	drawLabel(combined, xPos+120, startY, truncate(s.Name, 30), false)

	drawLabel(combined, xPos, startY+lineHeight, "Room:", true)
	drawLabel(combined, xPos+120, startY+lineHeight, truncate(s.RoomName, 30), false)

	drawLabel(combined, xPos, startY+2*lineHeight, "Project:", true)
	drawLabel(combined, xPos+120, startY+2*lineHeight, truncate(projectName, 30), false)

	drawLabel(combined, xPos, startY+3*lineHeight, "Size:", true)
	drawLabel(combined, xPos+120, startY+3*lineHeight,
		strconv.FormatFloat(s.WidthCm, 'f', 1, 64)+" x "+strconv.FormatFloat(s.DropCm, 'f', 1, 64)+" cm", false)

	drawLabel(combined, xPos, startY+4*lineHeight, "Fabric:", true)
	drawLabel(combined, xPos+120, startY+4*lineHeight, truncate(s.FabricName, 30), false)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, combined, nil); err != nil {
		c.String(http.StatusInternalServerError, "JPEG encoding failed")
		return
	}

	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}
