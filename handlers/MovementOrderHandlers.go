package handlers

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log"
	"net/http"

	"backend/models"
	"backend/utils"
	"backend/workflow"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// addLabel draws text onto an image using the inconsolata face.
func addLabel(img *image.RGBA, x, y int, label string, bold bool) {
	face := inconsolata.Regular8x16
	if bold {
		face = inconsolata.Bold8x16
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{0, 0, 0, 255}),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	d.DrawString(label)
}

// gatePassPayload is the machine-readable content of the QR code the gate
// scans against an approved indent.
func gatePassPayload(ind *models.Indent) string {
	return fmt.Sprintf("INDENT:%d|%s|%s>%s|%s",
		ind.SerialNumber, ind.TypeOfIndent, ind.StartLocation, ind.EndLocation,
		ind.TransportOperator)
}

// gatePassImage renders the QR with the serial number printed beneath it.
func gatePassImage(ind *models.Indent) (*image.RGBA, error) {
	qr, err := qrcode.New(gatePassPayload(ind), qrcode.Medium)
	if err != nil {
		return nil, err
	}
	qrImg := qr.Image(256)

	const labelHeight = 28
	bounds := qrImg.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()+labelHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, qrImg, image.Point{}, draw.Over)

	label := fmt.Sprintf("INDENT #%d", ind.SerialNumber)
	addLabel(canvas, bounds.Dx()/2-len(label)*4, bounds.Dy()+18, label, true)
	return canvas, nil
}

// GateQRCode godoc
// @Summary      Gate-pass QR for an approved indent
// @Tags         movement-orders
// @Produce      image/jpeg
// @Param        id   path      string  true  "Indent ID"
// @Success      200  {file}    file    "JPEG image"
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/indents/{id}/qr [get]
func GateQRCode(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		ind, err := engine.Get(ctx, actor, c.Param("id"))
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		if ind.Status != models.StatusApproved {
			c.JSON(http.StatusConflict, gin.H{"error": "gate pass is only issued for approved indents"})
			return
		}

		canvas, err := gatePassImage(ind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate QR code: " + err.Error()})
			return
		}
		c.Header("Content-Type", "image/jpeg")
		if err := jpeg.Encode(c.Writer, canvas, &jpeg.Options{Quality: 90}); err != nil {
			log.Printf("Error encoding gate pass JPEG: %v", err)
		}
	}
}

// MovementOrderPDF godoc
// @Summary      Movement order PDF for an approved indent
// @Description  Printable order carrying the route, operator, approval trail and gate-pass QR
// @Tags         movement-orders
// @Produce      application/pdf
// @Param        id   path      string  true  "Indent ID"
// @Success      200  {file}    file    "PDF document"
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/indents/{id}/movement-order [get]
func MovementOrderPDF(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		ind, err := engine.Get(ctx, actor, c.Param("id"))
		if err != nil {
			respondWorkflowError(c, err)
			return
		}
		if ind.Status != models.StatusApproved {
			c.JSON(http.StatusConflict, gin.H{"error": "movement order is only issued for approved indents"})
			return
		}

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetMargins(10, 10, 10)

		pdf.SetFont("Arial", "B", 18)
		pdf.Cell(190, 10, "VEHICLE MOVEMENT ORDER")
		pdf.Ln(12)

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(95, 6, fmt.Sprintf("Indent No: %d", ind.SerialNumber))
		pdf.Cell(95, 6, fmt.Sprintf("Type: %s", ind.TypeOfIndent))
		pdf.Ln(8)

		pdf.SetFont("Arial", "", 10)
		pdf.Cell(95, 6, fmt.Sprintf("Requestor: %s", ind.RequestorName))
		pdf.Cell(95, 6, fmt.Sprintf("Transport Operator: %s", ind.TransportOperator))
		pdf.Ln(6)
		pdf.Cell(95, 6, fmt.Sprintf("From: %s", ind.StartLocation))
		pdf.Cell(95, 6, fmt.Sprintf("To: %s", ind.EndLocation))
		pdf.Ln(6)
		pdf.Cell(95, 6, fmt.Sprintf("Start: %s", ind.StartTime.Format("02-Jan-2006 15:04")))
		pdf.Cell(95, 6, fmt.Sprintf("End: %s", ind.EndTime.Format("02-Jan-2006 15:04")))
		pdf.Ln(10)

		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(45, 8, "Stage", "1", 0, "L", true, 0, "")
		pdf.CellFormat(30, 8, "Decision", "1", 0, "C", true, 0, "")
		pdf.CellFormat(60, 8, "By", "1", 0, "L", true, 0, "")
		pdf.CellFormat(55, 8, "On", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, e := range ind.ApprovalLogs {
			pdf.CellFormat(45, 7, string(e.Stage), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, string(e.Decision), "1", 0, "C", false, 0, "")
			pdf.CellFormat(60, 7, e.ApproverName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(55, 7, e.Timestamp.Format("02-Jan-2006 15:04"), "1", 1, "C", false, 0, "")
		}
		pdf.Ln(8)

		// Gate-pass QR, bottom left.
		qrPNG, err := qrcode.Encode(gatePassPayload(ind), qrcode.Medium, 256)
		if err == nil {
			opts := gofpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader("gatepass", opts, bytes.NewReader(qrPNG))
			pdf.ImageOptions("gatepass", 10, pdf.GetY(), 40, 40, false, opts, 0, "")
		}

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=movement_order_%d.pdf", ind.SerialNumber))
		if err := pdf.Output(c.Writer); err != nil {
			log.Printf("Error writing movement order PDF: %v", err)
		}
	}
}
