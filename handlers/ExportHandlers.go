package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"backend/models"
	"backend/utils"
	"backend/workflow"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportIndentsExcel godoc
// @Summary      Export the indent register as an Excel workbook
// @Description  Exports every indent visible to the caller, including the approval trail
// @Tags         export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status  query  string  false  "Filter by status"
// @Success      200  {file}  file  "xlsx workbook"
// @Router       /api/indents/export [get]
func ExportIndentsExcel(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity not resolved"})
			return
		}
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()
		indents, err := engine.List(ctx, actor, models.IndentStatus(c.Query("status")))
		if err != nil {
			respondWorkflowError(c, err)
			return
		}

		f := excelize.NewFile()
		const sheet = "Indents"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"Serial", "Status", "Type", "Requestor", "Start", "End",
			"From", "To", "Transport Operator", "Approvals", "Reason"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		headerStyle, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
		})
		endHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheet, "A1", endHeader, headerStyle)

		for row, ind := range indents {
			values := []interface{}{
				ind.SerialNumber,
				string(ind.Status),
				string(ind.TypeOfIndent),
				ind.RequestorName,
				ind.StartTime.Format("02-Jan-2006 15:04"),
				ind.EndTime.Format("02-Jan-2006 15:04"),
				ind.StartLocation,
				ind.EndLocation,
				ind.TransportOperator,
				formatApprovalTrail(ind.ApprovalLogs),
				ind.Reason,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, v)
			}
		}
		f.SetColWidth(sheet, "A", "K", 18)

		filename := fmt.Sprintf("indents_%s.xlsx", time.Now().Format("20060102"))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment;filename="+filename)
		if err := f.Write(c.Writer); err != nil {
			log.Printf("Error writing excel export: %v", err)
		}
	}
}

func formatApprovalTrail(logs []models.ApprovalLogEntry) string {
	trail := ""
	for i, e := range logs {
		if i > 0 {
			trail += "; "
		}
		trail += fmt.Sprintf("%s %s by %s on %s",
			e.Stage, e.Decision, e.ApproverName, e.Timestamp.Format("02-Jan-2006"))
	}
	return trail
}
