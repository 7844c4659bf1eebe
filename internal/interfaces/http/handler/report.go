package handler

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	appreport "github.com/pos/backend/internal/application/report"
	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/infrastructure/storage"
)

// ReportReader builds reports and dashboard figures
type ReportReader interface {
	BuildReport(ctx context.Context, q appreport.SalesReportQuery) (report.SalesReport, error)
	DailySummaries(ctx context.Context, start, end time.Time) ([]appreport.DailySummaryResponse, error)
	Dashboard(ctx context.Context, date time.Time) (*appreport.DashboardFigures, error)
	Location() *time.Location
}

// ReportExporter renders a report as a file
type ReportExporter interface {
	Export(ctx context.Context, rep report.SalesReport, mode appreport.Mode, format appreport.Format, archive bool) (*appreport.ExportFile, error)
}

// ReportHandler serves sales reports, exports and the dashboard
type ReportHandler struct {
	BaseHandler
	reports  ReportReader
	exporter ReportExporter
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports ReportReader, exporter ReportExporter) *ReportHandler {
	return &ReportHandler{reports: reports, exporter: exporter}
}

// ArchivedExportResponse is returned instead of the file when ?archive=true
type ArchivedExportResponse struct {
	Filename string                 `json:"filename"`
	Size     int                    `json:"size"`
	Archive  storage.ArchivedExport `json:"archive"`
}

// query reads start, end and shift. Dates are calendar days in the report timezone.
func (h *ReportHandler) query(c *gin.Context) (appreport.SalesReportQuery, bool) {
	loc := h.reports.Location()
	start, ok := h.parseDate(c, "start", loc)
	if !ok {
		return appreport.SalesReportQuery{}, false
	}
	end, ok := h.parseDate(c, "end", loc)
	if !ok {
		return appreport.SalesReportQuery{}, false
	}
	shift, err := report.ParseShift(c.Query("shift"))
	if err != nil {
		h.HandleError(c, err)
		return appreport.SalesReportQuery{}, false
	}
	return appreport.SalesReportQuery{Start: start, End: end, Shift: shift}, true
}

// Sales returns the aggregated sales report
// GET /reports/sales?start=2026-01-01&end=2026-01-31&shift=SHIFT1
func (h *ReportHandler) Sales(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	rep, err := h.reports.BuildReport(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rep)
}

// Export downloads the report as CSV or XLSX. With archive=true the file is
// stored in object storage and a download link is returned instead.
// GET /reports/sales/export?start=...&end=...&shift=...&mode=detail&format=xlsx
func (h *ReportHandler) Export(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	mode, err := appreport.ParseMode(c.Query("mode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	format, err := appreport.ParseFormat(c.Query("format"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	archive, _ := strconv.ParseBool(c.Query("archive"))

	rep, err := h.reports.BuildReport(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), rep, mode, format, archive)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if file.Archive != nil {
		h.Success(c, ArchivedExportResponse{
			Filename: file.Filename,
			Size:     len(file.Data),
			Archive:  *file.Archive,
		})
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// DailySummary returns stored rollup rows
// GET /reports/daily-summary?start=...&end=...
func (h *ReportHandler) DailySummary(c *gin.Context) {
	loc := h.reports.Location()
	start, ok := h.parseDate(c, "start", loc)
	if !ok {
		return
	}
	end, ok := h.parseDate(c, "end", loc)
	if !ok {
		return
	}
	rows, err := h.reports.DailySummaries(c.Request.Context(), start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, rows, len(rows))
}

// Dashboard returns the headline figures for ?date=, default today
// GET /dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	date, ok := h.parseDate(c, "date", h.reports.Location())
	if !ok {
		return
	}
	figures, err := h.reports.Dashboard(c.Request.Context(), date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, figures)
}
