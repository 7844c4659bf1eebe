package report

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/storage"
	"github.com/pos/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Mode selects the export layout
type Mode string

const (
	ModeSummary Mode = "summary"
	ModeDetail  Mode = "detail"
)

// Format selects the export file type
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// SheetName is the single worksheet of an xlsx export
	SheetName = "Report"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	summaryHeader = []string{"Item Name", "Quantity", "Revenue"}
	detailHeader  = []string{"S.No", "Item Name", "Quantity", "Unit Price", "Subtotal", "Payment Method", "Time", "Date"}
)

// ParseMode parses an export mode; empty means summary
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeSummary, nil
	case ModeSummary, ModeDetail:
		return m, nil
	}
	return "", shared.NewInputError("unknown export mode %q", raw)
}

// ParseFormat parses an export format; empty means csv
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", shared.NewInputError("unknown export format %q", raw)
}

// Archiver stores a finished export and returns where to fetch it
type Archiver interface {
	Archive(ctx context.Context, filename string, data []byte, contentType string) (storage.ArchivedExport, error)
}

// ExportFile is a rendered export
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Archive     *storage.ArchivedExport
}

// Exporter renders sales reports as CSV or XLSX
type Exporter struct {
	localizer report.Localizer
	loc       *time.Location
	archiver  Archiver
	metrics   *telemetry.POSMetrics
}

// NewExporter creates an Exporter. Times in detail rows are shown in loc.
func NewExporter(localizer report.Localizer, loc *time.Location) *Exporter {
	if localizer == nil {
		localizer = report.IdentityLocalizer{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{localizer: localizer, loc: loc}
}

// SetArchiver enables archiving exports to object storage
func (e *Exporter) SetArchiver(a Archiver) {
	e.archiver = a
}

// SetMetrics sets the business metrics recorder
func (e *Exporter) SetMetrics(m *telemetry.POSMetrics) {
	e.metrics = m
}

// Filename returns sales-report-<start>-to-<end>.<ext>
func Filename(rep report.SalesReport, format Format) string {
	return fmt.Sprintf("sales-report-%s-to-%s.%s", rep.Start, rep.End, format)
}

// Export renders the report and, when asked, archives the file.
func (e *Exporter) Export(ctx context.Context, rep report.SalesReport, mode Mode, format Format, archive bool) (*ExportFile, error) {
	file := &ExportFile{Filename: Filename(rep, format)}

	var err error
	switch format {
	case FormatCSV:
		file.ContentType = ContentTypeCSV
		file.Data, err = e.ExportCSV(rep, mode)
	case FormatXLSX:
		file.ContentType = ContentTypeXLSX
		file.Data, err = e.ExportXLSX(rep, mode)
	default:
		err = shared.NewInputError("unknown export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	e.metrics.RecordExport(ctx, string(format))

	if archive {
		if e.archiver == nil {
			return nil, shared.NewInputError("export archive is not configured")
		}
		archived, err := e.archiver.Archive(ctx, file.Filename, file.Data, file.ContentType)
		if err != nil {
			return nil, shared.NewDependencyError("archive export", err)
		}
		logger.L(ctx).Info("Report export archived",
			zap.String("key", archived.Key),
			zap.Time("expires_at", archived.ExpiresAt),
		)
		file.Archive = &archived
	}
	return file, nil
}

// ExportCSV renders UTF-8 with a byte order mark, every field quoted and
// rows separated by a bare newline.
func (e *Exporter) ExportCSV(rep report.SalesReport, mode Mode) ([]byte, error) {
	header, rows, err := e.table(rep, mode)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	writeCSVRow(&buf, header)
	for _, row := range rows {
		buf.WriteByte('\n')
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellString(v)
		}
		writeCSVRow(&buf, cells)
	}
	return buf.Bytes(), nil
}

// ExportXLSX renders the same columns into a single "Report" sheet.
func (e *Exporter) ExportXLSX(rep report.SalesReport, mode Mode) ([]byte, error) {
	header, rows, err := e.table(rep, mode)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("money style: %w", err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for r, row := range rows {
		values := make([]any, len(row))
		for c, v := range row {
			values[c] = xlsxValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+2, err)
		}
		for c, v := range row {
			if _, ok := v.(decimal.Decimal); !ok {
				continue
			}
			money, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStyle(SheetName, money, money, moneyStyle); err != nil {
				return nil, fmt.Errorf("style row %d: %w", r+2, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// table returns the header and typed rows for a mode. Cells are string,
// int or decimal.Decimal.
func (e *Exporter) table(rep report.SalesReport, mode Mode) ([]string, [][]any, error) {
	switch mode {
	case ModeSummary, "":
		rows := make([][]any, len(rep.ItemWiseSales))
		for i, item := range rep.ItemWiseSales {
			rows[i] = []any{e.localizer.Localize(item.Name), item.Quantity, item.Revenue}
		}
		return summaryHeader, rows, nil
	case ModeDetail:
		rows := make([][]any, len(rep.Lines))
		for i, line := range rep.Lines {
			at := line.CreatedAt.In(e.loc)
			rows[i] = []any{
				line.Sequence,
				e.localizer.Localize(line.ItemName),
				line.Quantity,
				line.UnitPrice,
				line.Subtotal,
				string(line.PaymentMethod),
				at.Format("15:04"),
				at.Format(time.DateOnly),
			}
		}
		return detailHeader, rows, nil
	}
	return nil, nil, shared.NewInputError("unknown export mode %q", mode)
}

func writeCSVRow(buf *bytes.Buffer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(c, `"`, `""`))
		buf.WriteByte('"')
	}
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case decimal.Decimal:
		return x.StringFixed(2)
	}
	return fmt.Sprint(v)
}

// xlsxValue keeps numbers numeric in the workbook.
func xlsxValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.Round(2).InexactFloat64()
	}
	return v
}
