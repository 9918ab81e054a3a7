package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/statuscert/constants"
	"github.com/joseph-ayodele/statuscert/internal/common"
	"github.com/joseph-ayodele/statuscert/internal/entity"
)

// Sheet names in the exported workbook.
const (
	SheetReports = "Reports"
	SheetItems   = "Items"
	SheetIssues  = "Issues"
)

// Report is one analyzed file. Result is nil when the analysis failed.
type Report struct {
	File        string
	PropertyRef string
	Result      *entity.ExtractionResult
	Err         error
}

// Service produces XLSX bytes summarizing a batch of reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

var (
	reportHeaders = []string{"File", "Property", "Risk Rating", "Total Items", "Verified", "Warnings", "Missing", "Issues", "Pages", "Used OCR", "Status"}
	itemHeaders   = []string{"File", "Section", "Item", "Value", "Status", "Confidence", "Page", "Quote", "Reason"}
	issueHeaders  = []string{"File", "#", "Severity", "Title", "Finding", "Regulation", "Recommendation", "Page", "Quote"}
)

// ReportsXLSX returns a workbook with one row per report on Reports, one row
// per item on Items and one row per issue on Issues.
func (s *Service) ReportsXLSX(ctx context.Context, reports []Report) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetReports); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetItems, SheetIssues} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
	}
	writeRow(f, SheetReports, 1, toAny(reportHeaders))
	writeRow(f, SheetItems, 1, toAny(itemHeaders))
	writeRow(f, SheetIssues, 1, toAny(issueHeaders))

	itemRow, issueRow := 2, 2
	for i, rep := range reports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		writeRow(f, SheetReports, i+2, reportRow(rep))
		if rep.Result == nil {
			continue
		}
		for _, key := range sectionOrder(rep.Result.Sections) {
			sec := rep.Result.Sections[key]
			title := sec.Title
			if title == "" {
				title = constants.SectionTitle(key)
			}
			for _, it := range sec.Items {
				writeRow(f, SheetItems, itemRow, []any{
					rep.File, title, it.Label, it.Value, string(it.Status), string(it.Confidence),
					pageCell(it.Page), strCell(it.Quote), it.Reason,
				})
				itemRow++
			}
		}
		for _, is := range rep.Result.Issues {
			writeRow(f, SheetIssues, issueRow, []any{
				rep.File, is.ID, string(is.Severity), is.Title, is.Finding, is.Regulation,
				is.Recommendation, pageCell(is.Page), strCell(is.Quote),
			})
			issueRow++
		}
	}

	_ = f.SetColWidth(SheetReports, "A", "A", 36)
	_ = f.SetColWidth(SheetReports, "K", "K", 48)
	_ = f.SetColWidth(SheetItems, "A", "A", 36)
	_ = f.SetColWidth(SheetItems, "B", "D", 24)
	_ = f.SetColWidth(SheetItems, "H", "I", 60)
	_ = f.SetColWidth(SheetIssues, "A", "A", 36)
	_ = f.SetColWidth(SheetIssues, "D", "I", 40)
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"reports", len(reports),
		"items", itemRow-2,
		"issues", issueRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func reportRow(rep Report) []any {
	if rep.Result == nil {
		status := "failed"
		if rep.Err != nil {
			status = "failed: " + common.UserMessage(rep.Err, truncate(rep.Err.Error(), 200))
		}
		return []any{rep.File, rep.PropertyRef, "", "", "", "", "", "", "", "", status}
	}
	r := rep.Result
	status := "ok"
	if r.Error != nil {
		status = r.Error.Type + ": " + r.Error.Message
	}
	pages, usedOCR := "", ""
	if r.Source != nil {
		pages = fmt.Sprintf("%d/%d", r.Source.PageCount, r.Source.TotalPages)
		usedOCR = fmt.Sprintf("%t", r.Source.UsedOCR)
	}
	return []any{
		rep.File, rep.PropertyRef, string(r.RiskRating),
		r.Summary.TotalItems, r.Summary.Verified, r.Summary.Warnings, r.Summary.Missing,
		len(r.Issues), pages, usedOCR, status,
	}
}

// sectionOrder lists canonical sections first, then any others sorted.
func sectionOrder(sections map[string]entity.Section) []string {
	keys := make([]string, 0, len(sections))
	for _, k := range constants.CanonicalSections {
		if _, ok := sections[string(k)]; ok {
			keys = append(keys, string(k))
		}
	}
	var extra []string
	for k := range sections {
		if !constants.IsCanonicalSection(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func pageCell(p *int) any {
	if p == nil {
		return ""
	}
	return *p
}

func strCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// truncate caps s at n characters, ending with an ellipsis when cut.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
