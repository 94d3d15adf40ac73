// Package export writes portfolio reports to spreadsheet destinations.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/report"
)

// Section prefixes of the sheets written by Export. Each sheet is qualified with the
// report's user, see SheetName.
const (
	HistorySheet  = "HISTORY"
	HoldingsSheet = "HOLDINGS"
	TargetSheet   = "TARGET"
)

// maxSheetName is the longest sheet title a workbook accepts.
const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_", "'", "_",
)

// SheetName returns the title of a section sheet for userID, e.g. "HOLDINGS_alice".
// Characters a workbook rejects in titles are replaced and the title is cut to 31 characters.
func SheetName(section, userID string) string {
	if userID == "" {
		return section
	}
	name := sheetNameReplacer.Replace(section + "_" + userID)
	for utf8.RuneCountInString(name) > maxSheetName {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// Sheet is one named table of cell values. The first row is the header.
type Sheet struct {
	Name string
	Rows [][]any
}

// SheetWriter writes sheets to a spreadsheet destination, replacing their previous content.
type SheetWriter interface {
	Write(ctx context.Context, sheets []Sheet) error
}

// Service converts reports into sheets and delegates writing to a SheetWriter.
type Service struct {
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(writer SheetWriter) *Service {
	return &Service{writer: writer}
}

// Export writes the history, holdings and target sections of rep.
// Sections that are not ready are skipped. Implements worker.AfterReportHook.
func (s *Service) Export(ctx context.Context, rep report.PortfolioReport) error {
	sheets := BuildSheets(rep)
	if len(sheets) == 0 {
		slog.Warn("export: nothing to write", "user", rep.UserID, "date", rep.Date)
		return nil
	}
	if err := s.writer.Write(ctx, sheets); err != nil {
		return fmt.Errorf("exporting report of %s: %w", rep.UserID, err)
	}
	slog.Info("report exported", "user", rep.UserID, "sheets", len(sheets))
	return nil
}

// BuildSheets returns the sheets for every ready section of rep, named per user so that
// reports of several users can share one spreadsheet.
func BuildSheets(rep report.PortfolioReport) []Sheet {
	var out []Sheet
	if len(rep.History) > 0 {
		out = append(out, Sheet{Name: SheetName(HistorySheet, rep.UserID), Rows: buildHistoryRows(rep.History, rep.BaseCurrency)})
	}
	if rep.Holdings.IsReady() {
		out = append(out, Sheet{Name: SheetName(HoldingsSheet, rep.UserID), Rows: buildHoldingsRows(rep.Holdings.Value)})
	}
	if rep.Target.IsReady() {
		out = append(out, Sheet{Name: SheetName(TargetSheet, rep.UserID), Rows: buildTargetRows(rep.Target.Value)})
	}
	return out
}

// buildHistoryRows builds one row per date.
// Columns: Date | Total <base> | one column per ticker, sorted.
func buildHistoryRows(entries []domain.DateValueEntry, base string) [][]any {
	tickers := lo.Uniq(lo.FlatMap(entries, func(e domain.DateValueEntry, _ int) []string {
		return lo.Keys(e.Breakdown)
	}))
	sort.Strings(tickers)

	header := append([]any{"Date", "Total " + base}, lo.ToAnySlice(tickers)...)
	rows := make([][]any, 0, len(entries)+1)
	rows = append(rows, header)

	for _, e := range entries {
		row := make([]any, 0, len(header))
		row = append(row, e.Date.Format("2006-01-02"), e.TotalValue)
		for _, t := range tickers {
			row = append(row, e.Breakdown[t])
		}
		rows = append(rows, row)
	}
	return rows
}

// buildHoldingsRows builds the HOLDINGS sheet.
// Columns: Ticker | Currency | Quantity | Avg price | Lots | Target
func buildHoldingsRows(groups []domain.SnapshotGroup) [][]any {
	rows := [][]any{{"Ticker", "Currency", "Quantity", "Avg price", "Lots", "Target"}}
	for _, g := range groups {
		var targetPrice any
		if g.LatestTargetPrice > 0 {
			targetPrice = g.LatestTargetPrice
		}
		rows = append(rows, []any{g.Ticker, g.Currency, g.TotalQuantity, g.AvgPurchasePrice, g.LotCount, targetPrice})
	}
	return rows
}

// buildTargetRows builds the TARGET sheet with a trailing total row.
// Columns: Ticker | Quantity | Market price | Target price | Manual | Current | Target value
func buildTargetRows(t domain.PortfolioTarget) [][]any {
	rows := [][]any{{"Ticker", "Quantity", "Market price", "Target price", "Manual", "Current " + t.BaseCurrency, "Target " + t.BaseCurrency}}
	for _, h := range t.Holdings {
		rows = append(rows, []any{h.Ticker, h.Quantity, h.MarketPrice, h.TargetPrice, h.ManualTarget, h.CurrentValue, h.TargetValue})
	}
	rows = append(rows, []any{"TOTAL", nil, nil, nil, nil, t.CurrentValue, t.TargetValue})
	return rows
}
