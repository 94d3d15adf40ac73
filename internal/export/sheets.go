package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsWriter writes report sheets into one Google spreadsheet. Only the tabs named in a
// Write call are touched, so per-user tabs of other users survive.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter authenticates with a service account JSON key.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write adds missing tabs, clears the named tabs and writes their rows from A1.
func (w *SheetsWriter) Write(ctx context.Context, data []Sheet) error {
	if len(data) == 0 {
		return nil
	}
	names := lo.Map(data, func(s Sheet, _ int) string { return s.Name })

	meta, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading spreadsheet %s: %w", w.spreadsheetID, err)
	}
	titles := lo.Map(meta.Sheets, func(s *sheets.Sheet, _ int) string { return s.Properties.Title })

	if adds := addSheetRequests(titles, names); len(adds) > 0 {
		req := &sheets.BatchUpdateSpreadsheetRequest{Requests: adds}
		if _, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("adding %d tabs: %w", len(adds), err)
		}
	}

	clearReq := &sheets.BatchClearValuesRequest{Ranges: lo.Map(names, func(n string, _ int) string { return quoteSheet(n) })}
	if _, err := w.svc.Spreadsheets.Values.BatchClear(w.spreadsheetID, clearReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clearing %s: %w", strings.Join(names, ", "), err)
	}

	update := &sheets.BatchUpdateValuesRequest{ValueInputOption: "USER_ENTERED", Data: valueRanges(data)}
	if _, err := w.svc.Spreadsheets.Values.BatchUpdate(w.spreadsheetID, update).Context(ctx).Do(); err != nil {
		return fmt.Errorf("writing %s: %w", strings.Join(names, ", "), err)
	}

	return nil
}

// addSheetRequests returns one AddSheet request per wanted title missing from existing.
func addSheetRequests(existing, wanted []string) []*sheets.Request {
	missing, _ := lo.Difference(lo.Uniq(wanted), existing)
	return lo.Map(missing, func(title string, _ int) *sheets.Request {
		return &sheets.Request{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}}}
	})
}

func valueRanges(data []Sheet) []*sheets.ValueRange {
	return lo.Map(data, func(s Sheet, _ int) *sheets.ValueRange {
		return &sheets.ValueRange{Range: quoteSheet(s.Name) + "!A1", Values: s.Rows}
	})
}

// quoteSheet renders a tab title for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
