// Package sheets keeps budget values in a two-column tab of a Google
// spreadsheet: column A holds the key, column B the value.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// Sheets rejects cells longer than this.
const maxCellLength = 50000

var _ storage.KV = (*Store)(nil)

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New creates a Sheets-backed store authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Bilancio"
	}

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewWithService(svc, cfg.SpreadsheetID, sheetName, logger), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentStorage).With(log.FieldBackend, "sheets"),
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.svc == nil {
		return "", false, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:B", s.sheetName)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", rng, err)
	}
	row := findRow(resp.Values, key)
	if row == 0 {
		return "", false, nil
	}
	cols := resp.Values[row-1]
	if len(cols) < 2 {
		return "", true, nil
	}
	return fmt.Sprint(cols[1]), true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if len(value) > maxCellLength {
		return fmt.Errorf("value for %s is %d bytes, sheets cells hold at most %d", key, len(value), maxCellLength)
	}
	if s.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", s.sheetName)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	row := findRow(resp.Values, key)
	if row == 0 {
		row = len(resp.Values) + 1
	}

	target := fmt.Sprintf("%s!A%d:B%d", s.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{key, value}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, target, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", target, err)
	}
	s.logger.DebugContext(ctx, "Value saved to Google Sheets", log.FieldKey, key, "range", target)
	return nil
}

// findRow returns the 1-based row whose first cell equals key, or 0.
func findRow(values [][]any, key string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == key {
			return i + 1
		}
	}
	return 0
}
