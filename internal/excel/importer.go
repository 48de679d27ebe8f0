package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/readbot/internal/journal"
	"github.com/example/readbot/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Shelf is where imported books end up
type Shelf interface {
	AddBook(ctx context.Context, userID string, in journal.BookInput) (*models.Book, error)
	HasBook(ctx context.Context, userID, title string) (bool, error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath     string // Path to the Excel or CSV file
	SheetName    string // Sheet to import, the active sheet when empty
	TitleColumn  string
	AuthorColumn string
	PagesColumn  string
	StatusColumn string
	StartRow     int // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		TitleColumn:  "A",
		AuthorColumn: "B",
		PagesColumn:  "C",
		StatusColumn: "D",
		StartRow:     2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// columns holds the zero-based positions of the configured columns
type columns struct {
	title, author, pages, status int
}

// ImportBooks adds the books listed in an Excel or CSV file to the user's
// shelf. Rows without a title and titles already on the shelf are skipped;
// malformed rows are reported in the result and do not stop the import.
func ImportBooks(ctx context.Context, shelf Shelf, userID string, cfg ImportConfig, logger logrus.FieldLogger) (*ImportResult, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cols, err := resolveColumns(cfg)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		rows, err = readCSV(cfg.FilePath)
	} else {
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, err
	}

	startRow := cfg.StartRow
	if startRow < 1 {
		startRow = 1
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < startRow-1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		title := cell(row, cols.title)
		if title == "" {
			result.Skipped++
			continue
		}
		result.TotalProcessed++

		created, err := importRow(ctx, shelf, userID, row, cols)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		case created:
			result.Created++
		default:
			result.Skipped++
		}
	}

	logger.WithFields(logrus.Fields{
		"user_id": userID,
		"file":    filepath.Base(cfg.FilePath),
		"created": result.Created,
		"skipped": result.Skipped,
		"errors":  len(result.Errors),
	}).Info("Books imported")
	return result, nil
}

func importRow(ctx context.Context, shelf Shelf, userID string, row []string, cols columns) (bool, error) {
	in := journal.BookInput{
		Title:  cell(row, cols.title),
		Author: cell(row, cols.author),
	}

	if raw := cell(row, cols.pages); raw != "" {
		pages, err := strconv.Atoi(raw)
		if err != nil || pages < 0 {
			return false, fmt.Errorf("invalid page count %q", raw)
		}
		in.TotalPages = pages
	}

	status, err := parseStatus(cell(row, cols.status))
	if err != nil {
		return false, err
	}
	in.Status = status

	exists, err := shelf.HasBook(ctx, userID, in.Title)
	if err != nil {
		return false, fmt.Errorf("failed to check existing books: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := shelf.AddBook(ctx, userID, in); err != nil {
		return false, fmt.Errorf("failed to add book: %w", err)
	}
	return true, nil
}

// statusAliases maps spreadsheet spellings to shelf statuses
var statusAliases = map[string]models.BookStatus{
	"":          models.BookWant,
	"want":      models.BookWant,
	"хочу":      models.BookWant,
	"reading":   models.BookReading,
	"читаю":     models.BookReading,
	"finished":  models.BookFinished,
	"прочитано": models.BookFinished,
	"paused":    models.BookPaused,
	"пауза":     models.BookPaused,
}

func parseStatus(raw string) (models.BookStatus, error) {
	status, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}

func resolveColumns(cfg ImportConfig) (columns, error) {
	var cols columns
	targets := []struct {
		name string
		dst  *int
	}{
		{cfg.TitleColumn, &cols.title},
		{cfg.AuthorColumn, &cols.author},
		{cfg.PagesColumn, &cols.pages},
		{cfg.StatusColumn, &cols.status},
	}
	for _, t := range targets {
		if t.name == "" {
			*t.dst = -1
			continue
		}
		n, err := excelize.ColumnNameToNumber(t.name)
		if err != nil {
			return columns{}, fmt.Errorf("invalid column %q: %w", t.name, err)
		}
		*t.dst = n - 1
	}
	if cols.title < 0 {
		return columns{}, errors.New("title column is required")
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
