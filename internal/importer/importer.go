package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/kioku/internal/database"
	"github.com/example/kioku/pkg/models"
)

// ImportConfig defines how a deck file maps onto flashcards.
type ImportConfig struct {
	FilePath      string // path to the Excel or CSV file
	FrontColumn   string // column with the prompt side
	BackColumn    string // column with the answer side
	ReadingColumn string // column with the optional reading
	ListColumn    string // column with an optional owning list id
	SheetName     string // sheet to import from (Excel only)
	StartRow      int    // first data row, 1-based
}

// DefaultImportConfig returns the default deck layout: front, back, reading,
// list id in columns A-D with a header row.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		FrontColumn:   "A",
		BackColumn:    "B",
		ReadingColumn: "C",
		ListColumn:    "D",
		SheetName:     "Sheet1",
		StartRow:      2,
	}
}

// ImportResult holds the outcome of one deck import.
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// Importer creates review items (with fresh schedule states) from deck
// files. Imported cards get the custom content type.
type Importer struct {
	items     *database.ItemRepository
	schedules *database.ScheduleRepository
	now       func() time.Time
}

// New creates an importer over the local store.
func New(items *database.ItemRepository, schedules *database.ScheduleRepository, now func() time.Time) *Importer {
	return &Importer{items: items, schedules: schedules, now: now}
}

// ImportDeck imports flashcards for a user from an Excel or CSV file.
func (imp *Importer) ImportDeck(ctx context.Context, userID int64, config ImportConfig) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return imp.importFromCSV(ctx, userID, config)
	}
	return imp.importFromExcel(ctx, userID, config)
}

func (imp *Importer) importFromExcel(ctx context.Context, userID int64, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", config.SheetName, err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i := config.StartRow - 1; i < len(rows); i++ {
		row := rows[i]
		cell := func(col string) string {
			idx := columnIndex(col)
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		imp.importCard(ctx, userID, cell(config.FrontColumn), cell(config.BackColumn),
			cell(config.ReadingColumn), cell(config.ListColumn), i+1, result)
	}
	return result, nil
}

func (imp *Importer) importFromCSV(ctx context.Context, userID int64, config ImportConfig) (*ImportResult, error) {
	f, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	result := &ImportResult{Errors: make([]string, 0)}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		cell := func(col string) string {
			idx := columnIndex(col)
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		imp.importCard(ctx, userID, cell(config.FrontColumn), cell(config.BackColumn),
			cell(config.ReadingColumn), cell(config.ListColumn), rowNum, result)
	}
	return result, nil
}

// importCard creates one item plus its initial schedule state. Rows without
// a front side are skipped; storage errors are collected, not fatal.
func (imp *Importer) importCard(ctx context.Context, userID int64, front, back, reading, list string, rowNum int, result *ImportResult) {
	result.TotalProcessed++
	if front == "" {
		result.Skipped++
		return
	}

	var listIDs []int64
	if list != "" {
		if id, err := strconv.ParseInt(list, 10, 64); err == nil {
			listIDs = []int64{id}
		}
	}

	now := imp.now()
	item := models.ReviewItem{
		UserID:      userID,
		ContentType: models.ContentCustom,
		Front:       front,
		Back:        back,
		Reading:     reading,
		ListIDs:     listIDs,
		CreatedAt:   now,
	}
	if err := imp.items.Create(ctx, &item); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
		return
	}

	state := models.NewScheduleState(userID, item.ID, now)
	if err := imp.schedules.UpsertScheduleState(ctx, &state); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
		return
	}
	result.Created++
}

// columnIndex converts a spreadsheet column letter to a zero-based index.
func columnIndex(col string) int {
	col = strings.ToUpper(strings.TrimSpace(col))
	if col == "" {
		return -1
	}
	idx := 0
	for _, r := range col {
		if r < 'A' || r > 'Z' {
			return -1
		}
		idx = idx*26 + int(r-'A') + 1
	}
	return idx - 1
}
