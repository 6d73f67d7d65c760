package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"sdtfit/domain/core"
	"sdtfit/domain/trial"
)

// Columns the input table must carry, by header name.
var requiredColumns = []string{
	"participant_id", "stimulus_type", "difficulty", "signal", "accuracy", "rt",
}

// Reader loads raw trial records from a CSV or xlsx file. Categorical
// labels pass through untouched; the normalizer owns label validation.
type Reader struct {
	filePath string
	fileType string // "csv" or "xlsx"
}

// NewReader creates a reader, picking the format from the file extension.
func NewReader(filePath string) *Reader {
	fileType := "csv"
	if strings.ToLower(filepath.Ext(filePath)) == ".xlsx" {
		fileType = "xlsx"
	}
	return &Reader{filePath: filePath, fileType: fileType}
}

// ReadTrials reads and parses every trial row.
func (r *Reader) ReadTrials(ctx context.Context) ([]trial.RawTrial, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("trial file not found: %s", r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "xlsx":
		rows, err = r.readXLSXRows()
	default:
		rows, err = r.readCSVRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("trial file must have a header row and at least one data row")
	}

	return parseRows(ctx, rows)
}

func (r *Reader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func (r *Reader) readXLSXRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	return rows, nil
}

// parseRows turns header + data rows into raw trials with strict numeric
// parsing. Row numbers in errors are 1-based file positions.
func parseRows(ctx context.Context, rows [][]string) ([]trial.RawTrial, error) {
	columns, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	trials := make([]trial.RawTrial, 0, len(rows)-1)
	for i, row := range rows[1:] {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		rowNum := i + 2
		if len(row) < len(rows[0]) {
			return nil, core.NewInvalidTrialError(rowNum, fmt.Sprintf("expected %d columns, got %d", len(rows[0]), len(row)))
		}

		pnum, err := strconv.Atoi(strings.TrimSpace(row[columns["participant_id"]]))
		if err != nil {
			return nil, core.NewInvalidTrialError(rowNum, fmt.Sprintf("participant_id: %v", err))
		}
		accuracy, err := strconv.Atoi(strings.TrimSpace(row[columns["accuracy"]]))
		if err != nil {
			return nil, core.NewInvalidTrialError(rowNum, fmt.Sprintf("accuracy: %v", err))
		}
		rt, err := strconv.ParseFloat(strings.TrimSpace(row[columns["rt"]]), 64)
		if err != nil {
			return nil, core.NewInvalidTrialError(rowNum, fmt.Sprintf("rt: %v", err))
		}

		trials = append(trials, trial.RawTrial{
			Pnum:         pnum,
			StimulusType: strings.TrimSpace(row[columns["stimulus_type"]]),
			Difficulty:   strings.TrimSpace(row[columns["difficulty"]]),
			Signal:       strings.TrimSpace(row[columns["signal"]]),
			Accuracy:     accuracy,
			RT:           rt,
		})
	}
	return trials, nil
}

func columnIndex(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("trial file missing required column %q", name)
		}
	}
	return columns, nil
}
