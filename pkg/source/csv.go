package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// CSVSource reads one column of a CSV file with a header row
type CSVSource struct {
	path   string
	column string
	name   string
}

// NewCSVSource creates a CSV source. name defaults to the file path.
func NewCSVSource(path, column, name string) *CSVSource {
	if name == "" {
		name = path
	}
	return &CSVSource{path: path, column: column, name: name}
}

func (s *CSVSource) Name() string {
	return s.name
}

func (s *CSVSource) Read(ctx context.Context, fn func(rec models.InputRecord) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return bramerrors.NewConfigErrorf(s.path, "failed to open input: %w", err)
	}
	defer f.Close()

	return readCSV(ctx, f, s.path, s.column, fn)
}

func readCSV(ctx context.Context, r io.Reader, source, column string, fn func(rec models.InputRecord) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return bramerrors.NewConfigError(source, "input has no header row")
		}
		return bramerrors.NewConfigErrorf(source, "failed to read header: %w", err)
	}

	idx := -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return bramerrors.NewConfigError(source, fmt.Sprintf("input must contain a %q column", column)).AddField(column)
	}

	// encoding/csv drops blank lines; they still count as rows so ids stay stable
	next, _ := reader.FieldPos(0)
	next++
	for _, h := range header {
		next += strings.Count(h, "\n")
	}
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s row %d: %w", source, row+1, err)
		}

		line, _ := reader.FieldPos(0)
		for ; next < line; next++ {
			row++
			if err := fn(models.InputRecord{RowIndex: row}); err != nil {
				return err
			}
		}
		next = line + 1
		for _, f := range fields {
			next += strings.Count(f, "\n")
		}

		row++
		description := ""
		if idx < len(fields) {
			description = fields[idx]
		}
		if err := fn(models.InputRecord{RowIndex: row, Description: description}); err != nil {
			return err
		}
	}
}
