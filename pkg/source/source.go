// Package source reads the ordered description records an ingestion run consumes
package source

import (
	"context"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// Source yields input records in order. RowIndex is one-based and counts every row
// the source saw, including rows whose description is empty.
type Source interface {
	// Name is the provenance written to Record.source_file
	Name() string
	// Read calls fn for each record in order and stops at the first error fn returns.
	Read(ctx context.Context, fn func(rec models.InputRecord) error) error
}

// Slice is an in-memory source
type Slice struct {
	SourceName string
	Records    []models.InputRecord
}

// FromDescriptions builds a slice source numbering descriptions from one
func FromDescriptions(name string, descriptions ...string) *Slice {
	s := &Slice{SourceName: name}
	for i, d := range descriptions {
		s.Records = append(s.Records, models.InputRecord{RowIndex: i + 1, Description: d})
	}
	return s
}

func (s *Slice) Name() string {
	return s.SourceName
}

func (s *Slice) Read(ctx context.Context, fn func(rec models.InputRecord) error) error {
	for _, rec := range s.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}
