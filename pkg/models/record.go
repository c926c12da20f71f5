package models

import "time"

// InputRecord is one row handed to the processor by a source
type InputRecord struct {
	RowIndex    int
	Description string
}

// Record is a description node read back from the graph
type Record struct {
	RecordID    string     `json:"record_id"`
	Description string     `json:"description"`
	RowIndex    int        `json:"row_index"`
	SourceFile  string     `json:"source_file"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}
