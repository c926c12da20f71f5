package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
)

func collect(t *testing.T, s Source) []models.InputRecord {
	t.Helper()
	var out []models.InputRecord
	require.NoError(t, s.Read(context.Background(), func(rec models.InputRecord) error {
		out = append(out, rec)
		return nil
	}))
	return out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCSVSource(t *testing.T) {
	path := writeFile(t, "descriptions.csv", "\ufeffid,Description\n"+
		"1,\"NAME: Jane Roe; Departure: JFK\"\n"+
		"2,\n"+
		"3,\"NAME: John Doe, Jr.\"\n")

	s := NewCSVSource(path, "description", "")
	assert.Equal(t, path, s.Name())

	assert.Equal(t, []models.InputRecord{
		{RowIndex: 1, Description: "NAME: Jane Roe; Departure: JFK"},
		{RowIndex: 2, Description: ""},
		{RowIndex: 3, Description: "NAME: John Doe, Jr."},
	}, collect(t, s))
}

func TestCSV_BlankLinesKeepRowNumbers(t *testing.T) {
	var got []models.InputRecord
	err := readCSV(context.Background(), strings.NewReader("description\nNAME: A\n\n\"NAME: B\nDeparture: JFK\"\n\nNAME: C\n"), "x", "description", func(rec models.InputRecord) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []models.InputRecord{
		{RowIndex: 1, Description: "NAME: A"},
		{RowIndex: 2, Description: ""},
		{RowIndex: 3, Description: "NAME: B\nDeparture: JFK"},
		{RowIndex: 4, Description: ""},
		{RowIndex: 5, Description: "NAME: C"},
	}, got)
}

func TestCSVSource_MissingColumn(t *testing.T) {
	path := writeFile(t, "descriptions.csv", "id,text\n1,x\n")

	err := NewCSVSource(path, "description", "batch").Read(context.Background(), func(models.InputRecord) error { return nil })
	require.Error(t, err)
	assert.True(t, bramerrors.IsConfigError(err))
}

func TestCSVSource_MissingFile(t *testing.T) {
	err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"), "description", "").Read(context.Background(), func(models.InputRecord) error { return nil })
	assert.True(t, bramerrors.IsConfigError(err))
}

func TestCSV_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := readCSV(context.Background(), strings.NewReader("description\na\nb\n"), "x", "description", func(models.InputRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestJSONLSource(t *testing.T) {
	path := writeFile(t, "descriptions.jsonl", `{"meta":{"text":"NAME: Jane Roe"}}

{"meta":{"text":null}}
{"meta":{"text":"NAME: John Doe"}}
`)

	s, err := NewJSONLSource(path, "meta.text", "intake")
	require.NoError(t, err)
	assert.Equal(t, "intake", s.Name())

	assert.Equal(t, []models.InputRecord{
		{RowIndex: 1, Description: "NAME: Jane Roe"},
		{RowIndex: 2, Description: ""},
		{RowIndex: 3, Description: ""},
		{RowIndex: 4, Description: "NAME: John Doe"},
	}, collect(t, s))
}

func TestJSONLSource_Errors(t *testing.T) {
	_, err := NewJSONLSource("x.jsonl", "meta.[", "")
	assert.True(t, bramerrors.IsConfigError(err))

	path := writeFile(t, "bad.jsonl", "{not json}\n")
	s, err := NewJSONLSource(path, "description", "")
	require.NoError(t, err)
	err = s.Read(context.Background(), func(models.InputRecord) error { return nil })
	assert.ErrorContains(t, err, "line 1")
}

type fakeSelector struct {
	pages   [][]descriptionRow
	queries []string
}

func (f *fakeSelector) SelectContext(_ context.Context, dest any, query string, args ...any) error {
	f.queries = append(f.queries, query)
	page := []descriptionRow{}
	if len(f.pages) > 0 {
		page, f.pages = f.pages[0], f.pages[1:]
	}
	*(dest.(*[]descriptionRow)) = page
	return nil
}

func row(s string) descriptionRow {
	r := descriptionRow{}
	r.Description.String = s
	r.Description.Valid = s != ""
	return r
}

func TestPostgresSource(t *testing.T) {
	db := &fakeSelector{pages: [][]descriptionRow{
		{row("NAME: A"), row("")},
		{row("NAME: C")},
	}}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	s, err := NewPostgresSource(db, PostgresConfig{
		Table:             "intake.descriptions",
		IDColumn:          "id",
		DescriptionColumn: "body",
		PageSize:          2,
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "intake.descriptions", s.Name())

	assert.Equal(t, []models.InputRecord{
		{RowIndex: 1, Description: "NAME: A"},
		{RowIndex: 2, Description: ""},
		{RowIndex: 3, Description: "NAME: C"},
	}, collect(t, s))

	require.Len(t, db.queries, 2)
	assert.Contains(t, db.queries[0], "SELECT body AS description FROM intake.descriptions")
	assert.Contains(t, db.queries[0], "ORDER BY id")
	assert.Contains(t, db.queries[0], "LIMIT")
}

func TestPostgresSource_RejectsIdentifiers(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	_, err := NewPostgresSource(&fakeSelector{}, PostgresConfig{
		Table:             "descriptions; DROP TABLE x",
		IDColumn:          "id",
		DescriptionColumn: "description",
	}, logger)
	assert.True(t, bramerrors.IsConfigError(err))
}

func TestSlice(t *testing.T) {
	s := FromDescriptions("mem", "a", "", "c")
	assert.Equal(t, "mem", s.Name())
	assert.Equal(t, 3, collect(t, s)[2].RowIndex)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Read(ctx, func(models.InputRecord) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
