package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmespath/go-jmespath"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
)

const maxLineBytes = 4 * 1024 * 1024

// JSONLSource reads JSON lines and selects the description with a JMESPath expression
type JSONLSource struct {
	path       string
	expression *jmespath.JMESPath
	name       string
}

// NewJSONLSource creates a JSON lines source
func NewJSONLSource(path, expression, name string) (*JSONLSource, error) {
	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, bramerrors.NewConfigErrorf("environment", "invalid description expression %q: %w", expression, err).AddField("INPUT_JMESPATH")
	}
	if name == "" {
		name = path
	}
	return &JSONLSource{path: path, expression: jp, name: name}, nil
}

func (s *JSONLSource) Name() string {
	return s.name
}

func (s *JSONLSource) Read(ctx context.Context, fn func(rec models.InputRecord) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return bramerrors.NewConfigErrorf(s.path, "failed to open input: %w", err)
	}
	defer f.Close()

	return s.read(ctx, f, fn)
}

func (s *JSONLSource) read(ctx context.Context, r io.Reader, fn func(rec models.InputRecord) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	row := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		row++

		line := strings.TrimSpace(scanner.Text())
		description := ""
		if line != "" {
			var doc any
			if err := json.Unmarshal([]byte(line), &doc); err != nil {
				return fmt.Errorf("failed to parse %s line %d: %w", s.path, row, err)
			}
			value, err := s.expression.Search(doc)
			if err != nil {
				return fmt.Errorf("failed to evaluate expression on %s line %d: %w", s.path, row, err)
			}
			description = stringify(value)
		}

		if err := fn(models.InputRecord{RowIndex: row, Description: description}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
