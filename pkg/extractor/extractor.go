// Package extractor applies a rule set's patterns to free-text descriptions
package extractor

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/normalizers"
	"github.com/Ramsey-B/bramble/pkg/rules"
)

// Extractor turns one description into field groups
type Extractor struct {
	rules  *rules.RuleSet
	logger ectologger.Logger
}

// New creates a new Extractor
func New(rs *rules.RuleSet, logger ectologger.Logger) *Extractor {
	return &Extractor{rules: rs, logger: logger}
}

// Extract returns the extracted values for every group in the rule set. Fields that did
// not match are absent; a group with no matches maps to an empty set.
//
// Per field, patterns are tried in declared order and the first one producing a
// non-empty cleaned value wins. A pattern that fails to evaluate (match timeout) counts
// as a miss for that pattern.
func (e *Extractor) Extract(ctx context.Context, text string) models.Fields {
	out := make(models.Fields, len(e.rules.Groups))

	for _, group := range e.rules.Groups {
		values := map[string]string{}
		for _, field := range group.Fields {
			if value, ok := e.extractField(ctx, group.Name, field, text); ok {
				values[field.Name] = value
				metrics.FieldsExtracted.WithLabelValues(group.Name, field.Name).Inc()
			}
		}
		out[group.Name] = values
	}

	return out
}

func (e *Extractor) extractField(ctx context.Context, group string, field rules.FieldRule, text string) (string, bool) {
	for _, pattern := range field.Patterns {
		raw, ok, err := pattern.Find(text)
		if err != nil {
			metrics.PatternErrors.WithLabelValues(group, field.Name).Inc()
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"group": group,
				"field": field.Name,
			}).Warn("Pattern evaluation failed, trying next pattern")
			continue
		}
		if !ok {
			continue
		}

		value := normalizers.Clean(raw)
		if value != "" && len(field.Normalizers) > 0 {
			value = normalizers.ApplyChain(value, field.Normalizers...)
		}
		if value != "" {
			return value, true
		}
	}
	return "", false
}
