// Package rules loads and compiles the extraction rules document.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
)

const (
	DefaultRecordLabel = "Record"
	DefaultIDPrefix    = "DESC_"

	// ValueGroup is the named capture every pattern must define
	ValueGroup = "value"
)

// MatchTimeout bounds a single pattern evaluation
var MatchTimeout = 250 * time.Millisecond

// Pattern is one compiled extraction pattern
type Pattern struct {
	Source string
	re     *regexp2.Regexp
}

// Find returns the raw value capture of the first match in text
func (p *Pattern) Find(text string) (string, bool, error) {
	m, err := p.re.FindStringMatch(text)
	if err != nil {
		return "", false, fmt.Errorf("pattern %q: %w", p.Source, err)
	}
	if m == nil {
		return "", false, nil
	}
	g := m.GroupByName(ValueGroup)
	if g == nil || len(g.Captures) == 0 {
		return "", false, nil
	}
	return g.String(), true, nil
}

// FieldRule is one field's ordered patterns
type FieldRule struct {
	Name        string
	Patterns    []*Pattern
	Normalizers []string
}

// GroupRules is the fields of one entity group in declared order
type GroupRules struct {
	Name   string
	Fields []FieldRule
}

// LocationRelationship maps a person field to the edge type linking the person to that location
type LocationRelationship struct {
	Field string
	Type  string
}

// RuleSet is an immutable compiled rules document
type RuleSet struct {
	Path                  string
	RecordLabel           string
	IDPrefix              string
	Groups                []GroupRules
	LocationRelationships []LocationRelationship
}

// RecordID is the record identity for a one-based row index
func (rs *RuleSet) RecordID(rowIndex int) string {
	return rs.IDPrefix + strconv.Itoa(rowIndex)
}

// GroupNames lists the declared groups in document order
func (rs *RuleSet) GroupNames() []string {
	return ectolinq.Map(rs.Groups, func(g GroupRules) string { return g.Name })
}

func (rs *RuleSet) Group(name string) (*GroupRules, bool) {
	for i := range rs.Groups {
		if rs.Groups[i].Name == name {
			return &rs.Groups[i], true
		}
	}
	return nil, false
}

// RelationshipTypes lists the declared location relationship types without duplicates
func (rs *RuleSet) RelationshipTypes() []string {
	types := []string{}
	for _, lr := range rs.LocationRelationships {
		if !ectolinq.Contains(types, lr.Type) {
			types = append(types, lr.Type)
		}
	}
	return types
}

// Load reads and compiles a rules file
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, bramerrors.NewConfigErrorf(path, "rules file not found: %w", err)
		}
		return nil, bramerrors.NewConfigErrorf(path, "failed to read rules file: %w", err)
	}
	return Parse(data, path)
}

// Parse compiles a rules document. source names the document in errors.
func Parse(data []byte, source string) (*RuleSet, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, bramerrors.NewConfigErrorf(source, "failed to parse rules: %w", err)
	}

	rs := &RuleSet{
		Path:        source,
		RecordLabel: doc.Record.Label,
		IDPrefix:    doc.Record.IDPrefix,
	}
	if rs.RecordLabel == "" {
		rs.RecordLabel = DefaultRecordLabel
	}
	if rs.IDPrefix == "" {
		rs.IDPrefix = DefaultIDPrefix
	}
	if err := validate.Var(rs.RecordLabel, "cypher_label"); err != nil {
		return nil, bramerrors.NewConfigError(source, validationMessage(err)).AddField("record.label")
	}

	if len(doc.FieldPatterns) == 0 {
		return nil, bramerrors.NewConfigError(source, "at least one group is required").AddField("field_patterns")
	}

	for _, g := range doc.FieldPatterns {
		group, err := compileGroup(source, g)
		if err != nil {
			return nil, err
		}
		rs.Groups = append(rs.Groups, group)
	}

	fixed := []string{models.RelationshipDescribes, models.RelationshipAssociatedWithOrg}
	for _, lr := range doc.LocationRelationships {
		path := "location_relationships." + lr.Field
		if err := validate.Var(lr.Field, "attr_name"); err != nil {
			return nil, bramerrors.NewConfigError(source, validationMessage(err)).AddField(path)
		}
		if err := validate.Var(lr.Type, "cypher_label"); err != nil {
			return nil, bramerrors.NewConfigError(source, validationMessage(err)).AddField(path)
		}
		if ectolinq.Contains(fixed, lr.Type) {
			return nil, bramerrors.NewConfigError(source, fmt.Sprintf("relationship type %q is reserved", lr.Type)).AddField(path)
		}
		rs.LocationRelationships = append(rs.LocationRelationships, lr)
	}

	return rs, nil
}

func compileGroup(source string, g namedGroup) (GroupRules, error) {
	group := GroupRules{Name: g.Name}
	if err := validate.Var(g.Name, "attr_name"); err != nil {
		return group, bramerrors.NewConfigError(source, validationMessage(err)).AddField("field_patterns." + g.Name)
	}
	if len(g.Fields) == 0 {
		return group, bramerrors.NewConfigError(source, "group has no fields").AddField("field_patterns." + g.Name)
	}

	for _, f := range g.Fields {
		path := fmt.Sprintf("field_patterns.%s.%s", g.Name, f.Name)
		if err := validate.Var(f.Name, "attr_name"); err != nil {
			return group, bramerrors.NewConfigError(source, validationMessage(err)).AddField(path)
		}
		if err := validate.Struct(f.Spec); err != nil {
			return group, bramerrors.NewConfigError(source, validationMessage(err)).AddField(path)
		}

		rule := FieldRule{Name: f.Name, Normalizers: f.Spec.Normalizers}
		for i, expr := range f.Spec.Patterns {
			p, err := compilePattern(expr)
			if err != nil {
				return group, bramerrors.NewConfigErrorf(source, "invalid pattern: %w", err).AddField(fmt.Sprintf("%s.patterns[%d]", path, i))
			}
			rule.Patterns = append(rule.Patterns, p)
		}
		group.Fields = append(group.Fields, rule)
	}
	return group, nil
}

var namedBackref = regexp.MustCompile(`\(\?P=(\w+)\)`)

// dotNetSyntax rewrites Python-style named groups and backreferences,
// (?P<name>...) and (?P=name), into the forms regexp2 understands.
func dotNetSyntax(expr string) string {
	expr = strings.ReplaceAll(expr, "(?P<", "(?<")
	return namedBackref.ReplaceAllString(expr, `\k<$1>`)
}

// compilePattern compiles a case-insensitive pattern. Both (?P<value>...) and
// (?<value>...) capture syntaxes are accepted.
func compilePattern(expr string) (*Pattern, error) {
	re, err := regexp2.Compile(dotNetSyntax(expr), regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("%q does not compile: %w", expr, err)
	}
	if !ectolinq.Contains(re.GetGroupNames(), ValueGroup) {
		return nil, fmt.Errorf("%q does not define a named capture %q", expr, ValueGroup)
	}
	re.MatchTimeout = MatchTimeout
	return &Pattern{Source: expr, re: re}, nil
}
