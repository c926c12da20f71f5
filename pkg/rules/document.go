package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// document is the raw shape of a rules file
type document struct {
	Record                RecordSection    `yaml:"record"`
	FieldPatterns         groupList        `yaml:"field_patterns"`
	LocationRelationships relationshipList `yaml:"location_relationships"`
}

// RecordSection names the description node
type RecordSection struct {
	Label    string `yaml:"label" validate:"cypher_label"`
	IDPrefix string `yaml:"id_prefix"`
}

// FieldSpec is one field's patterns and normalizers. It decodes from either a bare
// list of patterns or a mapping with patterns and normalizers keys.
type FieldSpec struct {
	Patterns    []string `yaml:"patterns" validate:"min=1,dive,required"`
	Normalizers []string `yaml:"normalizers" validate:"dive,normalizer"`
}

func (f *FieldSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&f.Patterns)
	case yaml.MappingNode:
		type plain FieldSpec
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*f = FieldSpec(p)
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
	}
	return fmt.Errorf("line %d: field must be a list of patterns or a mapping with patterns", node.Line)
}

type namedField struct {
	Name string
	Spec FieldSpec
}

type namedGroup struct {
	Name   string
	Fields []namedField
}

// groupList keeps groups and fields in declared order
type groupList []namedGroup

func (g *groupList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: field_patterns must be a mapping of groups", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		group := namedGroup{Name: key.Value}

		if value.Kind != yaml.MappingNode {
			if value.Tag == "!!null" {
				*g = append(*g, group)
				continue
			}
			return fmt.Errorf("line %d: group %q must be a mapping of fields", value.Line, key.Value)
		}
		for j := 0; j+1 < len(value.Content); j += 2 {
			var spec FieldSpec
			if err := value.Content[j+1].Decode(&spec); err != nil {
				return fmt.Errorf("group %q field %q: %w", key.Value, value.Content[j].Value, err)
			}
			group.Fields = append(group.Fields, namedField{Name: value.Content[j].Value, Spec: spec})
		}
		*g = append(*g, group)
	}
	return nil
}

// relationshipList keeps location relationships in declared order
type relationshipList []LocationRelationship

func (r *relationshipList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: location_relationships must be a mapping of field to relationship type", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: relationship type for %q must be a string", value.Line, key.Value)
		}
		*r = append(*r, LocationRelationship{Field: key.Value, Type: value.Value})
	}
	return nil
}
