package rules

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/bramble/pkg/normalizers"
)

var (
	cypherLabelRegex = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
	attrNameRegex    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

	// ReservedAttributes are written by the engine and cannot be extracted fields
	ReservedAttributes = []string{"entity_type", "canonical_text", "source", "record_id", "created_at", "updated_at"}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cypher_label", func(fl validator.FieldLevel) bool {
		return cypherLabelRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("attr_name", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return attrNameRegex.MatchString(name) && !slices.Contains(ReservedAttributes, name)
	})
	_ = v.RegisterValidation("normalizer", func(fl validator.FieldLevel) bool {
		_, ok := normalizers.Get(fl.Field().String())
		return ok
	})
	return v
}

// IsCypherIdentifier reports whether s is safe to use as a label or relationship type
func IsCypherIdentifier(s string) bool {
	return validate.Var(s, "cypher_label") == nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "cypher_label":
		return fmt.Sprintf("%q must match %s", fe.Value(), cypherLabelRegex.String())
	case "attr_name":
		return fmt.Sprintf("%q must match %s and not be one of %v", fe.Value(), attrNameRegex.String(), ReservedAttributes)
	case "normalizer":
		return fmt.Sprintf("unknown normalizer %q, expected one of %v", fe.Value(), normalizers.Names())
	case "min":
		return fmt.Sprintf("'%s' needs at least %s entries", fe.StructField(), fe.Param())
	case "required":
		return fmt.Sprintf("'%s' contains an empty entry", fe.StructField())
	}
	return fmt.Sprintf("failed validation for field '%s': rule '%s' expected '%s', got '%v'", fe.StructField(), fe.Tag(), fe.Param(), fe.Value())
}
