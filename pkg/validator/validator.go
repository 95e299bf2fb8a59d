package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iamgideonidoko/persona/internal/catalog"
	"github.com/iamgideonidoko/persona/internal/models"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Validator struct {
	errors []ValidationError
}

func New() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

func (v *Validator) ErrorMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v.errors {
		result[err.Field] = err.Message
	}
	return result
}

func (v *Validator) err() error {
	if v.IsValid() {
		return nil
	}
	return fmt.Errorf("validation failed: %v", v.ErrorMap())
}

// ValidateGenerateRequest checks the generation entry point's input shape.
func ValidateGenerateRequest(req models.GenerateRequest) error {
	v := New()

	if strings.TrimSpace(req.Name) == "" {
		v.AddError("name", "required")
	} else if len(req.Name) > 120 {
		v.AddError("name", "too long")
	}

	if req.MetaProfileID == nil && req.Meta == nil {
		v.AddError("meta", "either meta_profile_id or an inline meta is required")
	}

	if req.Seed != nil && len(*req.Seed) > 256 {
		v.AddError("seed", "too long")
	}

	return v.err()
}

var validValueTypes = map[string]bool{
	string(models.TraitTypeString): true,
	string(models.TraitTypeNumber): true,
	string(models.TraitTypeBool):   true,
	string(models.TraitTypeArray):  true,
	string(models.TraitTypeObject): true,
}

// ValidateCatalogDocument lints an interchange document before import.
// Dangling dependency/conflict references are tolerated at generation time
// but rejected here, where the authoring bug is still cheap to fix.
func ValidateCatalogDocument(doc *catalog.Document) error {
	v := New()

	if doc.SchemaVersion == "" {
		v.AddError("schemaVersion", "required")
	} else if !strings.HasPrefix(doc.SchemaVersion, catalog.SchemaVersionPrefix) {
		v.AddError("schemaVersion", fmt.Sprintf("unsupported version %q", doc.SchemaVersion))
	}

	known := doc.TraitKeys()
	seen := make(map[string]bool)

	for _, cat := range doc.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			v.AddError("categories", "category with empty name")
		}
		for _, trait := range cat.Traits {
			field := "traits." + trait.Key

			if strings.TrimSpace(trait.Key) == "" {
				v.AddError("traits", "trait with empty key")
				continue
			}
			if seen[trait.Key] {
				v.AddError(field, "duplicate key")
			}
			seen[trait.Key] = true

			if !validValueTypes[trait.ValueType] {
				v.AddError(field, fmt.Sprintf("unknown value type %q", trait.ValueType))
			}

			for _, dep := range parseKeyList(trait.DependenciesJSON) {
				if !known[dep] {
					v.AddError(field, fmt.Sprintf("dependency %q not defined in document", dep))
				}
			}
			for conflictKey := range parseKeyMap(trait.ConflictsJSON) {
				if !known[conflictKey] {
					v.AddError(field, fmt.Sprintf("conflict target %q not defined in document", conflictKey))
				}
			}

			for i, opt := range trait.Options {
				if opt.Weight < 0 {
					v.AddError(field, fmt.Sprintf("option %d has negative weight", i))
				}
				if strings.TrimSpace(opt.ValueJSON) == "" {
					v.AddError(field, fmt.Sprintf("option %d has empty value", i))
				}
			}
		}
	}

	return v.err()
}

func parseKeyList(raw string) []string {
	if raw == "" {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil
	}
	return keys
}

func parseKeyMap(raw string) map[string]json.RawMessage {
	if raw == "" {
		return nil
	}
	var rules map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil
	}
	return rules
}

func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	var result strings.Builder
	for _, r := range s {
		if r >= 32 || r == '\n' || r == '\t' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
