package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/models"
)

// SchemaVersionPrefix is the accepted major line of the interchange format.
const SchemaVersionPrefix = "1."

// Document is the versioned catalog interchange format used by import,
// export, and dataset seeding.
type Document struct {
	SchemaVersion  string        `json:"schemaVersion"`
	CatalogVersion string        `json:"catalogVersion"`
	ExportedAt     string        `json:"exportedAt,omitempty"`
	Categories     []CategoryDoc `json:"categories"`
	Presets        []PresetDoc   `json:"presets,omitempty"`
}

type CategoryDoc struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Order       int        `json:"order"`
	Traits      []TraitDoc `json:"traits"`
}

type TraitDoc struct {
	Key              string      `json:"key"`
	DisplayName      string      `json:"displayName,omitempty"`
	ValueType        string      `json:"valueType"`
	DefaultValueJSON string      `json:"defaultValueJson,omitempty"`
	DependenciesJSON string      `json:"dependenciesJson,omitempty"`
	ConflictsJSON    string      `json:"conflictsJson,omitempty"`
	Options          []OptionDoc `json:"options"`
}

type OptionDoc struct {
	ValueJSON   string  `json:"valueJson"`
	Label       string  `json:"label,omitempty"`
	Weight      float64 `json:"weight"`
	Region      *string `json:"region,omitempty"`
	Vendor      *string `json:"vendor,omitempty"`
	DeviceClass *string `json:"deviceClass,omitempty"`
}

type PresetDoc struct {
	Name       string `json:"name"`
	TraitsJSON string `json:"traitsJson"`
	Scope      string `json:"scope,omitempty"`
}

// ParseDocument decodes an interchange document. Structural validation
// (schema version, weights, dangling references) is the caller's business
// via pkg/validator.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog document: %w", err)
	}
	return &doc, nil
}

// Marshal renders the document with stable indentation for export.
func (d *Document) Marshal() ([]byte, error) {
	d.ExportedAt = time.Now().UTC().Format(time.RFC3339)
	return json.MarshalIndent(d, "", "  ")
}

// TraitKeys returns every trait key declared in the document.
func (d *Document) TraitKeys() map[string]bool {
	keys := make(map[string]bool)
	for _, cat := range d.Categories {
		for _, trait := range cat.Traits {
			keys[trait.Key] = true
		}
	}
	return keys
}

// BuildSnapshot materializes a snapshot straight from a document, bypassing
// persistence. Import tooling and engine tests use this; the service path
// goes through the repository so imports survive restarts.
func BuildSnapshot(doc *Document) *Snapshot {
	var defs []models.TraitDefinition
	var options []models.TraitOption

	for _, cat := range doc.Categories {
		catID := uuid.New()
		for _, trait := range cat.Traits {
			def := models.TraitDefinition{
				ID:          uuid.New(),
				Key:         trait.Key,
				DisplayName: trait.DisplayName,
				CategoryID:  catID,
				ValueType:   models.TraitValueType(trait.ValueType),
			}
			if trait.DefaultValueJSON != "" {
				def.DefaultValueJSON = ptr(trait.DefaultValueJSON)
			}
			if trait.DependenciesJSON != "" {
				def.DependenciesJSON = ptr(trait.DependenciesJSON)
			}
			if trait.ConflictsJSON != "" {
				def.ConflictsJSON = ptr(trait.ConflictsJSON)
			}
			defs = append(defs, def)

			for _, opt := range trait.Options {
				o := models.TraitOption{
					ID:           uuid.New(),
					DefinitionID: def.ID,
					ValueJSON:    opt.ValueJSON,
					Weight:       opt.Weight,
					Region:       opt.Region,
					Vendor:       opt.Vendor,
					DeviceClass:  opt.DeviceClass,
				}
				if opt.Label != "" {
					o.Label = ptr(opt.Label)
				}
				options = append(options, o)
			}
		}
	}

	return NewSnapshot(doc.CatalogVersion, defs, options)
}

func ptr(s string) *string { return &s }
