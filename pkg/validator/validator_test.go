package validator

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/catalog"
	"github.com/iamgideonidoko/persona/internal/models"
)

func TestValidateGenerateRequest(t *testing.T) {
	metaID := uuid.New()
	longSeed := strings.Repeat("s", 300)

	tests := []struct {
		name    string
		req     models.GenerateRequest
		wantErr bool
	}{
		{
			name:    "valid with meta ID",
			req:     models.GenerateRequest{Name: "profile", MetaProfileID: &metaID},
			wantErr: false,
		},
		{
			name:    "valid with inline meta",
			req:     models.GenerateRequest{Name: "profile", Meta: &models.FingerprintMetaProfile{TraitsJSON: "{}"}},
			wantErr: false,
		},
		{
			name:    "missing name",
			req:     models.GenerateRequest{MetaProfileID: &metaID},
			wantErr: true,
		},
		{
			name:    "no meta at all",
			req:     models.GenerateRequest{Name: "profile"},
			wantErr: true,
		},
		{
			name:    "name too long",
			req:     models.GenerateRequest{Name: strings.Repeat("n", 200), MetaProfileID: &metaID},
			wantErr: true,
		},
		{
			name:    "seed too long",
			req:     models.GenerateRequest{Name: "profile", MetaProfileID: &metaID, Seed: &longSeed},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGenerateRequest(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGenerateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func docWithTrait(trait catalog.TraitDoc) *catalog.Document {
	return &catalog.Document{
		SchemaVersion:  "1.0",
		CatalogVersion: "1.0.0",
		Categories: []catalog.CategoryDoc{
			{Name: "test", Traits: []catalog.TraitDoc{trait}},
		},
	}
}

func TestValidateCatalogDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *catalog.Document
		wantErr bool
	}{
		{
			name:    "valid minimal",
			doc:     docWithTrait(catalog.TraitDoc{Key: "a", ValueType: "String"}),
			wantErr: false,
		},
		{
			name: "missing schema version",
			doc: &catalog.Document{
				Categories: []catalog.CategoryDoc{{Name: "test"}},
			},
			wantErr: true,
		},
		{
			name: "unsupported schema version",
			doc: &catalog.Document{
				SchemaVersion: "2.0",
				Categories:    []catalog.CategoryDoc{{Name: "test"}},
			},
			wantErr: true,
		},
		{
			name:    "empty trait key",
			doc:     docWithTrait(catalog.TraitDoc{Key: "", ValueType: "String"}),
			wantErr: true,
		},
		{
			name:    "unknown value type",
			doc:     docWithTrait(catalog.TraitDoc{Key: "a", ValueType: "Blob"}),
			wantErr: true,
		},
		{
			name: "dangling dependency",
			doc: docWithTrait(catalog.TraitDoc{
				Key: "a", ValueType: "String", DependenciesJSON: `["ghost"]`,
			}),
			wantErr: true,
		},
		{
			name: "dangling conflict target",
			doc: docWithTrait(catalog.TraitDoc{
				Key: "a", ValueType: "String", ConflictsJSON: `{"ghost":"x"}`,
			}),
			wantErr: true,
		},
		{
			name: "negative option weight",
			doc: docWithTrait(catalog.TraitDoc{
				Key: "a", ValueType: "String",
				Options: []catalog.OptionDoc{{ValueJSON: `"x"`, Weight: -1}},
			}),
			wantErr: true,
		},
		{
			name: "empty option value",
			doc: docWithTrait(catalog.TraitDoc{
				Key: "a", ValueType: "String",
				Options: []catalog.OptionDoc{{ValueJSON: "", Weight: 1}},
			}),
			wantErr: true,
		},
		{
			name: "duplicate trait key",
			doc: &catalog.Document{
				SchemaVersion: "1.0",
				Categories: []catalog.CategoryDoc{{
					Name: "test",
					Traits: []catalog.TraitDoc{
						{Key: "a", ValueType: "String"},
						{Key: "a", ValueType: "String"},
					},
				}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCatalogDocument(tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCatalogDocument() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCatalogDocument_DefaultDocumentIsClean(t *testing.T) {
	// The shipped starter catalog must pass its own lint.
	if err := ValidateCatalogDocument(catalog.DefaultDocument()); err != nil {
		t.Errorf("built-in catalog fails validation: %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("ok\x00bad\x01"); got != "okbad" {
		t.Errorf("SanitizeString = %q", got)
	}
	if got := SanitizeString("line\nand\ttab"); got != "line\nand\ttab" {
		t.Errorf("newline/tab should survive, got %q", got)
	}
}
