package catalog

import (
	"testing"

	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/models"
)

func defaultSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	return BuildSnapshot(DefaultDocument())
}

func TestBuildSnapshot_FromDefaultDocument(t *testing.T) {
	snap := defaultSnapshot(t)

	if snap.Version() != "0.1.0" {
		t.Errorf("Version() = %q, want 0.1.0", snap.Version())
	}

	def, ok := snap.Definition("browser.platform")
	if !ok {
		t.Fatal("browser.platform missing from snapshot")
	}
	if def.Default == nil || def.Default.StringOr("") != "Win32" {
		t.Errorf("browser.platform default = %v, want Win32", def.Default)
	}
	if len(def.Options) != 3 {
		t.Errorf("browser.platform has %d options, want 3", len(def.Options))
	}

	renderer, ok := snap.Definition("graphics.webgl.renderer")
	if !ok {
		t.Fatal("graphics.webgl.renderer missing from snapshot")
	}
	if len(renderer.Dependencies) != 1 || renderer.Dependencies[0] != "graphics.webgl.vendor" {
		t.Errorf("renderer dependencies = %v", renderer.Dependencies)
	}
}

func TestOptionsFor_ScopeFiltering(t *testing.T) {
	snap := defaultSnapshot(t)

	// Empty context: nothing filters, every option matches.
	all := snap.OptionsFor("system.locale", models.GenerationContext{})
	if len(all) != 4 {
		t.Fatalf("unfiltered options = %d, want 4", len(all))
	}

	// CN region: region-scoped CN options plus unscoped ones.
	cn := snap.OptionsFor("system.locale", models.GenerationContext{Region: "CN"})
	for _, opt := range cn {
		if opt.Region != nil && *opt.Region != "CN" {
			t.Errorf("CN-filtered options contain region %q", *opt.Region)
		}
	}
	if len(cn) != 3 { // zh-CN (CN) + en-GB + ja-JP (unscoped)
		t.Errorf("CN-filtered options = %d, want 3", len(cn))
	}

	// Vendor scoping on renderers.
	intel := snap.OptionsFor("graphics.webgl.renderer", models.GenerationContext{Vendor: "Intel"})
	if len(intel) != 2 {
		t.Errorf("Intel renderers = %d, want 2", len(intel))
	}

	if got := snap.OptionsFor("no.such.trait", models.GenerationContext{}); got != nil {
		t.Errorf("options for unknown trait = %v, want nil", got)
	}
}

func TestNewSnapshot_ToleratesMalformedColumns(t *testing.T) {
	badDeps := `[not json`
	defs := []models.TraitDefinition{
		{
			ID:               uuid.New(),
			Key:              "a",
			ValueType:        models.TraitTypeString,
			DependenciesJSON: &badDeps,
		},
	}

	snap := NewSnapshot("x", defs, nil)

	def, ok := snap.Definition("a")
	if !ok {
		t.Fatal("definition with malformed dependencies was dropped")
	}
	if def.Dependencies != nil {
		t.Errorf("malformed dependencies should be ignored, got %v", def.Dependencies)
	}
}

func TestParseDocument_RejectsMalformed(t *testing.T) {
	if _, err := ParseDocument([]byte(`{broken`)); err == nil {
		t.Error("expected error for malformed document")
	}

	doc, err := ParseDocument([]byte(`{"schemaVersion":"1.0","catalogVersion":"2.0.0","categories":[]}`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if doc.CatalogVersion != "2.0.0" {
		t.Errorf("CatalogVersion = %q", doc.CatalogVersion)
	}
}

func TestDocument_TraitKeys(t *testing.T) {
	keys := DefaultDocument().TraitKeys()

	for _, want := range []string{"browser.userAgent", "system.timezone", "headers.order"} {
		if !keys[want] {
			t.Errorf("TraitKeys missing %q", want)
		}
	}
}
