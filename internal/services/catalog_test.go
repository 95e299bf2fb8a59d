package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/catalog"
	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/internal/repository"
)

// fakeCatalogStore is an in-memory CatalogStore for exercising the service
// paths without a database.
type fakeCatalogStore struct {
	version    string
	categories []models.TraitCategory
	defs       []models.TraitDefinition
	options    []models.TraitOption
	presets    []models.TraitGroupPreset

	loadCalls  int
	lastImport *catalog.Document
	overwrite  bool
}

func (f *fakeCatalogStore) LoadCatalog(ctx context.Context) (string, []models.TraitDefinition, []models.TraitOption, error) {
	f.loadCalls++
	return f.version, f.defs, f.options, nil
}

func (f *fakeCatalogStore) GetCategories(ctx context.Context) ([]models.TraitCategory, error) {
	return f.categories, nil
}

func (f *fakeCatalogStore) GetPresets(ctx context.Context) ([]models.TraitGroupPreset, error) {
	return f.presets, nil
}

func (f *fakeCatalogStore) LatestCatalogVersion(ctx context.Context) (*models.CatalogVersion, error) {
	if f.version == "" {
		return nil, repository.ErrNotFound
	}
	return &models.CatalogVersion{ID: uuid.New(), Version: f.version}, nil
}

func (f *fakeCatalogStore) CatalogIsEmpty(ctx context.Context) (bool, error) {
	return len(f.defs) == 0, nil
}

func (f *fakeCatalogStore) ImportCatalogDocument(ctx context.Context, doc *catalog.Document, overwrite bool) error {
	f.lastImport = doc
	f.overwrite = overwrite
	f.version = doc.CatalogVersion

	// Materialize the document the way the real store would.
	for _, cat := range doc.Categories {
		catID := uuid.New()
		f.categories = append(f.categories, models.TraitCategory{
			ID: catID, Name: cat.Name, Description: cat.Description, Order: cat.Order,
		})
		for _, trait := range cat.Traits {
			def := models.TraitDefinition{
				ID:          uuid.New(),
				Key:         trait.Key,
				DisplayName: trait.DisplayName,
				CategoryID:  catID,
				ValueType:   models.TraitValueType(trait.ValueType),
			}
			if trait.DefaultValueJSON != "" {
				v := trait.DefaultValueJSON
				def.DefaultValueJSON = &v
			}
			f.defs = append(f.defs, def)

			for _, opt := range trait.Options {
				f.options = append(f.options, models.TraitOption{
					ID:           uuid.New(),
					DefinitionID: def.ID,
					ValueJSON:    opt.ValueJSON,
					Weight:       opt.Weight,
					Region:       opt.Region,
					Vendor:       opt.Vendor,
					DeviceClass:  opt.DeviceClass,
				})
			}
		}
	}
	return nil
}

func TestCatalogService_ImportReloadsSnapshot(t *testing.T) {
	store := &fakeCatalogStore{}
	svc := NewCatalogService(store, nil)

	if err := svc.Import(context.Background(), catalog.DefaultDocument(), ImportModeMerge); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if store.overwrite {
		t.Error("merge mode must not overwrite")
	}

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if _, ok := snap.Definition("browser.platform"); !ok {
		t.Error("imported catalog not visible through the snapshot")
	}
	if snap.Version() != "0.1.0" {
		t.Errorf("snapshot version = %q", snap.Version())
	}
}

func TestCatalogService_OverwriteModeFlagged(t *testing.T) {
	store := &fakeCatalogStore{}
	svc := NewCatalogService(store, nil)

	if err := svc.Import(context.Background(), catalog.DefaultDocument(), ImportModeOverwrite); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !store.overwrite {
		t.Error("overwrite mode should reach the store")
	}
}

func TestCatalogService_ImportRejections(t *testing.T) {
	store := &fakeCatalogStore{}
	svc := NewCatalogService(store, nil)

	if err := svc.Import(context.Background(), catalog.DefaultDocument(), ImportMode("upsert")); err == nil {
		t.Error("unknown mode should be rejected")
	}

	bad := &catalog.Document{SchemaVersion: "9.0"}
	if err := svc.Import(context.Background(), bad, ImportModeMerge); err == nil {
		t.Error("document failing validation should be rejected")
	}

	if store.lastImport != nil {
		t.Error("rejected imports must not reach the store")
	}
}

func TestCatalogService_SnapshotIsCached(t *testing.T) {
	store := &fakeCatalogStore{}
	svc := NewCatalogService(store, nil)

	if _, err := svc.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if _, err := svc.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if store.loadCalls != 1 {
		t.Errorf("store loaded %d times, want 1", store.loadCalls)
	}
}

func TestCatalogService_SeedDefaultOnlyWhenEmpty(t *testing.T) {
	store := &fakeCatalogStore{}
	svc := NewCatalogService(store, nil)

	if err := svc.SeedDefault(context.Background()); err != nil {
		t.Fatalf("SeedDefault failed: %v", err)
	}
	if store.lastImport == nil {
		t.Fatal("empty store should be seeded")
	}

	store.lastImport = nil
	if err := svc.SeedDefault(context.Background()); err != nil {
		t.Fatalf("SeedDefault failed: %v", err)
	}
	if store.lastImport != nil {
		t.Error("non-empty store must not be reseeded")
	}
}

func TestCatalogService_ExportRoundTrip(t *testing.T) {
	store := &fakeCatalogStore{}
	svc := NewCatalogService(store, nil)

	if err := svc.Import(context.Background(), catalog.DefaultDocument(), ImportModeMerge); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	doc, err := svc.Export(context.Background())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if doc.CatalogVersion != "0.1.0" {
		t.Errorf("exported version = %q", doc.CatalogVersion)
	}
	if !doc.TraitKeys()["browser.platform"] {
		t.Error("exported document is missing imported traits")
	}
}
