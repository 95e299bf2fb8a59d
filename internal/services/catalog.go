package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/iamgideonidoko/persona/internal/catalog"
	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/internal/repository"
	"github.com/iamgideonidoko/persona/pkg/cache"
	"github.com/iamgideonidoko/persona/pkg/logger"
	"github.com/iamgideonidoko/persona/pkg/validator"
)

// ImportMode selects how a catalog import treats rows that already exist.
type ImportMode string

const (
	ImportModeMerge     ImportMode = "merge"
	ImportModeOverwrite ImportMode = "overwrite"
)

// CatalogStore is the persistence surface the catalog service needs.
// *repository.Repository satisfies it.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (string, []models.TraitDefinition, []models.TraitOption, error)
	GetCategories(ctx context.Context) ([]models.TraitCategory, error)
	GetPresets(ctx context.Context) ([]models.TraitGroupPreset, error)
	LatestCatalogVersion(ctx context.Context) (*models.CatalogVersion, error)
	CatalogIsEmpty(ctx context.Context) (bool, error)
	ImportCatalogDocument(ctx context.Context, doc *catalog.Document, overwrite bool) error
}

// CatalogService owns the shared catalog snapshot and the import/export/seed
// paths that replace it. Reads see either the old snapshot or the new one,
// never a half-imported catalog.
type CatalogService struct {
	store CatalogStore
	cache *cache.Cache

	mu       sync.RWMutex
	snapshot *catalog.Snapshot
}

func NewCatalogService(store CatalogStore, c *cache.Cache) *CatalogService {
	return &CatalogService{store: store, cache: c}
}

// Snapshot returns the current catalog view, loading it on first use.
func (s *CatalogService) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return s.Reload(ctx)
}

// Reload rebuilds the snapshot from the store and swaps it in.
func (s *CatalogService) Reload(ctx context.Context) (*catalog.Snapshot, error) {
	version, defs, options, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	snap := catalog.NewSnapshot(version, defs, options)

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	logger.Info("Catalog snapshot loaded", map[string]any{
		"version": version,
		"traits":  len(defs),
		"options": len(options),
	})
	return snap, nil
}

// Import validates and applies an interchange document, then reloads the
// snapshot so subsequent generations see the new catalog.
func (s *CatalogService) Import(ctx context.Context, doc *catalog.Document, mode ImportMode) error {
	if mode != ImportModeMerge && mode != ImportModeOverwrite {
		return fmt.Errorf("unknown import mode %q", mode)
	}
	if err := validator.ValidateCatalogDocument(doc); err != nil {
		return err
	}

	if err := s.store.ImportCatalogDocument(ctx, doc, mode == ImportModeOverwrite); err != nil {
		return fmt.Errorf("import catalog: %w", err)
	}

	if _, err := s.Reload(ctx); err != nil {
		return err
	}

	if s.cache != nil && doc.CatalogVersion != "" {
		if err := s.cache.SetCatalogStamp(ctx, doc.CatalogVersion); err != nil {
			logger.Warn("Failed to stamp catalog version in cache", map[string]any{
				"error": err.Error(),
			})
		}
	}

	logger.Info("Catalog imported", map[string]any{
		"mode":    string(mode),
		"version": doc.CatalogVersion,
	})
	return nil
}

// Export reassembles the current catalog into an interchange document,
// tagged with the latest recorded catalog version.
func (s *CatalogService) Export(ctx context.Context) (*catalog.Document, error) {
	_, defs, options, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("export catalog: %w", err)
	}
	categories, err := s.store.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	presets, err := s.store.GetPresets(ctx)
	if err != nil {
		return nil, err
	}

	doc := &catalog.Document{
		SchemaVersion: catalog.SchemaVersionPrefix + "0",
	}

	version, err := s.store.LatestCatalogVersion(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if version != nil {
		doc.CatalogVersion = version.Version
	}

	optionsByDef := make(map[string][]models.TraitOption)
	for _, opt := range options {
		key := opt.DefinitionID.String()
		optionsByDef[key] = append(optionsByDef[key], opt)
	}

	defsByCategory := make(map[string][]models.TraitDefinition)
	for _, def := range defs {
		key := def.CategoryID.String()
		defsByCategory[key] = append(defsByCategory[key], def)
	}

	for _, cat := range categories {
		catDoc := catalog.CategoryDoc{
			Name:        cat.Name,
			Description: cat.Description,
			Order:       cat.Order,
		}

		catDefs := defsByCategory[cat.ID.String()]
		sort.Slice(catDefs, func(i, j int) bool { return catDefs[i].Key < catDefs[j].Key })

		for _, def := range catDefs {
			traitDoc := catalog.TraitDoc{
				Key:         def.Key,
				DisplayName: def.DisplayName,
				ValueType:   string(def.ValueType),
			}
			if def.DefaultValueJSON != nil {
				traitDoc.DefaultValueJSON = *def.DefaultValueJSON
			}
			if def.DependenciesJSON != nil {
				traitDoc.DependenciesJSON = *def.DependenciesJSON
			}
			if def.ConflictsJSON != nil {
				traitDoc.ConflictsJSON = *def.ConflictsJSON
			}

			for _, opt := range optionsByDef[def.ID.String()] {
				optDoc := catalog.OptionDoc{
					ValueJSON:   opt.ValueJSON,
					Weight:      opt.Weight,
					Region:      opt.Region,
					Vendor:      opt.Vendor,
					DeviceClass: opt.DeviceClass,
				}
				if opt.Label != nil {
					optDoc.Label = *opt.Label
				}
				traitDoc.Options = append(traitDoc.Options, optDoc)
			}
			catDoc.Traits = append(catDoc.Traits, traitDoc)
		}
		doc.Categories = append(doc.Categories, catDoc)
	}

	for _, preset := range presets {
		presetDoc := catalog.PresetDoc{
			Name:       preset.Name,
			TraitsJSON: preset.TraitsJSON,
		}
		if preset.Scope != nil {
			presetDoc.Scope = *preset.Scope
		}
		doc.Presets = append(doc.Presets, presetDoc)
	}

	return doc, nil
}

// SeedDefault imports the built-in starter catalog when the store is empty.
func (s *CatalogService) SeedDefault(ctx context.Context) error {
	empty, err := s.store.CatalogIsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	logger.Info("Seeding built-in starter catalog")
	return s.Import(ctx, catalog.DefaultDocument(), ImportModeMerge)
}

// SeedFromFolder merges every *.json interchange document found in dir,
// in filename order. Unreadable or invalid files are skipped with a warning
// so one bad dataset file cannot block boot.
func (s *CatalogService) SeedFromFolder(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dataset dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable dataset file", map[string]any{
				"file": path, "error": err.Error(),
			})
			continue
		}

		doc, err := catalog.ParseDocument(data)
		if err != nil {
			logger.Warn("Skipping invalid dataset file", map[string]any{
				"file": path, "error": err.Error(),
			})
			continue
		}

		if err := s.Import(ctx, doc, ImportModeMerge); err != nil {
			logger.Warn("Skipping dataset file that failed import", map[string]any{
				"file": path, "error": err.Error(),
			})
		}
	}
	return nil
}
