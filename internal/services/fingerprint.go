package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/internal/repository"
	"github.com/iamgideonidoko/persona/pkg/cache"
	"github.com/iamgideonidoko/persona/pkg/logger"
	"github.com/iamgideonidoko/persona/pkg/validator"
)

// FingerprintService orchestrates generation and compilation against
// persistence: the engine itself stays pure, this layer stores, caches,
// and recompiles.
type FingerprintService struct {
	repo     *repository.Repository
	cache    *cache.Cache
	catalogs *CatalogService
	compiler *Compiler
}

func NewFingerprintService(repo *repository.Repository, c *cache.Cache, catalogs *CatalogService) *FingerprintService {
	return &FingerprintService{
		repo:     repo,
		cache:    c,
		catalogs: catalogs,
		compiler: NewCompiler(),
	}
}

// Generate resolves the request's meta-profile (stored or inline), runs the
// generator against the current catalog snapshot, and persists the result.
func (s *FingerprintService) Generate(ctx context.Context, req models.GenerateRequest) (*models.FingerprintProfile, error) {
	if err := validator.ValidateGenerateRequest(req); err != nil {
		return nil, err
	}

	meta, err := s.resolveMeta(ctx, req)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.catalogs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := NewGenerator(snapshot).GenerateFromMeta(meta, req.Name, req.Seed)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}

	if err := s.cache.SetProfile(ctx, profile); err != nil {
		logger.Warn("Failed to cache generated profile", map[string]any{
			"profile_id": profile.ID.String(), "error": err.Error(),
		})
	}
	if err := s.cache.IncrementMetric(ctx, "profiles_generated"); err != nil {
		logger.Warn("Failed to increment metric", map[string]any{"error": err.Error()})
	}

	logger.Info("Profile generated", map[string]any{
		"profile_id":      profile.ID.String(),
		"meta_profile_id": meta.ID.String(),
		"catalog_version": snapshot.Version(),
	})
	return profile, nil
}

// GetProfile reads a profile through the cache.
func (s *FingerprintService) GetProfile(ctx context.Context, id uuid.UUID) (*models.FingerprintProfile, error) {
	cached, err := s.cache.GetProfile(ctx, id.String())
	if err != nil {
		logger.Warn("Profile cache read failed", map[string]any{
			"profile_id": id.String(), "error": err.Error(),
		})
	}
	if cached != nil {
		if err := s.cache.IncrementMetric(ctx, "cache_hits"); err != nil {
			logger.Warn("Failed to increment metric", map[string]any{"error": err.Error()})
		}
		return cached, nil
	}

	profile, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetProfile(ctx, profile); err != nil {
		logger.Warn("Failed to cache profile", map[string]any{
			"profile_id": id.String(), "error": err.Error(),
		})
	}
	return profile, nil
}

// EnsureCompiled idempotently populates a profile's compiled artifacts. A
// profile with all three artifacts present is returned untouched. The trait
// map comes from the linked meta-profile when there is one; otherwise a
// minimal map is synthesized from the profile's own fields, a degraded but
// functional fallback.
func (s *FingerprintService) EnsureCompiled(ctx context.Context, profile *models.FingerprintProfile) error {
	if profile.HasCompiledArtifacts() {
		return nil
	}

	traits := s.traitsForRecompile(ctx, profile)
	seed := "profile:" + profile.ID.String()
	s.compiler.Compile(profile, traits, seed)

	if err := s.repo.UpdateCompiledArtifacts(ctx, profile); err != nil {
		return err
	}
	if err := s.cache.SetProfile(ctx, profile); err != nil {
		logger.Warn("Failed to refresh cached profile", map[string]any{
			"profile_id": profile.ID.String(), "error": err.Error(),
		})
	}

	logger.Info("Profile artifacts compiled", map[string]any{
		"profile_id": profile.ID.String(),
	})
	return nil
}

func (s *FingerprintService) resolveMeta(ctx context.Context, req models.GenerateRequest) (*models.FingerprintMetaProfile, error) {
	if req.MetaProfileID != nil {
		return s.repo.GetMetaProfile(ctx, *req.MetaProfileID)
	}

	meta := req.Meta
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	}
	now := time.Now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	if meta.Name == "" {
		meta.Name = req.Name
	}
	applyMetaDefaults(meta)

	if err := s.repo.CreateMetaProfile(ctx, meta); err != nil {
		return nil, fmt.Errorf("store inline meta-profile: %w", err)
	}
	return meta, nil
}

func (s *FingerprintService) traitsForRecompile(ctx context.Context, profile *models.FingerprintProfile) models.TraitMap {
	if profile.MetaProfileID != nil {
		meta, err := s.repo.GetMetaProfile(ctx, *profile.MetaProfileID)
		if err == nil {
			traits, parseErr := models.ParseTraitMap(meta.TraitsJSON)
			if parseErr == nil {
				return traits
			}
			logger.Warn("Meta-profile traits unparsable during recompile", map[string]any{
				"profile_id": profile.ID.String(), "error": parseErr.Error(),
			})
		} else {
			logger.Warn("Linked meta-profile unavailable, recompiling from profile fields", map[string]any{
				"profile_id": profile.ID.String(), "error": err.Error(),
			})
		}
	}
	return traitMapFromProfile(profile)
}

// traitMapFromProfile reconstructs the subset of traits recoverable from a
// profile's concrete columns.
func traitMapFromProfile(p *models.FingerprintProfile) models.TraitMap {
	traits := models.TraitMap{
		keyUserAgent:      models.StringValue(p.UserAgent),
		keyAcceptLanguage: models.StringValue(p.AcceptLanguage),
		keyPlatform:       models.StringValue(p.Platform),
		keyLocale:         models.StringValue(p.Locale),
		keyTimezone:       models.StringValue(p.Timezone),
		keyViewportWidth:  models.IntValue(p.ViewportWidth),
		keyViewportHeight: models.IntValue(p.ViewportHeight),
	}
	if p.WebGLVendor != nil {
		traits[keyWebGLVendor] = models.StringValue(*p.WebGLVendor)
	}
	if p.WebGLRenderer != nil {
		traits[keyWebGLRenderer] = models.StringValue(*p.WebGLRenderer)
	}
	return traits
}

// applyMetaDefaults fills the mode switches an inline recipe may omit.
func applyMetaDefaults(meta *models.FingerprintMetaProfile) {
	if meta.FontsMode == "" {
		meta.FontsMode = "system"
	}
	if meta.WebGLImageMode == "" {
		meta.WebGLImageMode = "noise"
	}
	if meta.WebGLInfoMode == "" {
		meta.WebGLInfoMode = "custom"
	}
	if meta.WebGPUMode == "" {
		meta.WebGPUMode = "webgl"
	}
	if meta.AudioContextMode == "" {
		meta.AudioContextMode = "noise"
	}
}
