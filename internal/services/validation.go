package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/pkg/cache"
	"github.com/iamgideonidoko/persona/pkg/logger"
	"github.com/iamgideonidoko/persona/pkg/scoring"
)

// ValidationStore is the persistence surface the validation service needs.
// *repository.Repository satisfies it.
type ValidationStore interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.FingerprintProfile, error)
	AppendValidationReport(ctx context.Context, report *models.FingerprintValidationReport) error
	GetValidationReports(ctx context.Context, profileID uuid.UUID, limit int) ([]models.FingerprintValidationReport, error)
}

// ValidationService scores profiles and maintains their append-only report
// history. Concurrent validations of the same profile are serialized with a
// per-profile mutex so the report insert and the profile's score update
// never interleave.
type ValidationService struct {
	store  ValidationStore
	cache  *cache.Cache
	scorer *scoring.Scorer

	locks sync.Map // profile ID -> *sync.Mutex
}

func NewValidationService(store ValidationStore, c *cache.Cache, scorer *scoring.Scorer) *ValidationService {
	return &ValidationService{
		store:  store,
		cache:  c,
		scorer: scorer,
	}
}

// ValidateProfile scores a profile, appends the report, and updates the
// profile's cached score and latest-report pointer. This is the only
// mutation of a profile after generation.
func (s *ValidationService) ValidateProfile(ctx context.Context, profileID uuid.UUID) (*models.FingerprintValidationReport, error) {
	mu := s.lockFor(profileID)
	mu.Lock()
	defer mu.Unlock()

	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	result := s.scorer.Score(profile)

	recommendations, err := json.Marshal(result.Recommendations)
	if err != nil {
		recommendations = []byte("[]")
	}

	report := &models.FingerprintValidationReport{
		ID:                  uuid.New(),
		ProfileID:           profileID,
		TotalScore:          result.Total,
		ConsistencyScore:    result.Consistency,
		RealisticScore:      result.Realism,
		CloudflareRiskScore: result.Risk,
		RiskLevel:           result.RiskLevel,
		RecommendationsJSON: string(recommendations),
		ValidationVersion:   scoring.ValidationVersion,
		ValidatedAt:         time.Now().UTC(),
	}

	if err := s.store.AppendValidationReport(ctx, report); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateProfile(ctx, profileID.String()); err != nil {
			logger.Warn("Failed to invalidate cached profile", map[string]any{
				"profile_id": profileID.String(), "error": err.Error(),
			})
		}
		if err := s.cache.IncrementMetric(ctx, "validations_run"); err != nil {
			logger.Warn("Failed to increment metric", map[string]any{"error": err.Error()})
		}
	}

	logger.Info("Profile validated", map[string]any{
		"profile_id": profileID.String(),
		"total":      result.Total,
		"risk_level": result.RiskLevel,
	})
	return report, nil
}

// Reports returns a profile's validation history, newest first.
func (s *ValidationService) Reports(ctx context.Context, profileID uuid.UUID, limit int) ([]models.FingerprintValidationReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.GetValidationReports(ctx, profileID, limit)
}

func (s *ValidationService) lockFor(profileID uuid.UUID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(profileID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
