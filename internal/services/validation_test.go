package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/internal/repository"
	"github.com/iamgideonidoko/persona/pkg/scoring"
)

// fakeValidationStore is an in-memory ValidationStore. AppendValidationReport
// applies the same profile update the real store performs in its transaction.
type fakeValidationStore struct {
	profile *models.FingerprintProfile
	reports []models.FingerprintValidationReport
}

func (f *fakeValidationStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.FingerprintProfile, error) {
	if f.profile == nil || f.profile.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.profile, nil
}

func (f *fakeValidationStore) AppendValidationReport(ctx context.Context, report *models.FingerprintValidationReport) error {
	f.reports = append(f.reports, *report)
	f.profile.RealisticScore = report.RealisticScore
	f.profile.LastValidatedAt = &report.ValidatedAt
	f.profile.LastReportID = &report.ID
	return nil
}

func (f *fakeValidationStore) GetValidationReports(ctx context.Context, profileID uuid.UUID, limit int) ([]models.FingerprintValidationReport, error) {
	if limit > len(f.reports) {
		limit = len(f.reports)
	}
	out := make([]models.FingerprintValidationReport, limit)
	for i := 0; i < limit; i++ {
		out[i] = f.reports[len(f.reports)-1-i]
	}
	return out, nil
}

// oneBehindProfile is internally consistent and fully populated, but carries
// a Chrome major one release behind current, so its realism score (96) and
// total score (98) differ.
func oneBehindProfile() *models.FingerprintProfile {
	vendor := "NVIDIA Corporation"
	renderer := "NVIDIA GeForce RTX 3060/PCIe/SSE2"
	fonts := `["Arial","Helvetica","Times New Roman"]`
	plugins := `["PDF Viewer","Chrome PDF Viewer"]`
	languages := `["en-US","en"]`
	secChUa := `"Chromium";v="140", "Google Chrome";v="140"`
	secChUaPlatform := `"Windows"`

	return &models.FingerprintProfile{
		ID:                  uuid.New(),
		Name:                "one-behind",
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36",
		Platform:            "Win32",
		Locale:              "en-US",
		Timezone:            "America/New_York",
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		HardwareConcurrency: 12,
		DeviceMemory:        16,
		ConnectionRTT:       45,
		ConnectionDownlink:  25,
		WebGLVendor:         &vendor,
		WebGLRenderer:       &renderer,
		FontsJSON:           &fonts,
		PluginsJSON:         &plugins,
		LanguagesJSON:       &languages,
		SecChUa:             &secChUa,
		SecChUaPlatform:     &secChUaPlatform,
	}
}

func TestValidateProfile_CachesRealismScoreOnProfile(t *testing.T) {
	profile := oneBehindProfile()
	store := &fakeValidationStore{profile: profile}
	svc := NewValidationService(store, nil, scoring.NewScorer(141))

	report, err := svc.ValidateProfile(context.Background(), profile.ID)
	if err != nil {
		t.Fatalf("ValidateProfile failed: %v", err)
	}

	if report.RealisticScore != 96 {
		t.Errorf("RealisticScore = %d, want 96", report.RealisticScore)
	}
	if report.TotalScore != 98 {
		t.Errorf("TotalScore = %d, want 98", report.TotalScore)
	}

	// The profile caches the realism axis, not the total.
	if profile.RealisticScore != report.RealisticScore {
		t.Errorf("profile cached score = %d, want realism %d", profile.RealisticScore, report.RealisticScore)
	}
	if profile.LastReportID == nil || *profile.LastReportID != report.ID {
		t.Error("profile latest-report pointer not updated")
	}
}

func TestValidateProfile_AppendsReportHistory(t *testing.T) {
	profile := oneBehindProfile()
	store := &fakeValidationStore{profile: profile}
	svc := NewValidationService(store, nil, scoring.NewScorer(141))

	first, err := svc.ValidateProfile(context.Background(), profile.ID)
	if err != nil {
		t.Fatalf("first validation failed: %v", err)
	}
	second, err := svc.ValidateProfile(context.Background(), profile.ID)
	if err != nil {
		t.Fatalf("second validation failed: %v", err)
	}
	if first.ID == second.ID {
		t.Error("each validation must append a fresh report")
	}

	reports, err := svc.Reports(context.Background(), profile.ID, 10)
	if err != nil {
		t.Fatalf("Reports failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if reports[0].ID != second.ID {
		t.Error("reports must come back newest first")
	}
}

func TestValidateProfile_UnknownProfile(t *testing.T) {
	store := &fakeValidationStore{}
	svc := NewValidationService(store, nil, scoring.NewScorer(141))

	if _, err := svc.ValidateProfile(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}
