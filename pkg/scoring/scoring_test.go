package scoring

import (
	"testing"

	"github.com/iamgideonidoko/persona/internal/models"
)

func strptr(s string) *string { return &s }

// cleanProfile is a fully consistent zh-CN desktop Chrome profile.
func cleanProfile() *models.FingerprintProfile {
	return &models.FingerprintProfile{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36",
		Platform:            "Win32",
		Locale:              "zh-CN",
		Timezone:            "Asia/Shanghai",
		AcceptLanguage:      "zh-CN,zh;q=0.9",
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		HardwareConcurrency: 8,
		DeviceMemory:        16,
		MaxTouchPoints:      0,
		ConnectionType:      "4g",
		ConnectionRTT:       50,
		ConnectionDownlink:  10,
		WebGLVendor:         strptr("Intel Inc."),
		WebGLRenderer:       strptr("Intel(R) UHD Graphics 630"),
		FontsJSON:           strptr(`["Arial","Microsoft YaHei"]`),
		PluginsJSON:         strptr(`["PDF Viewer"]`),
		LanguagesJSON:       strptr(`["zh-CN","zh"]`),
		SecChUa:             strptr(`"Chromium";v="141", "Google Chrome";v="141"`),
		SecChUaPlatform:     strptr(`"Windows"`),
		SecChUaMobile:       strptr("?0"),
	}
}

func TestScore_CleanProfileIsSafe(t *testing.T) {
	result := NewScorer(141).Score(cleanProfile())

	if result.Consistency != 100 {
		t.Errorf("Consistency = %d, want 100", result.Consistency)
	}
	if result.Realism != 100 {
		t.Errorf("Realism = %d, want 100", result.Realism)
	}
	if result.Risk != 0 {
		t.Errorf("Risk = %d, want 0", result.Risk)
	}
	if result.Total != 100 || result.RiskLevel != models.RiskSafe {
		t.Errorf("Total/tier = %d/%s", result.Total, result.RiskLevel)
	}
	if len(result.Recommendations) != 1 {
		t.Errorf("clean profile should get the single affirmative recommendation, got %v", result.Recommendations)
	}
}

func TestScore_HeadlessMarkerDropsTier(t *testing.T) {
	scorer := NewScorer(141)

	clean := scorer.Score(cleanProfile())

	leaked := cleanProfile()
	leaked.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) HeadlessChrome/141.0.0.0 Safari/537.36"
	headless := scorer.Score(leaked)

	if headless.Risk < clean.Risk+30 {
		t.Errorf("headless marker should add 30 risk, got %d vs %d", headless.Risk, clean.Risk)
	}
	if headless.RiskLevel == clean.RiskLevel {
		t.Errorf("headless marker should drop the tier, both %q", headless.RiskLevel)
	}
}

func TestScore_MissingAntiDetectionData(t *testing.T) {
	profile := cleanProfile()
	profile.PluginsJSON = nil
	profile.LanguagesJSON = nil
	profile.SecChUa = nil

	result := NewScorer(141).Score(profile)

	if result.Risk != 60 {
		t.Errorf("Risk = %d, want 60 for three missing data blocks", result.Risk)
	}
	if result.RiskLevel == models.RiskSafe {
		t.Error("profile with missing anti-detection data must not score safe")
	}
	if len(result.Recommendations) < 3 {
		t.Errorf("expected recommendations for each missing block, got %v", result.Recommendations)
	}
}

func TestScore_InconsistentPairs(t *testing.T) {
	profile := cleanProfile()
	profile.Platform = "MacIntel"         // UA says Windows
	profile.Timezone = "America/New_York" // locale is zh-CN
	profile.LanguagesJSON = strptr(`["en-US","en"]`)

	result := NewScorer(141).Score(profile)

	// UA token, UA-CH platform, languages, timezone all fail; only the
	// automation-marker check passes.
	if result.Consistency != 20 {
		t.Errorf("Consistency = %d, want 20", result.Consistency)
	}
}

func TestScore_RealismBands(t *testing.T) {
	scorer := NewScorer(141)

	old := cleanProfile()
	old.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"
	if got := scorer.Score(old).Realism; got != 96 {
		t.Errorf("one-behind Chrome realism = %d, want 96", got)
	}

	weird := cleanProfile()
	weird.HardwareConcurrency = 64
	if got := scorer.Score(weird).Realism; got != 88 {
		t.Errorf("64-core realism = %d, want 88", got)
	}
}

func TestScore_NetworkPenalties(t *testing.T) {
	profile := cleanProfile()
	profile.ConnectionRTT = 5
	profile.ViewportWidth = 1234
	profile.MaxTouchPoints = 5

	result := NewScorer(141).Score(profile)

	// +15 RTT, +15 odd viewport, +10 touch on desktop.
	if result.Risk != 40 {
		t.Errorf("Risk = %d, want 40", result.Risk)
	}
}

func TestScore_RiskCappedAt100(t *testing.T) {
	profile := &models.FingerprintProfile{
		UserAgent:      "HeadlessChrome PhantomJS",
		ViewportWidth:  1,
		MaxTouchPoints: 10,
		ConnectionRTT:  1,
	}

	result := NewScorer(141).Score(profile)
	if result.Risk > 100 {
		t.Errorf("Risk = %d, must be capped at 100", result.Risk)
	}
	if result.Total < 0 || result.Total > 100 {
		t.Errorf("Total = %d, must stay within [0,100]", result.Total)
	}
}

func TestRiskLevelFor_Boundaries(t *testing.T) {
	tests := []struct {
		total int
		want  string
	}{
		{100, models.RiskSafe},
		{90, models.RiskSafe},
		{89, models.RiskLow},
		{70, models.RiskLow},
		{69, models.RiskMedium},
		{50, models.RiskMedium},
		{49, models.RiskHigh},
		{30, models.RiskHigh},
		{29, models.RiskCritical},
		{0, models.RiskCritical},
	}

	for _, tt := range tests {
		if got := RiskLevelFor(tt.total); got != tt.want {
			t.Errorf("RiskLevelFor(%d) = %q, want %q", tt.total, got, tt.want)
		}
	}
}

func TestChromeMajor_Parsing(t *testing.T) {
	if major, ok := chromeMajor("Mozilla/5.0 Chrome/141.0.0.0 Safari/537.36"); !ok || major != 141 {
		t.Errorf("chromeMajor = %d, %v", major, ok)
	}
	if _, ok := chromeMajor("Mozilla/5.0 Firefox/130.0"); ok {
		t.Error("Firefox UA should not yield a Chrome major")
	}
}
