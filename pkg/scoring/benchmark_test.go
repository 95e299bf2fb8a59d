package scoring

import (
	"testing"

	"github.com/iamgideonidoko/persona/internal/models"
)

func benchProfile() *models.FingerprintProfile {
	vendor := "NVIDIA Corporation"
	renderer := "NVIDIA GeForce RTX 3060/PCIe/SSE2"
	fonts := `["Arial","Helvetica","Times New Roman"]`
	plugins := `["PDF Viewer","Chrome PDF Viewer"]`
	languages := `["en-US","en"]`
	secChUa := `"Chromium";v="141", "Google Chrome";v="141"`
	secChUaPlatform := `"Windows"`

	return &models.FingerprintProfile{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36",
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

func BenchmarkScore(b *testing.B) {
	scorer := NewScorer(141)
	profile := benchProfile()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.Score(profile)
	}
}

func BenchmarkCheckConsistency(b *testing.B) {
	scorer := NewScorer(141)
	profile := benchProfile()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.checkConsistency(profile)
	}
}
