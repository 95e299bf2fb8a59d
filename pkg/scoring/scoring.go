// Package scoring rates finished fingerprint profiles along three
// independent axes: internal consistency, statistical realism, and
// adversarial detection risk. Scores are the product, not errors; even a
// maximally inconsistent profile scores successfully (tier "critical").
package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iamgideonidoko/persona/internal/models"
)

// ValidationVersion tags reports with the scoring rule revision.
const ValidationVersion = "1.0"

// DefaultChromeMajor is the release line considered "current" when no
// configuration overrides it.
const DefaultChromeMajor = 141

// automationMarkers are user-agent tokens no genuine browser ships.
var automationMarkers = []string{"HeadlessChrome", "PhantomJS", "Electron", "SlimerJS"}

// commonViewportWidths are the desktop widths detectors see constantly;
// anything else stands out.
var commonViewportWidths = map[int]bool{1280: true, 1366: true, 1920: true}

// timezoneLocalePrefix maps well-known timezones to the locale prefix they
// plausibly pair with. Timezones outside the table pass the check.
var timezoneLocalePrefix = map[string]string{
	"Asia/Shanghai":    "zh",
	"Asia/Tokyo":       "ja",
	"Europe/London":    "en",
	"America/New_York": "en",
}

// uachPlatformMap aligns Sec-CH-UA-Platform tokens with navigator.platform.
var uachPlatformMap = map[string]string{
	"Windows": "Win32",
	"macOS":   "MacIntel",
	"Linux":   "Linux x86_64",
}

// Result is one full scoring pass over a profile.
type Result struct {
	Consistency     int
	Realism         int
	Risk            int
	Total           int
	RiskLevel       string
	Recommendations []string
}

// Scorer computes validation scores. It carries the "current" Chrome major
// so the realism band moves with releases instead of a hard-coded literal.
type Scorer struct {
	chromeMajor int
}

func NewScorer(currentChromeMajor int) *Scorer {
	if currentChromeMajor <= 0 {
		currentChromeMajor = DefaultChromeMajor
	}
	return &Scorer{chromeMajor: currentChromeMajor}
}

// Score runs all three axes and derives the total and tier.
func (s *Scorer) Score(p *models.FingerprintProfile) Result {
	consistency := s.checkConsistency(p)
	realism := s.checkRealism(p)
	risk := s.checkRisk(p)

	total := (consistency + realism + (100 - risk)) / 3

	return Result{
		Consistency:     consistency,
		Realism:         realism,
		Risk:            risk,
		Total:           total,
		RiskLevel:       RiskLevelFor(total),
		Recommendations: s.recommend(p, consistency, realism, risk),
	}
}

// RiskLevelFor maps a total score onto the categorical risk tier.
func RiskLevelFor(total int) string {
	switch {
	case total >= 90:
		return models.RiskSafe
	case total >= 70:
		return models.RiskLow
	case total >= 50:
		return models.RiskMedium
	case total >= 30:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// checkConsistency is an equal-weighted pass/fail checklist over the
// pairwise relationships detectors correlate first.
func (s *Scorer) checkConsistency(p *models.FingerprintProfile) int {
	checks := []bool{
		strings.Contains(p.UserAgent, platformUAToken(p.Platform)),
		uachMatchesPlatform(deref(p.SecChUaPlatform), p.Platform),
		languagesContainLocale(deref(p.LanguagesJSON), p.Locale),
		timezoneMatchesLocale(p.Timezone, p.Locale),
		!hasAutomationMarker(p.UserAgent),
	}

	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	return passed * 100 / len(checks)
}

// checkRealism averages five component scores; each component degrades
// instead of failing outright.
func (s *Scorer) checkRealism(p *models.FingerprintProfile) int {
	scores := []int{
		s.chromeVersionScore(p.UserAgent),
		hardwareScore(p.HardwareConcurrency),
		pairScore(deref(p.WebGLVendor) != "" && deref(p.WebGLRenderer) != "", 100, 50),
		pairScore(deref(p.FontsJSON) != "", 100, 50),
		pairScore(deref(p.PluginsJSON) != "" && deref(p.LanguagesJSON) != "" && deref(p.SecChUa) != "", 100, 60),
	}

	sum := 0
	for _, v := range scores {
		sum += v
	}
	return sum / len(scores)
}

// checkRisk accumulates penalties for the tells Cloudflare-class detectors
// key on. Lower is better; capped at 100.
func (s *Scorer) checkRisk(p *models.FingerprintProfile) int {
	risk := 0

	if hasAutomationMarker(p.UserAgent) {
		risk += 30
	}
	if deref(p.PluginsJSON) == "" {
		risk += 20
	}
	if deref(p.LanguagesJSON) == "" {
		risk += 20
	}
	if deref(p.SecChUa) == "" {
		risk += 20
	}
	if !commonViewportWidths[p.ViewportWidth] {
		risk += 15
	}
	if p.MaxTouchPoints > 0 {
		risk += 10
	}
	if p.ConnectionRTT < 20 || p.ConnectionDownlink > 100 {
		risk += 15
	}

	return min(risk, 100)
}

func (s *Scorer) recommend(p *models.FingerprintProfile, consistency, realism, risk int) []string {
	var recs []string

	if consistency < 70 {
		recs = append(recs, "Consistency is low: review user-agent, platform, and language alignment")
	}
	if hasAutomationMarker(p.UserAgent) {
		recs = append(recs, "User agent carries an automation marker; use a genuine browser UA")
	}

	if realism < 70 {
		if deref(p.WebGLVendor) == "" || deref(p.WebGLRenderer) == "" {
			recs = append(recs, "Missing WebGL vendor/renderer; add GPU information")
		}
		if deref(p.FontsJSON) == "" {
			recs = append(recs, "Missing font list; add a realistic font set")
		}
		if p.HardwareConcurrency < 8 || p.HardwareConcurrency > 16 {
			recs = append(recs, "Hardware concurrency is unusual; 8-16 cores is typical for desktops")
		}
	}

	if risk > 50 {
		if deref(p.PluginsJSON) == "" {
			recs = append(recs, "Missing plugins data; detectors flag empty plugin lists")
		}
		if deref(p.LanguagesJSON) == "" {
			recs = append(recs, "Missing languages data; detectors flag empty language lists")
		}
		if deref(p.SecChUa) == "" {
			recs = append(recs, "Missing Sec-CH-UA client hints; detectors flag their absence")
		}
		if p.ConnectionRTT < 20 {
			recs = append(recs, fmt.Sprintf("Network RTT of %dms is implausibly low for a residential connection", p.ConnectionRTT))
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "Fingerprint configuration looks good")
	}
	return recs
}

// chromeVersionScore bands the UA's Chrome major: current 100, one behind
// 80, anything else (or no Chrome token) 60.
func (s *Scorer) chromeVersionScore(ua string) int {
	major, ok := chromeMajor(ua)
	switch {
	case ok && major == s.chromeMajor:
		return 100
	case ok && major == s.chromeMajor-1:
		return 80
	default:
		return 60
	}
}

func chromeMajor(ua string) (int, bool) {
	idx := strings.Index(ua, "Chrome/")
	if idx < 0 {
		return 0, false
	}
	rest := ua[idx+len("Chrome/"):]
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end == 0 {
		return 0, false
	}
	if end < 0 {
		end = len(rest)
	}
	major, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return major, true
}

func hardwareScore(concurrency int) int {
	switch {
	case concurrency >= 8 && concurrency <= 16:
		return 100
	case concurrency >= 4 && concurrency <= 32:
		return 70
	default:
		return 40
	}
}

func pairScore(ok bool, pass, fail int) int {
	if ok {
		return pass
	}
	return fail
}

// platformUAToken maps navigator.platform values to the token the matching
// user-agent actually carries ("Win32" never appears in a Windows UA).
func platformUAToken(platform string) string {
	switch platform {
	case "Win32":
		return "Windows"
	case "MacIntel":
		return "Mac"
	case "Linux x86_64":
		return "Linux"
	default:
		return platform
	}
}

func uachMatchesPlatform(uach, platform string) bool {
	if uach == "" {
		return true
	}
	uach = strings.Trim(uach, `"`)
	if expected, ok := uachPlatformMap[uach]; ok {
		return expected == platform
	}
	return strings.Contains(strings.ToLower(platform), strings.ToLower(uach))
}

func languagesContainLocale(languagesJSON, locale string) bool {
	if languagesJSON == "" {
		return true
	}
	return strings.Contains(strings.ToLower(languagesJSON), strings.ToLower(locale))
}

func timezoneMatchesLocale(timezone, locale string) bool {
	prefix, ok := timezoneLocalePrefix[timezone]
	if !ok {
		return true
	}
	return strings.HasPrefix(strings.ToLower(locale), prefix)
}

func hasAutomationMarker(ua string) bool {
	for _, marker := range automationMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
