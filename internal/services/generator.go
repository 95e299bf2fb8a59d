package services

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/catalog"
	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/pkg/detrand"
	"github.com/iamgideonidoko/persona/pkg/logger"
)

// Trait keys the engine treats specially: context hints, the weighted
// backfill set, and the keys mapped onto concrete profile fields.
const (
	keyContextRegion      = "context.region"
	keyContextVendor      = "context.vendor"
	keyContextDeviceClass = "context.deviceClass"

	keyUserAgent       = "browser.userAgent"
	keyAcceptLanguage  = "browser.acceptLanguage"
	keyPlatform        = "browser.platform"
	keyVendor          = "browser.vendor"
	keyPlugins         = "browser.plugins"
	keyUAChPlatform    = "browser.uach.platform"
	keyUAChBrands      = "browser.uach.brands"
	keyUAChMobile      = "browser.uach.mobile"
	keyLocale          = "system.locale"
	keyLanguages       = "system.languages"
	keyTimezone        = "system.timezone"
	keyWebGLVendor     = "graphics.webgl.vendor"
	keyWebGLRenderer   = "graphics.webgl.renderer"
	keyCanvasNoiseSeed = "graphics.canvas.noiseSeed"
	keyViewportWidth   = "device.viewport.width"
	keyViewportHeight  = "device.viewport.height"
	keyHardware        = "device.hardwareConcurrency"
	keyDeviceMemory    = "device.deviceMemory"
	keyMaxTouchPoints  = "device.maxTouchPoints"
	keyAudioSampleRate = "audio.sampleRate"
	keyConnectionType  = "network.connectionType"
	keyConnectionRTT   = "network.rtt"
	keyDownlink        = "network.downlink"
	keyHeadersOrder    = "headers.order"
	keyHeadersExtra    = "headers.extra"
)

// backfillKeys is the fixed set of catalog-governed traits the generator
// weighted-samples when the recipe leaves them open. Order matters: each key
// draws from its own seeded source, but sampling locale before timezone lets
// the dependency pass see the locale choice.
var backfillKeys = []string{
	keyPlatform,
	keyUAChPlatform,
	keyLocale,
	keyTimezone,
	keyWebGLVendor,
	keyWebGLRenderer,
	keyHeadersOrder,
}

// planEntry is one parsed randomization-plan distribution. Bounds are
// pointers so an authored zero bound is distinguishable from an absent one.
type planEntry struct {
	Type   string  `json:"type"`
	Min    *int    `json:"min"`
	Max    *int    `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Generator turns meta-profiles into fully resolved fingerprint profiles.
// All randomness derives from the run seed, so the same meta-profile, name,
// seed, and catalog snapshot always produce the same profile.
type Generator struct {
	snapshot *catalog.Snapshot
	resolver *Resolver
	compiler *Compiler
}

func NewGenerator(snapshot *catalog.Snapshot) *Generator {
	return &Generator{
		snapshot: snapshot,
		resolver: NewResolver(snapshot),
		compiler: NewCompiler(),
	}
}

// GenerateFromMeta is the sole generation entry point. A nil seed derives
// one from the meta-profile identity, which keeps regeneration stable. The
// only hard failure is a dependency cycle; data-quality problems (bad plan
// JSON, missing options) degrade to fallback defaults.
func (g *Generator) GenerateFromMeta(meta *models.FingerprintMetaProfile, name string, seed *string) (*models.FingerprintProfile, error) {
	runSeed := ""
	if seed != nil {
		runSeed = *seed
	}
	if runSeed == "" {
		runSeed = "meta:" + meta.ID.String() + ":" + name
	}

	traits, err := models.ParseTraitMap(meta.TraitsJSON)
	if err != nil {
		logger.Warn("Meta-profile traits unparsable, starting empty", map[string]any{
			"meta_profile_id": meta.ID.String(), "error": err.Error(),
		})
		traits = models.TraitMap{}
	}

	ctx := g.extractContext(traits, runSeed)
	locks := parseLockSet(meta.LockFlagsJSON)

	g.applyRandomizationPlan(traits, locks, meta.RandomizationPlanJSON, runSeed)
	g.backfillFromCatalog(traits, locks, ctx)

	// The fix pass runs first: defaults it backfills join the map before the
	// cycle check, so a cycle among backfilled keys still aborts.
	g.resolver.ApplyDependencyFixes(traits)
	if _, err := g.resolver.ResolveOrder(traits); err != nil {
		return nil, err
	}

	for _, conflict := range g.resolver.DetectConflicts(traits) {
		logger.Warn("Trait conflict in generated profile", map[string]any{
			"name": name, "conflict": conflict,
		})
	}

	applyConsistencyHeuristics(traits)

	profile := g.mapToProfile(meta, name, traits)
	g.compiler.Compile(profile, traits, runSeed)
	return profile, nil
}

// extractContext pulls generation-scope hints out of the trait map. The
// hint keys are recipe metadata, not traits, so they are removed before
// resolution.
func (g *Generator) extractContext(traits models.TraitMap, seed string) models.GenerationContext {
	ctx := models.GenerationContext{
		Region:      traits.StringOr(keyContextRegion, ""),
		Vendor:      traits.StringOr(keyContextVendor, ""),
		DeviceClass: traits.StringOr(keyContextDeviceClass, ""),
		Seed:        seed,
	}
	delete(traits, keyContextRegion)
	delete(traits, keyContextVendor)
	delete(traits, keyContextDeviceClass)
	return ctx
}

// applyRandomizationPlan samples values for planned keys that are neither
// locked nor already present. Every draw comes from the single plan-keyed
// source, consumed in sorted key order so the stream assignment is stable.
func (g *Generator) applyRandomizationPlan(traits models.TraitMap, locks map[string]bool, planJSON *string, seed string) {
	if planJSON == nil || strings.TrimSpace(*planJSON) == "" {
		return
	}

	var plan map[string]json.RawMessage
	if err := json.Unmarshal([]byte(*planJSON), &plan); err != nil {
		logger.Warn("Ignoring unparsable randomization plan", map[string]any{"error": err.Error()})
		return
	}

	keys := make([]string, 0, len(plan))
	for k := range plan {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rng := detrand.Keyed(seed, "plan")
	for _, key := range keys {
		if locks[strings.ToLower(key)] || traits.Has(key) {
			continue
		}

		var entry planEntry
		if err := json.Unmarshal(plan[key], &entry); err != nil {
			logger.Warn("Ignoring unparsable plan entry", map[string]any{
				"trait": key, "error": err.Error(),
			})
			continue
		}

		switch entry.Type {
		case "UniformInt":
			lo, hi := 0, 0
			if entry.Min != nil {
				lo = *entry.Min
			}
			if entry.Max != nil {
				hi = *entry.Max
			}
			if hi < lo {
				lo, hi = hi, lo
			}
			traits[key] = models.IntValue(lo + rng.Intn(hi-lo+1))
		case "NormalInt":
			// Box-Muller; guard u1 away from zero for the log.
			u1 := rng.Float64()
			for u1 == 0 {
				u1 = rng.Float64()
			}
			u2 := rng.Float64()
			z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
			n := int(math.Round(entry.Mean + z*entry.StdDev))
			if entry.Min != nil || entry.Max != nil {
				lo, hi := math.MinInt, math.MaxInt
				if entry.Min != nil {
					lo = *entry.Min
				}
				if entry.Max != nil {
					hi = *entry.Max
				}
				n = clampInt(n, lo, hi)
			}
			traits[key] = models.IntValue(n)
		default:
			logger.Warn("Unknown plan distribution", map[string]any{
				"trait": key, "type": entry.Type,
			})
		}
	}
}

// backfillFromCatalog weighted-samples the fixed catalog-governed key set
// for traits the recipe left open. Each trait draws from its own source
// keyed seed + ":" + traitKey, so adding a key to the set never shifts the
// draws of the others.
func (g *Generator) backfillFromCatalog(traits models.TraitMap, locks map[string]bool, ctx models.GenerationContext) {
	for _, key := range backfillKeys {
		if locks[strings.ToLower(key)] || traits.Has(key) {
			continue
		}

		options := g.snapshot.OptionsFor(key, ctx)
		if len(options) == 0 {
			continue
		}

		rng := detrand.Keyed(ctx.Seed, key)

		total := 0.0
		for _, o := range options {
			if o.Weight > 0 {
				total += o.Weight
			}
		}

		chosen := options[0]
		if total <= 0 {
			chosen = options[rng.Intn(len(options))]
		} else {
			roll := rng.Float64() * total
			cumulative := 0.0
			for _, o := range options {
				if o.Weight <= 0 {
					continue
				}
				cumulative += o.Weight
				if roll < cumulative {
					chosen = o
					break
				}
			}
		}

		traits[key] = models.ParseTraitValue(chosen.ValueJSON)
	}
}

// applyConsistencyHeuristics patches the small cross-trait pairings the
// weighted sampling can leave misaligned.
func applyConsistencyHeuristics(traits models.TraitMap) {
	if !traits.Has(keyTimezone) {
		switch traits.StringOr(keyLocale, "") {
		case "zh-CN":
			traits[keyTimezone] = models.StringValue("Asia/Shanghai")
		case "en-US":
			traits[keyTimezone] = models.StringValue("America/New_York")
		}
	}

	if !traits.Has(keyPlatform) {
		switch strings.Trim(traits.StringOr(keyUAChPlatform, ""), `"`) {
		case "Windows":
			traits[keyPlatform] = models.StringValue("Win32")
		case "macOS":
			traits[keyPlatform] = models.StringValue("MacIntel")
		}
	}
}

// mapToProfile projects the final trait map onto the concrete profile
// columns. Required fields always get a value; the fallbacks are the
// engine's "never leave a required field empty" contract.
func (g *Generator) mapToProfile(meta *models.FingerprintMetaProfile, name string, traits models.TraitMap) *models.FingerprintProfile {
	now := time.Now().UTC()
	metaID := meta.ID

	p := &models.FingerprintProfile{
		ID:            uuid.New(),
		Name:          name,
		MetaProfileID: &metaID,

		UserAgent:      traits.StringOr(keyUserAgent, "Mozilla/5.0"),
		AcceptLanguage: traits.StringOr(keyAcceptLanguage, "zh-CN,zh;q=0.9"),
		Platform:       traits.StringOr(keyPlatform, "Win32"),
		Vendor:         traits.StringOr(keyVendor, "Google Inc."),
		Locale:         traits.StringOr(keyLocale, "zh-CN"),
		Timezone:       traits.StringOr(keyTimezone, "Asia/Shanghai"),
		ViewportWidth:  traits.IntOr(keyViewportWidth, 1366),
		ViewportHeight: traits.IntOr(keyViewportHeight, 768),

		HardwareConcurrency: traits.IntOr(keyHardware, 4),
		DeviceMemory:        traits.IntOr(keyDeviceMemory, 8),
		MaxTouchPoints:      traits.IntOr(keyMaxTouchPoints, 0),

		ConnectionType:     traits.StringOr(keyConnectionType, "4g"),
		ConnectionRTT:      traits.IntOr(keyConnectionRTT, 50),
		ConnectionDownlink: float64(traits.IntOr(keyDownlink, 10)),

		DisableWebRTC:  true,
		DisableDNSLeak: true,

		FontsMode:           meta.FontsMode,
		FontsJSON:           meta.FontsJSON,
		WebGLImageMode:      meta.WebGLImageMode,
		WebGLInfoMode:       meta.WebGLInfoMode,
		WebGPUMode:          meta.WebGPUMode,
		AudioContextMode:    meta.AudioContextMode,
		SpeechVoicesEnabled: meta.SpeechVoicesEnabled,

		CreatedAt: now,
		UpdatedAt: now,
	}

	setOptional(&p.WebGLVendor, traits, keyWebGLVendor)
	setOptional(&p.WebGLRenderer, traits, keyWebGLRenderer)
	setOptional(&p.AudioSampleRate, traits, keyAudioSampleRate)
	setOptionalJSON(&p.PluginsJSON, traits, keyPlugins)
	setOptionalJSON(&p.LanguagesJSON, traits, keyLanguages)
	setOptional(&p.SecChUa, traits, keyUAChBrands)
	setOptional(&p.SecChUaPlatform, traits, keyUAChPlatform)
	setOptional(&p.SecChUaMobile, traits, keyUAChMobile)

	return p
}

func setOptional(dst **string, traits models.TraitMap, key string) {
	if v := traits.StringOr(key, ""); v != "" {
		*dst = &v
	}
}

// setOptionalJSON stores a composite trait's canonical serialization.
func setOptionalJSON(dst **string, traits models.TraitMap, key string) {
	v, ok := traits[key]
	if !ok || v.IsNull() {
		return
	}
	s := v.Canonical()
	*dst = &s
}

func parseLockSet(lockJSON *string) map[string]bool {
	locks := make(map[string]bool)
	if lockJSON == nil || strings.TrimSpace(*lockJSON) == "" {
		return locks
	}
	var raw map[string]bool
	if err := json.Unmarshal([]byte(*lockJSON), &raw); err != nil {
		logger.Warn("Ignoring unparsable lock flags", map[string]any{"error": err.Error()})
		return locks
	}
	for key, locked := range raw {
		if locked {
			locks[strings.ToLower(key)] = true
		}
	}
	return locks
}

func clampInt(n, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
