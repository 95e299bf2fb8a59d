package services

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/pkg/detrand"
	"github.com/iamgideonidoko/persona/pkg/logger"
)

// GeneratorVersion stamps compiled artifacts with the compiler revision
// that produced them.
const GeneratorVersion = "1.0.0"

// headerPair is one entry in the ordered header list. Order is part of the
// fingerprint, so headers compile to a list, not a map.
type headerPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type scriptsBundle struct {
	Canvas struct {
		NoiseSeed int `json:"noiseSeed"`
	} `json:"canvas"`
	WebGL struct {
		Vendor   string `json:"vendor"`
		Renderer string `json:"renderer"`
	} `json:"webgl"`
	Audio struct {
		SampleRate string `json:"sampleRate"`
	} `json:"audio"`
	Intl struct {
		Locale   string `json:"locale"`
		Timezone string `json:"timezone"`
	} `json:"intl"`
}

type contextOptions struct {
	UserAgent  string `json:"userAgent"`
	Locale     string `json:"locale"`
	TimezoneID string `json:"timezoneId"`
	Viewport   struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"viewport"`
}

// Compiler derives the wire-level artifacts (header order, injected-script
// parameters, session context) from a resolved profile. Compilation is pure
// over (profile fields, traits, seed): recompiling yields byte-identical
// artifacts.
type Compiler struct{}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile populates the profile's three compiled JSON columns and stamps
// the generator version and compile timestamp.
func (c *Compiler) Compile(p *models.FingerprintProfile, traits models.TraitMap, seed string) {
	headers := c.compileHeaders(p, traits)
	scripts := c.compileScripts(p, traits, seed)
	ctxOpts := c.compileContextOptions(p)

	setArtifact(&p.CompiledHeadersJSON, headers)
	setArtifact(&p.CompiledScriptsJSON, scripts)
	setArtifact(&p.CompiledContextOptionsJSON, ctxOpts)

	version := GeneratorVersion
	now := time.Now().UTC()
	p.GeneratorVersion = &version
	p.LastGeneratedAt = &now
}

// compileHeaders walks the headers.order list, resolving each name from the
// profile's computed fields or the headers.extra map, then appends unplaced
// extras as a sorted tail. Duplicate suppression is on name,
// case-insensitive.
func (c *Compiler) compileHeaders(p *models.FingerprintProfile, traits models.TraitMap) []headerPair {
	order := traits[keyHeadersOrder].Strings()
	if len(order) == 0 {
		order = []string{"user-agent", "accept-language"}
	}

	extra := map[string]string{}
	if v, ok := traits[keyHeadersExtra]; ok {
		extra = v.ObjectStrings()
	}

	headers := make([]headerPair, 0, len(order)+len(extra))
	placed := make(map[string]bool, len(order)+len(extra))

	resolve := func(name string) (string, bool) {
		switch strings.ToLower(name) {
		case "user-agent":
			return p.UserAgent, true
		case "accept-language":
			return p.AcceptLanguage, true
		}
		for extraName, value := range extra {
			if strings.EqualFold(extraName, name) {
				return value, true
			}
		}
		return "", false
	}

	for _, name := range order {
		lower := strings.ToLower(name)
		if placed[lower] {
			continue
		}
		value, ok := resolve(name)
		if !ok {
			continue
		}
		placed[lower] = true
		headers = append(headers, headerPair{Name: name, Value: value})
	}

	tail := make([]string, 0, len(extra))
	for name := range extra {
		if !placed[strings.ToLower(name)] {
			tail = append(tail, name)
		}
	}
	sort.Strings(tail)
	for _, name := range tail {
		placed[strings.ToLower(name)] = true
		headers = append(headers, headerPair{Name: name, Value: extra[name]})
	}

	return headers
}

// compileScripts assembles the parameter bundle consumed by injected
// anti-detection scripts. It is configuration, not script source. The
// canvas noise seed comes from the trait map when authored, otherwise from
// a seed-derived draw so regeneration stays stable.
func (c *Compiler) compileScripts(p *models.FingerprintProfile, traits models.TraitMap, seed string) scriptsBundle {
	var bundle scriptsBundle

	if noise, ok := traits[keyCanvasNoiseSeed]; ok {
		bundle.Canvas.NoiseSeed = noise.IntOr(0)
	} else {
		bundle.Canvas.NoiseSeed = detrand.Keyed(seed, "canvas").Intn(1_000_000)
	}

	if p.WebGLVendor != nil {
		bundle.WebGL.Vendor = *p.WebGLVendor
	}
	if p.WebGLRenderer != nil {
		bundle.WebGL.Renderer = *p.WebGLRenderer
	}
	if p.AudioSampleRate != nil {
		bundle.Audio.SampleRate = *p.AudioSampleRate
	}
	bundle.Intl.Locale = p.Locale
	bundle.Intl.Timezone = p.Timezone

	return bundle
}

func (c *Compiler) compileContextOptions(p *models.FingerprintProfile) contextOptions {
	var opts contextOptions
	opts.UserAgent = p.UserAgent
	opts.Locale = p.Locale
	opts.TimezoneID = p.Timezone
	opts.Viewport.Width = p.ViewportWidth
	opts.Viewport.Height = p.ViewportHeight
	return opts
}

func setArtifact(dst **string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to serialize compiled artifact", map[string]any{"error": err.Error()})
		return
	}
	s := string(data)
	*dst = &s
}
