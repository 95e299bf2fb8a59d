package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/iamgideonidoko/persona/internal/models"
)

func compiledHeaders(t *testing.T, p *models.FingerprintProfile) []headerPair {
	t.Helper()
	if p.CompiledHeadersJSON == nil {
		t.Fatal("headers not compiled")
	}
	var headers []headerPair
	if err := json.Unmarshal([]byte(*p.CompiledHeadersJSON), &headers); err != nil {
		t.Fatalf("compiled headers unparsable: %v", err)
	}
	return headers
}

func TestCompile_HeaderOrderFollowsTrait(t *testing.T) {
	compiler := NewCompiler()
	profile := &models.FingerprintProfile{
		UserAgent:      "Mozilla/5.0 Chrome/141.0.0.0",
		AcceptLanguage: "en-US,en;q=0.9",
	}
	traits := models.TraitMap{
		keyHeadersOrder: models.ArrayValue(
			models.StringValue("accept"),
			models.StringValue("user-agent"),
			models.StringValue("accept-language"),
		),
		keyHeadersExtra: models.ObjectValue(map[string]models.TraitValue{
			"accept": models.StringValue("text/html"),
		}),
	}

	compiler.Compile(profile, traits, "seed")
	headers := compiledHeaders(t, profile)

	if len(headers) != 3 {
		t.Fatalf("got %d headers, want 3", len(headers))
	}
	if headers[0].Name != "accept" || headers[0].Value != "text/html" {
		t.Errorf("headers[0] = %+v", headers[0])
	}
	if headers[1].Name != "user-agent" || headers[1].Value != profile.UserAgent {
		t.Errorf("headers[1] = %+v", headers[1])
	}
	if headers[2].Name != "accept-language" || headers[2].Value != profile.AcceptLanguage {
		t.Errorf("headers[2] = %+v", headers[2])
	}
}

func TestCompile_HeaderDedupeCaseInsensitive(t *testing.T) {
	compiler := NewCompiler()
	profile := &models.FingerprintProfile{UserAgent: "UA", AcceptLanguage: "AL"}
	traits := models.TraitMap{
		keyHeadersOrder: models.ArrayValue(
			models.StringValue("User-Agent"),
			models.StringValue("user-agent"),
			models.StringValue("USER-AGENT"),
		),
	}

	compiler.Compile(profile, traits, "seed")
	headers := compiledHeaders(t, profile)

	if len(headers) != 1 {
		t.Fatalf("duplicate names not suppressed: %+v", headers)
	}
	// First spelling wins.
	if headers[0].Name != "User-Agent" {
		t.Errorf("headers[0].Name = %q", headers[0].Name)
	}
}

func TestCompile_ExtrasAppendedAsSortedTail(t *testing.T) {
	compiler := NewCompiler()
	profile := &models.FingerprintProfile{UserAgent: "UA", AcceptLanguage: "AL"}
	traits := models.TraitMap{
		keyHeadersOrder: models.ArrayValue(models.StringValue("user-agent")),
		keyHeadersExtra: models.ObjectValue(map[string]models.TraitValue{
			"x-b": models.StringValue("2"),
			"x-a": models.StringValue("1"),
			"x-c": models.StringValue("3"),
		}),
	}

	compiler.Compile(profile, traits, "seed")
	headers := compiledHeaders(t, profile)

	if len(headers) != 4 {
		t.Fatalf("got %d headers, want 4", len(headers))
	}
	for i, want := range []string{"user-agent", "x-a", "x-b", "x-c"} {
		if headers[i].Name != want {
			t.Errorf("headers[%d].Name = %q, want %q", i, headers[i].Name, want)
		}
	}
}

func TestCompile_MissingOrderFallsBack(t *testing.T) {
	compiler := NewCompiler()
	profile := &models.FingerprintProfile{UserAgent: "UA", AcceptLanguage: "AL"}

	compiler.Compile(profile, models.TraitMap{}, "seed")
	headers := compiledHeaders(t, profile)

	if len(headers) != 2 || headers[0].Name != "user-agent" || headers[1].Name != "accept-language" {
		t.Errorf("fallback headers = %+v", headers)
	}
}

func TestCompile_ScriptsAndContextOptions(t *testing.T) {
	compiler := NewCompiler()
	vendor := "Intel Inc."
	renderer := "Intel(R) UHD Graphics 630"
	profile := &models.FingerprintProfile{
		UserAgent:      "UA",
		Locale:         "zh-CN",
		Timezone:       "Asia/Shanghai",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		WebGLVendor:    &vendor,
		WebGLRenderer:  &renderer,
	}
	traits := models.TraitMap{
		keyCanvasNoiseSeed: models.IntValue(42),
	}

	compiler.Compile(profile, traits, "seed")

	var scripts scriptsBundle
	if err := json.Unmarshal([]byte(*profile.CompiledScriptsJSON), &scripts); err != nil {
		t.Fatalf("scripts unparsable: %v", err)
	}
	if scripts.Canvas.NoiseSeed != 42 {
		t.Errorf("noise seed = %d, want the authored 42", scripts.Canvas.NoiseSeed)
	}
	if scripts.WebGL.Vendor != vendor || scripts.WebGL.Renderer != renderer {
		t.Errorf("webgl pair = %+v", scripts.WebGL)
	}
	if scripts.Intl.Locale != "zh-CN" || scripts.Intl.Timezone != "Asia/Shanghai" {
		t.Errorf("intl = %+v", scripts.Intl)
	}

	var opts contextOptions
	if err := json.Unmarshal([]byte(*profile.CompiledContextOptionsJSON), &opts); err != nil {
		t.Fatalf("context options unparsable: %v", err)
	}
	if opts.UserAgent != "UA" || opts.TimezoneID != "Asia/Shanghai" {
		t.Errorf("context options = %+v", opts)
	}
	if opts.Viewport.Width != 1920 || opts.Viewport.Height != 1080 {
		t.Errorf("viewport = %+v", opts.Viewport)
	}

	if profile.GeneratorVersion == nil || !strings.HasPrefix(*profile.GeneratorVersion, "1.") {
		t.Error("generator version not stamped")
	}
	if profile.LastGeneratedAt == nil {
		t.Error("compile timestamp not stamped")
	}
}

func TestCompile_DerivedNoiseSeedIsSeedStable(t *testing.T) {
	compiler := NewCompiler()

	a := &models.FingerprintProfile{UserAgent: "UA", AcceptLanguage: "AL"}
	b := &models.FingerprintProfile{UserAgent: "UA", AcceptLanguage: "AL"}
	compiler.Compile(a, models.TraitMap{}, "same-seed")
	compiler.Compile(b, models.TraitMap{}, "same-seed")

	if *a.CompiledScriptsJSON != *b.CompiledScriptsJSON {
		t.Error("derived noise seed must be stable for a given seed")
	}
}
