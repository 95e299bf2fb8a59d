package models

import (
	"time"

	"github.com/google/uuid"
)

// TraitValueType enumerates the closed set of value shapes a trait can take.
type TraitValueType string

const (
	TraitTypeString TraitValueType = "String"
	TraitTypeNumber TraitValueType = "Number"
	TraitTypeBool   TraitValueType = "Bool"
	TraitTypeArray  TraitValueType = "Array"
	TraitTypeObject TraitValueType = "Object"
)

// TraitCategory groups trait definitions for presentation and export ordering.
type TraitCategory struct {
	ID          uuid.UUID `db:"category_id" json:"category_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Order       int       `db:"display_order" json:"order"`
}

// TraitDefinition is a single typed attribute of a synthetic browser
// identity, e.g. "graphics.webgl.vendor". Definitions are immutable once
// published into a catalog version; mutation happens only via import.
type TraitDefinition struct {
	ID               uuid.UUID      `db:"definition_id" json:"definition_id"`
	Key              string         `db:"key" json:"key"`
	DisplayName      string         `db:"display_name" json:"display_name"`
	CategoryID       uuid.UUID      `db:"category_id" json:"category_id"`
	ValueType        TraitValueType `db:"value_type" json:"value_type"`
	DefaultValueJSON *string        `db:"default_value_json" json:"default_value_json,omitempty"`
	DependenciesJSON *string        `db:"dependencies_json" json:"dependencies_json,omitempty"`
	ConflictsJSON    *string        `db:"conflicts_json" json:"conflicts_json,omitempty"`
}

// TraitOption is one weighted candidate value for a definition, optionally
// scoped by region/vendor/device class. Weight 0 disables an option without
// deleting it.
type TraitOption struct {
	ID           uuid.UUID `db:"option_id" json:"option_id"`
	DefinitionID uuid.UUID `db:"definition_id" json:"definition_id"`
	ValueJSON    string    `db:"value_json" json:"value_json"`
	Label        *string   `db:"label" json:"label,omitempty"`
	Weight       float64   `db:"weight" json:"weight"`
	Region       *string   `db:"region" json:"region,omitempty"`
	Vendor       *string   `db:"vendor" json:"vendor,omitempty"`
	DeviceClass  *string   `db:"device_class" json:"device_class,omitempty"`
}

// CatalogVersion records a published catalog revision.
type CatalogVersion struct {
	ID          uuid.UUID `db:"version_id" json:"version_id"`
	Version     string    `db:"version" json:"version"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	Changelog   *string   `db:"changelog" json:"changelog,omitempty"`
}

// TraitGroupPreset is a named bundle of trait values carried alongside the
// catalog (e.g. "cn-desktop-chrome").
type TraitGroupPreset struct {
	ID         uuid.UUID `db:"preset_id" json:"preset_id"`
	Name       string    `db:"name" json:"name"`
	TraitsJSON string    `db:"traits_json" json:"traits_json"`
	Scope      *string   `db:"scope" json:"scope,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// GenerationContext scopes one generation run. The seed is the root of all
// randomness in the run: every draw derives from hash(seed + ":" + key), so
// the same seed against the same catalog reproduces the same profile.
type GenerationContext struct {
	Region      string
	Vendor      string
	DeviceClass string
	Seed        string
}

// FingerprintMetaProfile is the generation recipe: a partial trait map,
// lock flags, a randomization plan, and rendering mode switches. The engine
// never mutates it.
type FingerprintMetaProfile struct {
	ID                    uuid.UUID `db:"meta_profile_id" json:"meta_profile_id"`
	Name                  string    `db:"name" json:"name"`
	TraitsJSON            string    `db:"traits_json" json:"traits_json"`
	LockFlagsJSON         *string   `db:"lock_flags_json" json:"lock_flags_json,omitempty"`
	RandomizationPlanJSON *string   `db:"randomization_plan_json" json:"randomization_plan_json,omitempty"`
	FontsMode             string    `db:"fonts_mode" json:"fonts_mode"`
	FontsJSON             *string   `db:"fonts_json" json:"fonts_json,omitempty"`
	WebGLImageMode        string    `db:"webgl_image_mode" json:"webgl_image_mode"`
	WebGLInfoMode         string    `db:"webgl_info_mode" json:"webgl_info_mode"`
	WebGPUMode            string    `db:"webgpu_mode" json:"webgpu_mode"`
	AudioContextMode      string    `db:"audio_context_mode" json:"audio_context_mode"`
	SpeechVoicesEnabled   bool      `db:"speech_voices_enabled" json:"speech_voices_enabled"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// FingerprintProfile is the resolved, compiled output of one generation run.
type FingerprintProfile struct {
	ID            uuid.UUID  `db:"profile_id" json:"profile_id"`
	Name          string     `db:"name" json:"name"`
	MetaProfileID *uuid.UUID `db:"meta_profile_id" json:"meta_profile_id,omitempty"`

	UserAgent      string `db:"user_agent" json:"user_agent"`
	AcceptLanguage string `db:"accept_language" json:"accept_language"`
	Platform       string `db:"platform" json:"platform"`
	Vendor         string `db:"vendor" json:"vendor"`
	Locale         string `db:"locale" json:"locale"`
	Timezone       string `db:"timezone" json:"timezone"`
	ViewportWidth  int    `db:"viewport_width" json:"viewport_width"`
	ViewportHeight int    `db:"viewport_height" json:"viewport_height"`

	HardwareConcurrency int     `db:"hardware_concurrency" json:"hardware_concurrency"`
	DeviceMemory        int     `db:"device_memory" json:"device_memory"`
	MaxTouchPoints      int     `db:"max_touch_points" json:"max_touch_points"`
	WebGLVendor         *string `db:"webgl_vendor" json:"webgl_vendor,omitempty"`
	WebGLRenderer       *string `db:"webgl_renderer" json:"webgl_renderer,omitempty"`
	AudioSampleRate     *string `db:"audio_sample_rate" json:"audio_sample_rate,omitempty"`

	// Anti-detection payload data surfaced to injected scripts.
	PluginsJSON     *string `db:"plugins_json" json:"plugins_json,omitempty"`
	LanguagesJSON   *string `db:"languages_json" json:"languages_json,omitempty"`
	SecChUa         *string `db:"sec_ch_ua" json:"sec_ch_ua,omitempty"`
	SecChUaPlatform *string `db:"sec_ch_ua_platform" json:"sec_ch_ua_platform,omitempty"`
	SecChUaMobile   *string `db:"sec_ch_ua_mobile" json:"sec_ch_ua_mobile,omitempty"`

	ConnectionType     string  `db:"connection_type" json:"connection_type"`
	ConnectionRTT      int     `db:"connection_rtt" json:"connection_rtt"`
	ConnectionDownlink float64 `db:"connection_downlink" json:"connection_downlink"`

	DisableWebRTC  bool `db:"disable_webrtc" json:"disable_webrtc"`
	DisableDNSLeak bool `db:"disable_dns_leak" json:"disable_dns_leak"`
	EnableDNT      bool `db:"enable_dnt" json:"enable_dnt"`

	// Rendering mode switches copied from the meta-profile.
	FontsMode           string  `db:"fonts_mode" json:"fonts_mode"`
	FontsJSON           *string `db:"fonts_json" json:"fonts_json,omitempty"`
	WebGLImageMode      string  `db:"webgl_image_mode" json:"webgl_image_mode"`
	WebGLInfoMode       string  `db:"webgl_info_mode" json:"webgl_info_mode"`
	WebGPUMode          string  `db:"webgpu_mode" json:"webgpu_mode"`
	AudioContextMode    string  `db:"audio_context_mode" json:"audio_context_mode"`
	SpeechVoicesEnabled bool    `db:"speech_voices_enabled" json:"speech_voices_enabled"`

	// Compiled artifacts, regenerable byte-for-byte from the trait map plus
	// the same generator version.
	CompiledHeadersJSON        *string    `db:"compiled_headers_json" json:"compiled_headers_json,omitempty"`
	CompiledScriptsJSON        *string    `db:"compiled_scripts_json" json:"compiled_scripts_json,omitempty"`
	CompiledContextOptionsJSON *string    `db:"compiled_context_options_json" json:"compiled_context_options_json,omitempty"`
	LastGeneratedAt            *time.Time `db:"last_generated_at" json:"last_generated_at,omitempty"`
	GeneratorVersion           *string    `db:"generator_version" json:"generator_version,omitempty"`

	RealisticScore  int        `db:"realistic_score" json:"realistic_score"`
	LastValidatedAt *time.Time `db:"last_validated_at" json:"last_validated_at,omitempty"`
	LastReportID    *uuid.UUID `db:"last_report_id" json:"last_report_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasCompiledArtifacts reports whether all three compiled outputs are set.
func (p *FingerprintProfile) HasCompiledArtifacts() bool {
	return notEmpty(p.CompiledHeadersJSON) &&
		notEmpty(p.CompiledScriptsJSON) &&
		notEmpty(p.CompiledContextOptionsJSON)
}

func notEmpty(s *string) bool { return s != nil && *s != "" }

// Risk tiers derived from the total validation score.
const (
	RiskSafe     = "safe"
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// FingerprintValidationReport is one append-only scoring record for a
// profile. The profile keeps a pointer to its most recent report.
type FingerprintValidationReport struct {
	ID                  uuid.UUID `db:"report_id" json:"report_id"`
	ProfileID           uuid.UUID `db:"profile_id" json:"profile_id"`
	TotalScore          int       `db:"total_score" json:"total_score"`
	ConsistencyScore    int       `db:"consistency_score" json:"consistency_score"`
	RealisticScore      int       `db:"realistic_score" json:"realistic_score"`
	CloudflareRiskScore int       `db:"cloudflare_risk_score" json:"cloudflare_risk_score"`
	RiskLevel           string    `db:"risk_level" json:"risk_level"`
	RecommendationsJSON string    `db:"recommendations_json" json:"recommendations_json"`
	ValidationVersion   string    `db:"validation_version" json:"validation_version"`
	ValidatedAt         time.Time `db:"validated_at" json:"validated_at"`
}

// GenerateRequest is the body of POST /v1/profiles/generate. Either a stored
// meta-profile is referenced by ID or an inline recipe is supplied.
type GenerateRequest struct {
	MetaProfileID *uuid.UUID              `json:"meta_profile_id,omitempty"`
	Meta          *FingerprintMetaProfile `json:"meta,omitempty"`
	Name          string                  `json:"name"`
	Seed          *string                 `json:"seed,omitempty"`
}

// TraitMapRequest is the body of the standalone resolver endpoints.
type TraitMapRequest struct {
	Traits TraitMap `json:"traits"`
}
