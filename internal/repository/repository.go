package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/iamgideonidoko/persona/internal/catalog"
	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/pkg/logger"
)

var (
	ErrNotFound = errors.New("record not found")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(dsn string, maxConns, maxIdleConns int) (*Repository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	return &Repository{db: db}, nil
}

// Transact runs fn inside a transaction, rolling back on error.
func (r *Repository) Transact(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warn("Failed to roll back transaction", map[string]any{
				"error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ---- Catalog reads ----

// LoadCatalog returns everything the engine needs to build a snapshot: the
// latest recorded catalog version, all definitions, and all options.
func (r *Repository) LoadCatalog(ctx context.Context) (string, []models.TraitDefinition, []models.TraitOption, error) {
	version, err := r.LatestCatalogVersion(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", nil, nil, err
	}

	var defs []models.TraitDefinition
	if err := r.db.SelectContext(ctx, &defs, `SELECT * FROM trait_definitions ORDER BY key`); err != nil {
		return "", nil, nil, fmt.Errorf("failed to load trait definitions: %w", err)
	}

	var options []models.TraitOption
	if err := r.db.SelectContext(ctx, &options, `SELECT * FROM trait_options ORDER BY definition_id, option_id`); err != nil {
		return "", nil, nil, fmt.Errorf("failed to load trait options: %w", err)
	}

	versionStr := ""
	if version != nil {
		versionStr = version.Version
	}
	return versionStr, defs, options, nil
}

// GetCategories returns all trait categories in display order.
func (r *Repository) GetCategories(ctx context.Context) ([]models.TraitCategory, error) {
	var categories []models.TraitCategory
	query := `SELECT * FROM trait_categories ORDER BY display_order, name`
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// GetPresets returns all trait group presets.
func (r *Repository) GetPresets(ctx context.Context) ([]models.TraitGroupPreset, error) {
	var presets []models.TraitGroupPreset
	query := `SELECT * FROM trait_group_presets ORDER BY name`
	if err := r.db.SelectContext(ctx, &presets, query); err != nil {
		return nil, fmt.Errorf("failed to get presets: %w", err)
	}
	return presets, nil
}

// LatestCatalogVersion returns the most recently published catalog version.
func (r *Repository) LatestCatalogVersion(ctx context.Context) (*models.CatalogVersion, error) {
	var version models.CatalogVersion
	query := `SELECT * FROM catalog_versions ORDER BY published_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &version, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest catalog version: %w", err)
	}
	return &version, nil
}

// CatalogIsEmpty reports whether any trait definitions exist yet.
func (r *Repository) CatalogIsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM trait_definitions`); err != nil {
		return false, fmt.Errorf("failed to count trait definitions: %w", err)
	}
	return count == 0, nil
}

// ---- Catalog writes (transactional; used by catalog import) ----

// UpsertCategoryTx inserts a category by name or, when overwrite is set,
// updates its metadata. Returns the category's ID either way.
func (r *Repository) UpsertCategoryTx(tx *sqlx.Tx, cat models.TraitCategory, overwrite bool) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.Get(&existingID, `SELECT category_id FROM trait_categories WHERE name = $1`, cat.Name)
	if err == nil {
		if overwrite {
			_, err = tx.Exec(
				`UPDATE trait_categories SET description = $2, display_order = $3 WHERE category_id = $1`,
				existingID, cat.Description, cat.Order,
			)
			if err != nil {
				return uuid.Nil, fmt.Errorf("failed to update category %q: %w", cat.Name, err)
			}
		}
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to look up category %q: %w", cat.Name, err)
	}

	_, err = tx.Exec(
		`INSERT INTO trait_categories (category_id, name, description, display_order) VALUES ($1, $2, $3, $4)`,
		cat.ID, cat.Name, cat.Description, cat.Order,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert category %q: %w", cat.Name, err)
	}
	return cat.ID, nil
}

// UpsertDefinitionTx inserts a definition by key or, when overwrite is set,
// updates its metadata. Returns the definition's ID either way.
func (r *Repository) UpsertDefinitionTx(tx *sqlx.Tx, def models.TraitDefinition, overwrite bool) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.Get(&existingID, `SELECT definition_id FROM trait_definitions WHERE key = $1`, def.Key)
	if err == nil {
		if overwrite {
			_, err = tx.Exec(`
				UPDATE trait_definitions
				SET display_name = $2, category_id = $3, value_type = $4,
				    default_value_json = $5, dependencies_json = $6, conflicts_json = $7
				WHERE definition_id = $1`,
				existingID, def.DisplayName, def.CategoryID, def.ValueType,
				def.DefaultValueJSON, def.DependenciesJSON, def.ConflictsJSON,
			)
			if err != nil {
				return uuid.Nil, fmt.Errorf("failed to update definition %q: %w", def.Key, err)
			}
		}
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to look up definition %q: %w", def.Key, err)
	}

	_, err = tx.Exec(`
		INSERT INTO trait_definitions
		(definition_id, key, display_name, category_id, value_type, default_value_json, dependencies_json, conflicts_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		def.ID, def.Key, def.DisplayName, def.CategoryID, def.ValueType,
		def.DefaultValueJSON, def.DependenciesJSON, def.ConflictsJSON,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert definition %q: %w", def.Key, err)
	}
	return def.ID, nil
}

// UpsertOptionTx inserts an option unless one with the same value already
// exists for the definition; overwrite mode updates the existing row's
// weight and scope instead.
func (r *Repository) UpsertOptionTx(tx *sqlx.Tx, opt models.TraitOption, overwrite bool) error {
	var existingID uuid.UUID
	err := tx.Get(&existingID,
		`SELECT option_id FROM trait_options WHERE definition_id = $1 AND value_json = $2`,
		opt.DefinitionID, opt.ValueJSON,
	)
	if err == nil {
		if overwrite {
			_, err = tx.Exec(`
				UPDATE trait_options
				SET label = $2, weight = $3, region = $4, vendor = $5, device_class = $6
				WHERE option_id = $1`,
				existingID, opt.Label, opt.Weight, opt.Region, opt.Vendor, opt.DeviceClass,
			)
			if err != nil {
				return fmt.Errorf("failed to update option: %w", err)
			}
		}
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to look up option: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO trait_options
		(option_id, definition_id, value_json, label, weight, region, vendor, device_class)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		opt.ID, opt.DefinitionID, opt.ValueJSON, opt.Label, opt.Weight,
		opt.Region, opt.Vendor, opt.DeviceClass,
	)
	if err != nil {
		return fmt.Errorf("failed to insert option: %w", err)
	}
	return nil
}

// UpsertPresetTx inserts a preset by name, updating its traits in overwrite
// mode.
func (r *Repository) UpsertPresetTx(tx *sqlx.Tx, preset models.TraitGroupPreset, overwrite bool) error {
	var existingID uuid.UUID
	err := tx.Get(&existingID, `SELECT preset_id FROM trait_group_presets WHERE name = $1`, preset.Name)
	if err == nil {
		if overwrite {
			_, err = tx.Exec(
				`UPDATE trait_group_presets SET traits_json = $2, scope = $3 WHERE preset_id = $1`,
				existingID, preset.TraitsJSON, preset.Scope,
			)
			if err != nil {
				return fmt.Errorf("failed to update preset %q: %w", preset.Name, err)
			}
		}
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to look up preset %q: %w", preset.Name, err)
	}

	_, err = tx.Exec(
		`INSERT INTO trait_group_presets (preset_id, name, traits_json, scope, created_at) VALUES ($1, $2, $3, $4, $5)`,
		preset.ID, preset.Name, preset.TraitsJSON, preset.Scope, preset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert preset %q: %w", preset.Name, err)
	}
	return nil
}

// ImportCatalogDocument applies an interchange document in one transaction.
// Merge mode (overwrite=false) inserts rows that do not exist yet and leaves
// existing ones untouched; overwrite mode also updates existing rows'
// metadata. A catalog version row is recorded when the document names one.
func (r *Repository) ImportCatalogDocument(ctx context.Context, doc *catalog.Document, overwrite bool) error {
	return r.Transact(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()

		for _, catDoc := range doc.Categories {
			catID, err := r.UpsertCategoryTx(tx, models.TraitCategory{
				ID:          uuid.New(),
				Name:        catDoc.Name,
				Description: catDoc.Description,
				Order:       catDoc.Order,
			}, overwrite)
			if err != nil {
				return err
			}

			for _, traitDoc := range catDoc.Traits {
				def := models.TraitDefinition{
					ID:          uuid.New(),
					Key:         traitDoc.Key,
					DisplayName: traitDoc.DisplayName,
					CategoryID:  catID,
					ValueType:   models.TraitValueType(traitDoc.ValueType),
				}
				if traitDoc.DefaultValueJSON != "" {
					def.DefaultValueJSON = &traitDoc.DefaultValueJSON
				}
				if traitDoc.DependenciesJSON != "" {
					def.DependenciesJSON = &traitDoc.DependenciesJSON
				}
				if traitDoc.ConflictsJSON != "" {
					def.ConflictsJSON = &traitDoc.ConflictsJSON
				}

				defID, err := r.UpsertDefinitionTx(tx, def, overwrite)
				if err != nil {
					return err
				}

				for _, optDoc := range traitDoc.Options {
					opt := models.TraitOption{
						ID:           uuid.New(),
						DefinitionID: defID,
						ValueJSON:    optDoc.ValueJSON,
						Weight:       optDoc.Weight,
						Region:       optDoc.Region,
						Vendor:       optDoc.Vendor,
						DeviceClass:  optDoc.DeviceClass,
					}
					if optDoc.Label != "" {
						opt.Label = &optDoc.Label
					}
					if err := r.UpsertOptionTx(tx, opt, overwrite); err != nil {
						return err
					}
				}
			}
		}

		for _, presetDoc := range doc.Presets {
			preset := models.TraitGroupPreset{
				ID:         uuid.New(),
				Name:       presetDoc.Name,
				TraitsJSON: presetDoc.TraitsJSON,
				CreatedAt:  now,
			}
			if presetDoc.Scope != "" {
				preset.Scope = &presetDoc.Scope
			}
			if err := r.UpsertPresetTx(tx, preset, overwrite); err != nil {
				return err
			}
		}

		if doc.CatalogVersion != "" {
			return r.RecordCatalogVersionTx(tx, models.CatalogVersion{
				ID:          uuid.New(),
				Version:     doc.CatalogVersion,
				PublishedAt: now,
			})
		}
		return nil
	})
}

// RecordCatalogVersionTx appends a catalog version row.
func (r *Repository) RecordCatalogVersionTx(tx *sqlx.Tx, version models.CatalogVersion) error {
	_, err := tx.Exec(
		`INSERT INTO catalog_versions (version_id, version, published_at, changelog) VALUES ($1, $2, $3, $4)`,
		version.ID, version.Version, version.PublishedAt, version.Changelog,
	)
	if err != nil {
		return fmt.Errorf("failed to record catalog version: %w", err)
	}
	return nil
}

// ---- Meta-profiles ----

// CreateMetaProfile stores a new generation recipe.
func (r *Repository) CreateMetaProfile(ctx context.Context, meta *models.FingerprintMetaProfile) error {
	query := `
		INSERT INTO fingerprint_meta_profiles
		(meta_profile_id, name, traits_json, lock_flags_json, randomization_plan_json,
		 fonts_mode, fonts_json, webgl_image_mode, webgl_info_mode, webgpu_mode,
		 audio_context_mode, speech_voices_enabled, created_at, updated_at)
		VALUES (:meta_profile_id, :name, :traits_json, :lock_flags_json, :randomization_plan_json,
		 :fonts_mode, :fonts_json, :webgl_image_mode, :webgl_info_mode, :webgpu_mode,
		 :audio_context_mode, :speech_voices_enabled, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, meta); err != nil {
		return fmt.Errorf("failed to create meta-profile: %w", err)
	}
	return nil
}

// GetMetaProfile retrieves a meta-profile by ID.
func (r *Repository) GetMetaProfile(ctx context.Context, id uuid.UUID) (*models.FingerprintMetaProfile, error) {
	var meta models.FingerprintMetaProfile
	query := `SELECT * FROM fingerprint_meta_profiles WHERE meta_profile_id = $1`
	if err := r.db.GetContext(ctx, &meta, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meta-profile: %w", err)
	}
	return &meta, nil
}

// ---- Profiles ----

// CreateProfile stores a generated profile with its compiled artifacts.
func (r *Repository) CreateProfile(ctx context.Context, profile *models.FingerprintProfile) error {
	query := `
		INSERT INTO fingerprint_profiles
		(profile_id, name, meta_profile_id, user_agent, accept_language, platform, vendor,
		 locale, timezone, viewport_width, viewport_height, hardware_concurrency, device_memory,
		 max_touch_points, webgl_vendor, webgl_renderer, audio_sample_rate, plugins_json,
		 languages_json, sec_ch_ua, sec_ch_ua_platform, sec_ch_ua_mobile, connection_type,
		 connection_rtt, connection_downlink, disable_webrtc, disable_dns_leak, enable_dnt,
		 fonts_mode, fonts_json, webgl_image_mode, webgl_info_mode, webgpu_mode,
		 audio_context_mode, speech_voices_enabled, compiled_headers_json, compiled_scripts_json,
		 compiled_context_options_json, last_generated_at, generator_version, realistic_score,
		 last_validated_at, last_report_id, created_at, updated_at)
		VALUES (:profile_id, :name, :meta_profile_id, :user_agent, :accept_language, :platform, :vendor,
		 :locale, :timezone, :viewport_width, :viewport_height, :hardware_concurrency, :device_memory,
		 :max_touch_points, :webgl_vendor, :webgl_renderer, :audio_sample_rate, :plugins_json,
		 :languages_json, :sec_ch_ua, :sec_ch_ua_platform, :sec_ch_ua_mobile, :connection_type,
		 :connection_rtt, :connection_downlink, :disable_webrtc, :disable_dns_leak, :enable_dnt,
		 :fonts_mode, :fonts_json, :webgl_image_mode, :webgl_info_mode, :webgpu_mode,
		 :audio_context_mode, :speech_voices_enabled, :compiled_headers_json, :compiled_scripts_json,
		 :compiled_context_options_json, :last_generated_at, :generator_version, :realistic_score,
		 :last_validated_at, :last_report_id, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by ID.
func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*models.FingerprintProfile, error) {
	var profile models.FingerprintProfile
	query := `SELECT * FROM fingerprint_profiles WHERE profile_id = $1`
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// UpdateCompiledArtifacts persists the compiler's output for a profile.
func (r *Repository) UpdateCompiledArtifacts(ctx context.Context, profile *models.FingerprintProfile) error {
	query := `
		UPDATE fingerprint_profiles
		SET compiled_headers_json = :compiled_headers_json,
		    compiled_scripts_json = :compiled_scripts_json,
		    compiled_context_options_json = :compiled_context_options_json,
		    last_generated_at = :last_generated_at,
		    generator_version = :generator_version,
		    updated_at = :updated_at
		WHERE profile_id = :profile_id
	`
	profile.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("failed to update compiled artifacts: %w", err)
	}
	return nil
}

// ---- Validation reports ----

// AppendValidationReport inserts a report and updates the profile's cached
// realism score and latest-report pointer in one transaction. This is the only
// post-generation mutation of a profile's scoring state.
func (r *Repository) AppendValidationReport(ctx context.Context, report *models.FingerprintValidationReport) error {
	return r.Transact(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO fingerprint_validation_reports
			(report_id, profile_id, total_score, consistency_score, realistic_score,
			 cloudflare_risk_score, risk_level, recommendations_json, validation_version, validated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			report.ID, report.ProfileID, report.TotalScore, report.ConsistencyScore,
			report.RealisticScore, report.CloudflareRiskScore, report.RiskLevel,
			report.RecommendationsJSON, report.ValidationVersion, report.ValidatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert validation report: %w", err)
		}

		_, err = tx.Exec(`
			UPDATE fingerprint_profiles
			SET realistic_score = $2, last_validated_at = $3, last_report_id = $4, updated_at = $3
			WHERE profile_id = $1`,
			report.ProfileID, report.RealisticScore, report.ValidatedAt, report.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update profile score: %w", err)
		}
		return nil
	})
}

// GetValidationReports returns a profile's report history, newest first.
func (r *Repository) GetValidationReports(ctx context.Context, profileID uuid.UUID, limit int) ([]models.FingerprintValidationReport, error) {
	var reports []models.FingerprintValidationReport
	query := `
		SELECT * FROM fingerprint_validation_reports
		WHERE profile_id = $1
		ORDER BY validated_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &reports, query, profileID, limit); err != nil {
		return nil, fmt.Errorf("failed to get validation reports: %w", err)
	}
	return reports, nil
}

// HealthCheck verifies database connectivity.
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}
