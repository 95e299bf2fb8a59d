// Package catalog holds the read-only trait catalog view consumed by the
// generation engine. A Snapshot is built once (from the database or from an
// import document) and shared across concurrent generations; catalog writes
// produce a new snapshot instead of mutating one in flight.
package catalog

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/pkg/logger"
)

// Definition is a catalog trait definition with its JSON columns parsed
// into engine-ready form.
type Definition struct {
	models.TraitDefinition

	Dependencies []string
	Conflicts    map[string]models.TraitValue
	Default      *models.TraitValue
	Options      []models.TraitOption
}

// Snapshot is an immutable catalog view keyed by trait key.
type Snapshot struct {
	version string
	defs    map[string]*Definition
}

// NewSnapshot assembles a snapshot from raw rows. Malformed JSON in a
// definition's dependency/conflict/default columns is a data-quality issue:
// the offending column is ignored with a warning and the definition stays
// usable.
func NewSnapshot(version string, defs []models.TraitDefinition, options []models.TraitOption) *Snapshot {
	byID := make(map[uuid.UUID]*Definition, len(defs))
	byKey := make(map[string]*Definition, len(defs))

	for _, d := range defs {
		parsed := &Definition{TraitDefinition: d}

		if d.DependenciesJSON != nil && *d.DependenciesJSON != "" {
			var deps []string
			if err := json.Unmarshal([]byte(*d.DependenciesJSON), &deps); err != nil {
				logger.Warn("Ignoring malformed dependencies", map[string]any{
					"trait": d.Key, "error": err.Error(),
				})
			} else {
				parsed.Dependencies = deps
			}
		}

		if d.ConflictsJSON != nil && *d.ConflictsJSON != "" {
			var rules map[string]models.TraitValue
			if err := json.Unmarshal([]byte(*d.ConflictsJSON), &rules); err != nil {
				logger.Warn("Ignoring malformed conflict rules", map[string]any{
					"trait": d.Key, "error": err.Error(),
				})
			} else {
				parsed.Conflicts = rules
			}
		}

		if d.DefaultValueJSON != nil && *d.DefaultValueJSON != "" {
			v := models.ParseTraitValue(*d.DefaultValueJSON)
			parsed.Default = &v
		}

		byID[d.ID] = parsed
		byKey[d.Key] = parsed
	}

	for _, o := range options {
		if def, ok := byID[o.DefinitionID]; ok {
			def.Options = append(def.Options, o)
		}
	}

	return &Snapshot{version: version, defs: byKey}
}

// Version returns the catalog version the snapshot was built from.
func (s *Snapshot) Version() string { return s.version }

// Definition looks up a trait definition by key.
func (s *Snapshot) Definition(key string) (*Definition, bool) {
	def, ok := s.defs[key]
	return def, ok
}

// Keys returns all definition keys in lexical order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.defs))
	for k := range s.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OptionsFor returns the context-filtered option pool for a trait. An option
// with a nil scope field matches any context; a context with an empty field
// does not filter on that dimension.
func (s *Snapshot) OptionsFor(key string, ctx models.GenerationContext) []models.TraitOption {
	def, ok := s.defs[key]
	if !ok {
		return nil
	}
	out := make([]models.TraitOption, 0, len(def.Options))
	for _, o := range def.Options {
		if !scopeMatches(o.Region, ctx.Region) ||
			!scopeMatches(o.Vendor, ctx.Vendor) ||
			!scopeMatches(o.DeviceClass, ctx.DeviceClass) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func scopeMatches(scope *string, want string) bool {
	if want == "" || scope == nil {
		return true
	}
	return *scope == want
}
