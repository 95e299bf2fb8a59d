package services

import (
	"fmt"
	"sort"

	"github.com/iamgideonidoko/persona/internal/catalog"
	"github.com/iamgideonidoko/persona/internal/models"
)

// CycleError reports a dependency cycle discovered during resolution,
// naming the trait at which the cycle was detected.
type CycleError struct {
	Key string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected at trait %q", e.Key)
}

// Resolver orders, repairs, and cross-checks trait maps against a catalog
// snapshot. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	snapshot *catalog.Snapshot
}

func NewResolver(snapshot *catalog.Snapshot) *Resolver {
	return &Resolver{snapshot: snapshot}
}

// ResolveOrder returns the keys of the trait map in dependency order: every
// trait appears after all of its dependencies that are also present in the
// map. Dependencies absent from the map are skipped (they get backfilled by
// ApplyDependencyFixes, not ordered here). Detection of a cycle aborts with
// a CycleError.
func (r *Resolver) ResolveOrder(traits models.TraitMap) ([]string, error) {
	order := make([]string, 0, len(traits))
	visited := make(map[string]bool, len(traits))
	visiting := make(map[string]bool)

	var visit func(key string) error
	visit = func(key string) error {
		if visited[key] {
			return nil
		}
		if visiting[key] {
			return &CycleError{Key: key}
		}
		visiting[key] = true

		for _, dep := range r.dependenciesOf(key) {
			if !traits.Has(dep) {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		visiting[key] = false
		visited[key] = true
		order = append(order, key)
		return nil
	}

	for _, key := range traits.SortedKeys() {
		if err := visit(key); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// DetectConflicts scans the trait map against the catalog's conflict rules
// and returns human-readable descriptions of each violated pair. Conflicts
// are advisory: they surface in validation output but never block
// generation.
func (r *Resolver) DetectConflicts(traits models.TraitMap) []string {
	var conflicts []string

	for _, key := range traits.SortedKeys() {
		def, ok := r.snapshot.Definition(key)
		if !ok || len(def.Conflicts) == 0 {
			continue
		}

		ruleKeys := make([]string, 0, len(def.Conflicts))
		for k := range def.Conflicts {
			ruleKeys = append(ruleKeys, k)
		}
		sort.Strings(ruleKeys)

		for _, otherKey := range ruleKeys {
			other, present := traits[otherKey]
			if !present {
				continue
			}
			if other.Equal(def.Conflicts[otherKey]) {
				conflicts = append(conflicts, fmt.Sprintf(
					"trait %q conflicts with %q = %s", key, otherKey, other.Canonical()))
			}
		}
	}
	return conflicts
}

// ApplyDependencyFixes backfills missing dependencies of present traits from
// the catalog's default values, in place. Backfilled traits can themselves
// declare dependencies, so the pass runs a worklist to a fixpoint; a second
// call on the result is a no-op. Dependencies without a catalog default are
// left absent.
func (r *Resolver) ApplyDependencyFixes(traits models.TraitMap) {
	queue := traits.SortedKeys()

	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]

		for _, dep := range r.dependenciesOf(key) {
			if traits.Has(dep) {
				continue
			}
			def, ok := r.snapshot.Definition(dep)
			if !ok || def.Default == nil {
				continue
			}
			traits[dep] = *def.Default
			queue = append(queue, dep)
		}
	}
}

// ValidationResult is the outcome of a standalone trait-map check: errors
// make the map unusable, warnings are advisory.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate cross-checks a trait map without mutating it: cycles are errors,
// conflicts and unknown keys are warnings.
func (r *Resolver) Validate(traits models.TraitMap) ValidationResult {
	result := ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	if _, err := r.ResolveOrder(traits); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	result.Warnings = append(result.Warnings, r.DetectConflicts(traits)...)

	for _, key := range traits.SortedKeys() {
		if _, ok := r.snapshot.Definition(key); !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("trait %q is not in the catalog", key))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (r *Resolver) dependenciesOf(key string) []string {
	def, ok := r.snapshot.Definition(key)
	if !ok {
		return nil
	}
	return def.Dependencies
}
