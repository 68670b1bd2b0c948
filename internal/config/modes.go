package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultModeID is used as the fallback when a mode's extends chain
// cycles or references a missing parent (§4.8).
const DefaultModeID = "default"

// Mode is a named descriptor tailoring observation/concept/entity
// vocabulary to a project's domain (e.g. "backend", "frontend", "data").
type Mode struct {
	ID                 string            `toml:"id"`
	Name               string            `toml:"name"`
	Description        string            `toml:"description"`
	ObservationTypes   []string          `toml:"observation_types"`
	ConceptVocabulary  []string          `toml:"concept_vocabulary"`
	EntityTypes        []string          `toml:"entity_types"`
	RelationshipTypes  []string          `toml:"relationship_types"`
	PromptOverrides    map[string]string `toml:"prompt_overrides"`
	Extends            string            `toml:"extends"`
}

// LoadModes loads every *.toml file in dir as a Mode, keyed by ID, and
// resolves each mode's `extends` chain via shallow merge.
func LoadModes(dir string) (map[string]*Mode, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Mode{DefaultModeID: defaultMode()}, nil
		}
		return nil, fmt.Errorf("config: read modes dir: %w", err)
	}

	raw := map[string]*Mode{DefaultModeID: defaultMode()}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		var m Mode
		if _, err := toml.DecodeFile(path, &m); err != nil {
			return nil, fmt.Errorf("config: decode mode %s: %w", path, err)
		}
		if m.ID == "" {
			m.ID = strings.TrimSuffix(e.Name(), ".toml")
		}
		raw[m.ID] = &m
	}

	resolved := make(map[string]*Mode, len(raw))
	for id := range raw {
		m, err := resolveMode(id, raw, map[string]bool{})
		if err != nil {
			return nil, err
		}
		resolved[id] = m
	}
	return resolved, nil
}

// resolveMode shallow-merges m's extends chain. A cycle or missing
// parent falls back to the default mode rather than failing the whole
// load, per §4.8.
func resolveMode(id string, raw map[string]*Mode, visiting map[string]bool) (*Mode, error) {
	m, ok := raw[id]
	if !ok {
		return defaultMode(), nil
	}
	if m.Extends == "" {
		return m, nil
	}
	// A cycle anywhere in id's extends chain makes id itself fall back to
	// the default mode, not only the member where the walk comes around.
	seen := map[string]bool{id: true}
	for p := m.Extends; p != ""; {
		if seen[p] {
			return defaultMode(), nil
		}
		seen[p] = true
		pm, ok := raw[p]
		if !ok {
			break
		}
		p = pm.Extends
	}
	if visiting[id] {
		return defaultMode(), nil
	}
	visiting[id] = true

	if _, ok := raw[m.Extends]; !ok {
		return defaultMode(), nil
	}
	resolvedParent, err := resolveMode(m.Extends, raw, visiting)
	if err != nil {
		return nil, err
	}

	return shallowMerge(resolvedParent, m), nil
}

// shallowMerge returns a new Mode with child's non-empty fields
// overriding parent's, field by field (not deep-merged).
func shallowMerge(parent, child *Mode) *Mode {
	merged := *parent
	merged.ID = child.ID
	merged.Extends = ""

	if child.Name != "" {
		merged.Name = child.Name
	}
	if child.Description != "" {
		merged.Description = child.Description
	}
	if len(child.ObservationTypes) > 0 {
		merged.ObservationTypes = child.ObservationTypes
	}
	if len(child.ConceptVocabulary) > 0 {
		merged.ConceptVocabulary = child.ConceptVocabulary
	}
	if len(child.EntityTypes) > 0 {
		merged.EntityTypes = child.EntityTypes
	}
	if len(child.RelationshipTypes) > 0 {
		merged.RelationshipTypes = child.RelationshipTypes
	}
	if len(child.PromptOverrides) > 0 {
		overrides := make(map[string]string, len(parent.PromptOverrides)+len(child.PromptOverrides))
		for k, v := range parent.PromptOverrides {
			overrides[k] = v
		}
		for k, v := range child.PromptOverrides {
			overrides[k] = v
		}
		merged.PromptOverrides = overrides
	}
	return &merged
}

func defaultMode() *Mode {
	return &Mode{
		ID:                DefaultModeID,
		Name:              "Default",
		Description:       "General-purpose coding agent memory",
		ObservationTypes:  []string{"decision", "bugfix", "feature", "refactor", "discovery", "change"},
		ConceptVocabulary: []string{},
		EntityTypes:       []string{"file", "function", "module", "service"},
		RelationshipTypes: []string{"depends_on", "calls", "imports", "modifies"},
	}
}
