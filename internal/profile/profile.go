// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile loads and validates query profiles. Profiles are
// produced by the upstream query-understanding stage and arrive as YAML;
// the pipeline validates shape only, never the extraction itself.
package profile

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Load reads a query profile from a YAML file and validates its shape.
func Load(path string) (types.QueryProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.QueryProfile{}, fmt.Errorf("reading profile file: %w", err)
	}

	var p types.QueryProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return types.QueryProfile{}, fmt.Errorf("parsing profile file %s: %w", path, err)
	}
	if err := Validate(p); err != nil {
		return types.QueryProfile{}, fmt.Errorf("profile file %s: %w", path, err)
	}
	return p, nil
}

// FromQuery builds a minimal profile from a bare query string, for runs
// where no upstream extraction happened. Tag fields stay empty, which
// puts scoring in its generic mode.
func FromQuery(query string) (types.QueryProfile, error) {
	p := types.QueryProfile{RawQuery: strings.TrimSpace(query)}
	if err := Validate(p); err != nil {
		return types.QueryProfile{}, err
	}
	return p, nil
}

// Save writes a profile to a YAML file.
func Save(path string, p types.QueryProfile) error {
	data, err := yaml.Marshal(&p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing profile file: %w", err)
	}
	return nil
}

// Validate checks profile shape: some query text must exist, and a
// primary tag must appear in its tag set when both are present.
func Validate(p types.QueryProfile) error {
	if p.QueryText() == "" {
		return fmt.Errorf("profile has no raw or expanded query text")
	}
	if p.PrimaryDiseaseTag != "" && !p.HasDiseaseTag(p.PrimaryDiseaseTag) {
		return fmt.Errorf("primary disease tag %q is not in disease_tags", p.PrimaryDiseaseTag)
	}
	if p.PrimaryDecisionTag != "" && !p.HasDecisionTag(p.PrimaryDecisionTag) {
		return fmt.Errorf("primary decision tag %q is not in decision_tags", p.PrimaryDecisionTag)
	}
	return nil
}
