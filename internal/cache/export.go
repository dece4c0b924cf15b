// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ExportYAML writes a cached package to <cache-dir>/<id>.yaml and
// returns the path written.
func (s *Store) ExportYAML(ctx context.Context, id string) (string, error) {
	pkg, found, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("no cached package %s", id)
	}

	path := filepath.Join(s.cacheDir, id+".yaml")
	data, err := yaml.Marshal(pkg)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes a cached package to <cache-dir>/<id>.json and
// returns the path written.
func (s *Store) ExportJSON(ctx context.Context, id string) (string, error) {
	pkg, found, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("no cached package %s", id)
	}

	path := filepath.Join(s.cacheDir, id+".json")
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// WritePackage marshals a freshly built package to a file without
// going through the database, for pipeline runs with --output.
func WritePackage(pkg types.EvidencePackage, path string) error {
	var data []byte
	var err error
	if filepath.Ext(path) == ".json" {
		data, err = json.MarshalIndent(pkg, "", "  ")
	} else {
		data, err = yaml.Marshal(pkg)
	}
	if err != nil {
		return fmt.Errorf("marshaling package: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
