// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: ncbi-api-key, rerank-api-key, serp-api-key,
// dailymed-contact-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key names the engine looks for in the secrets directory.
const (
	KeyNCBIAPI      = "ncbi-api-key"
	KeyRerankAPI    = "rerank-api-key"
	KeySerpAPI      = "serp-api-key"
	KeyContactEmail = "dailymed-contact-email"
)

// Secrets maps key-file names to their trimmed contents.
type Secrets map[string]string

// Get returns the value for key, or the empty string when absent.
func (s Secrets) Get(key string) string { return s[key] }

// NCBIAPIKey returns the E-utilities key that raises the PubMed rate limit.
func (s Secrets) NCBIAPIKey() string { return s[KeyNCBIAPI] }

// RerankAPIKey returns the cross-encoder service key.
func (s Secrets) RerankAPIKey() string { return s[KeyRerankAPI] }

// SerpAPIKey returns the key that enables the web-search fallback source.
func (s Secrets) SerpAPIKey() string { return s[KeySerpAPI] }

// ContactEmail returns the address sent to polite-pool APIs.
func (s Secrets) ContactEmail() string { return s[KeyContactEmail] }

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
