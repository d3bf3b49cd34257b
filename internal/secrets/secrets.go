// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Supported key files: registry-token.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvRegistryToken is the environment variable consulted for the registry
// token before the secrets directory.
const EnvRegistryToken = "CORPUS_ENGINE_REGISTRY_TOKEN"

// registryTokenFile is the secrets-directory filename holding the token.
const registryTokenFile = "registry-token"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
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

// RegistryToken resolves the dataset-registry token: the
// CORPUS_ENGINE_REGISTRY_TOKEN environment variable wins, then the
// registry-token file under dir. Returns "" when neither is set; the publish
// stage treats that as an authentication failure.
func RegistryToken(dir string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvRegistryToken)); v != "" {
		return v, nil
	}
	loaded, err := Load(dir)
	if err != nil {
		return "", err
	}
	return loaded[registryTokenFile], nil
}
