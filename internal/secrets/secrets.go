// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads PhysioNet credentials from a directory of plain-text
// files. Each file holds one value: the filename is the key and the trimmed
// contents are the value.
//
// Supported key files: physionet-username, physionet-password.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/physionet-sample/pkg/types"
)

const (
	KeyUsername = "physionet-username"
	KeyPassword = "physionet-password"

	EnvUsername = "PHYSIONET_USERNAME"
	EnvPassword = "PHYSIONET_PASSWORD"
)

// Load reads all regular, non-hidden files in dir and returns a map of
// filename to trimmed contents. A missing directory is not an error.
// Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("Could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Credentials builds PhysioNet credentials from loaded secrets, falling back
// to the PHYSIONET_USERNAME and PHYSIONET_PASSWORD environment variables for
// values the secrets directory does not provide.
func Credentials(s map[string]string) types.Credentials {
	return types.Credentials{
		Username: firstNonEmpty(s[KeyUsername], os.Getenv(EnvUsername)),
		Password: firstNonEmpty(s[KeyPassword], os.Getenv(EnvPassword)),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
