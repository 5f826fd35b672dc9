// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch fetches a list of subjects from a remote collection into a
// local directory, one subject at a time. A failed subject is logged and
// skipped; it never stops the batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/physionet-sample/pkg/types"
)

var (
	// ErrNoCollection is returned when the batch has no collection identifier.
	ErrNoCollection = errors.New("collection identifier is required")

	// ErrInvalidSubject is recorded for a subject that does not name a single
	// directory below the destination root.
	ErrInvalidSubject = errors.New("invalid subject identifier")
)

// Fetcher transfers every file under remoteDir of a collection into
// localDir, preserving the remote subdirectory layout. It returns an error
// on any failure (missing entry, network error, write error).
type Fetcher interface {
	Fetch(ctx context.Context, collection, remoteDir, localDir string) error
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, collection, remoteDir, localDir string) error

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, collection, remoteDir, localDir string) error {
	return f(ctx, collection, remoteDir, localDir)
}

// RemoteDir returns the remote subdirectory holding a subject's files.
func RemoteDir(collection, subject string) string {
	return path.Join(collection, subject)
}

// ValidateSubject rejects identifiers that would not map to their own
// directory under the destination root: blank names, "." and "..", and
// anything containing a path separator.
func ValidateSubject(subject string) error {
	switch {
	case strings.TrimSpace(subject) == "":
		return fmt.Errorf("%w: empty", ErrInvalidSubject)
	case subject == "." || subject == "..":
		return fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
	case strings.ContainsAny(subject, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSubject, subject)
	}
	return nil
}

// Run creates cfg.OutDir and attempts exactly one transfer per subject, in
// order, into cfg.OutDir/<subject>. Transfer errors are logged as warnings
// and recorded in the result, as are subjects rejected by ValidateSubject,
// which never reach the fetcher. Run only returns an error when the destination
// root cannot be created, in which case no subject is attempted.
func Run(ctx context.Context, fetcher Fetcher, cfg types.BatchConfig, log zerolog.Logger) (types.BatchResult, error) {
	var result types.BatchResult
	if cfg.Collection == "" {
		return result, ErrNoCollection
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return result, fmt.Errorf("creating destination root %s: %w", cfg.OutDir, err)
	}

	for _, subject := range cfg.Subjects {
		dest := filepath.Join(cfg.OutDir, subject)
		remote := RemoteDir(cfg.Collection, subject)

		log.Info().
			Str("collection", cfg.Collection).
			Str("subject", subject).
			Str("dest", dest).
			Msgf("Downloading %s to %s", remote, dest)

		result.Attempted++
		err := ValidateSubject(subject)
		if err == nil {
			err = fetchOne(ctx, fetcher, cfg.Collection, subject, remote, dest, log)
		}
		if err != nil {
			log.Warn().Err(err).
				Str("subject", subject).
				Msgf("Failed to download %s", subject)
			result.Failures = append(result.Failures, types.SubjectFailure{
				Subject: subject,
				Dest:    dest,
				Err:     err,
			})
		}
	}

	result.Root = resolveRoot(cfg.OutDir)
	log.Info().
		Int("attempted", result.Attempted).
		Int("failed", result.Failed()).
		Str("root", result.Root).
		Msgf("Files saved under: %s", result.Root)
	return result, nil
}

// fetchOne runs a single transfer with a subject-scoped logger on the
// context. A panic inside the fetcher is converted to an error so it stays
// isolated to this subject.
func fetchOne(ctx context.Context, fetcher Fetcher, collection, subject, remote, dest string, log zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transfer panicked: %v", r)
		}
	}()
	ctx = log.With().Str("subject", subject).Logger().WithContext(ctx)
	return fetcher.Fetch(ctx, collection, remote, dest)
}

func resolveRoot(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	return abs
}
