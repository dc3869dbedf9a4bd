// Package filestore reads harvested CSV artifacts and writes the report and
// state table back to the local filesystem.
package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/geomag-stress-service/internal/domain"
)

// Policy decides which matching artifact counts as the most recent.
type Policy string

const (
	// PolicyName picks the lexicographically greatest filename. Harvesters
	// embed a timestamp in the name, so this is also the newest by content.
	PolicyName Policy = "name"
	// PolicyMtime picks the most recently modified file, ties broken by name.
	PolicyMtime Policy = "mtime"
)

// ParsePolicy validates an artifact selection policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyName, PolicyMtime:
		return p, nil
	default:
		return "", fmt.Errorf("unknown artifact policy %q (want name or mtime)", s)
	}
}

// Location is where one source's artifacts are harvested to.
type Location struct {
	Dir     string
	Pattern string
}

// Loader resolves and parses the newest artifact for each source. One Loader
// applies one Policy to both streams.
type Loader struct {
	locations map[domain.Source]Location
	policy    Policy
	logger    *slog.Logger
}

// NewLoader creates a loader for the given SPACE and GROUND locations.
func NewLoader(space, ground Location, policy Policy, logger *slog.Logger) *Loader {
	return &Loader{
		locations: map[domain.Source]Location{
			domain.SourceSpace:  space,
			domain.SourceGround: ground,
		},
		policy: policy,
		logger: logger,
	}
}

// Policy returns the selection policy shared by both streams.
func (l *Loader) Policy() Policy {
	return l.policy
}

// Load returns the newest series for source. It wraps domain.ErrNoDataAvailable
// when no artifact matches and returns a *domain.LoadError when the artifact
// cannot be parsed.
func (l *Loader) Load(ctx context.Context, source domain.Source) (domain.Series, error) {
	if err := ctx.Err(); err != nil {
		return domain.Series{}, err
	}
	loc, ok := l.locations[source]
	if !ok {
		return domain.Series{}, fmt.Errorf("no location configured for source %s", source)
	}

	path, err := Latest(loc.Dir, loc.Pattern, l.policy)
	if err != nil {
		return domain.Series{}, fmt.Errorf("%s: %w", source, err)
	}
	l.logger.Debug("artifact selected", "source", source, "path", path, "policy", l.policy)

	return ReadSeries(source, path, l.logger)
}

type candidate struct {
	path    string
	name    string
	modTime int64
}

// Latest returns the path of the newest regular file in dir matching pattern.
func Latest(dir, pattern string, policy Policy) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("match %s: %w", pattern, err)
	}

	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, candidate{path: m, name: filepath.Base(m), modTime: info.ModTime().UnixNano()})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: nothing matching %s in %s", domain.ErrNoDataAvailable, pattern, dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if policy == PolicyMtime && a.modTime != b.modTime {
			return a.modTime > b.modTime
		}
		return a.name > b.name
	})
	return candidates[0].path, nil
}
