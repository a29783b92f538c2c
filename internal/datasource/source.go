// Package datasource discovers, validates and loads scene sources: YAML and
// JSON scene documents and SQLite scene databases.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/graphview/pkg/scene"
)

// SourceType identifies the type of scene source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite scene database (*.scene.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeYAML is a YAML scene document
	SourceTypeYAML SourceType = "yaml"
	// SourceTypeJSON is a JSON scene document
	SourceTypeJSON SourceType = "json"
)

// Priority values for source types (higher = preferred when equally fresh)
const (
	PrioritySQLite = 100
	PriorityYAML   = 80
	PriorityJSON   = 50
)

// ErrNoSources is returned when discovery finds nothing to load.
var ErrNoSources = errors.New("no scene sources found")

// DataSource represents a potential scene source
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// NodeCount is the number of nodes in the scene (set during validation)
	NodeCount int `json:"node_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, nodes=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.NodeCount, status)
}

// Label is the short form shown in the scene chooser.
func (s DataSource) Label() string {
	return fmt.Sprintf("%s  (%s, %d nodes)", filepath.Base(s.Path), s.Type, s.NodeCount)
}

// TypeForPath maps a file name to a source type.
func TypeForPath(path string) (SourceType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, true
	case ".yaml", ".yml":
		return SourceTypeYAML, true
	case ".json":
		return SourceTypeJSON, true
	}
	return "", false
}

func priorityOf(t SourceType) int {
	switch t {
	case SourceTypeSQLite:
		return PrioritySQLite
	case SourceTypeYAML:
		return PriorityYAML
	}
	return PriorityJSON
}

// SourceFor describes a single file as a source without validating it.
func SourceFor(path string) (DataSource, error) {
	t, ok := TypeForPath(path)
	if !ok {
		return DataSource{}, fmt.Errorf("%w: %s", scene.ErrUnsupportedFormat, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("scene source %s: %w", path, err)
	}
	return DataSource{
		Type:     t,
		Path:     abs,
		Priority: priorityOf(t),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the directory to search (uses cwd if empty)
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// isSceneFile matches *.scene.{yaml,yml,json,db}.
func isSceneFile(name string) bool {
	if _, ok := TypeForPath(name); !ok {
		return false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(strings.ToLower(stem), ".scene")
}

// DiscoverSources finds scene files in a directory, freshest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering scenes in: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() || !isSceneFile(e.Name()) {
			continue
		}
		s, err := SourceFor(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		sources = append(sources, s)
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", s.Type, s.Path, s.ModTime.Format(time.RFC3339)))
		}
	}

	// Validate sources if requested
	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
	}

	// Filter out invalid sources if not including them
	if opts.ValidateAfterDiscovery && !opts.IncludeInvalid {
		var valid []DataSource
		for _, s := range sources {
			if s.Valid {
				valid = append(valid, s)
			}
		}
		sources = valid
	}

	// Sort by mod time, then priority
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

// ValidateSource loads the source and records whether it parsed.
func ValidateSource(s *DataSource) error {
	doc, err := LoadFromSource(*s)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.NodeCount = doc.NodeCount()
	return nil
}

// SelectBestSource returns the first valid source of an already sorted list.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, ErrNoSources
}
