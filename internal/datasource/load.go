package datasource

import (
	"fmt"

	"github.com/vanderheijden86/graphview/pkg/scene"
)

// Load reads a scene file of any supported type.
func Load(path string) (*scene.Document, error) {
	source, err := SourceFor(path)
	if err != nil {
		return nil, err
	}
	return LoadFromSource(source)
}

// LoadFromDir discovers the scenes in dir and loads the freshest valid one.
func LoadFromDir(dir string) (*scene.Document, DataSource, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return nil, DataSource{}, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, DataSource{}, err
	}
	doc, err := LoadFromSource(best)
	return doc, best, err
}

// LoadFromSource loads a scene from a specific DataSource, dispatching to the
// appropriate reader based on source type.
func LoadFromSource(source DataSource) (*scene.Document, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadScene()

	case SourceTypeYAML, SourceTypeJSON:
		return scene.Load(source.Path)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// Save writes a scene to a file of any supported type. Existing SQLite
// databases are replaced.
func Save(path string, doc *scene.Document) error {
	t, ok := TypeForPath(path)
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrUnsupportedFormat, path)
	}
	if t == SourceTypeSQLite {
		return WriteSQLite(path, doc)
	}
	return scene.Save(path, doc)
}
