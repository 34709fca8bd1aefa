// Package loader reads wizard definitions from YAML or JSON files.
//
// Files go through the same JSON encoding the stores use, so a definition
// loaded from disk carries the value shapes (float64 numbers, []any lists)
// it would have after a round trip through the admin API.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/petrijr/wizflow/internal/persistence"
	"github.com/petrijr/wizflow/pkg/api"
)

// Format is a definition file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported definition format")

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Loader reads definitions from a filesystem.
type Loader struct {
	FS afero.Fs
}

// New returns a Loader over fs. A nil fs means the OS filesystem.
func New(fs afero.Fs) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{FS: fs}
}

// LoadFile reads one definition.
func (l *Loader) LoadFile(path string) (api.WizardDefinition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return api.WizardDefinition{}, err
	}
	data, err := afero.ReadFile(l.FS, path)
	if err != nil {
		return api.WizardDefinition{}, err
	}
	def, err := Parse(data, format)
	if err != nil {
		return api.WizardDefinition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadDir reads every YAML and JSON file directly under dir, in file name
// order. Other files are skipped. The first unreadable file aborts the load.
func (l *Loader) LoadDir(dir string) ([]api.WizardDefinition, error) {
	entries, err := afero.ReadDir(l.FS, dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var defs []api.WizardDefinition
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := FormatOf(path); err != nil {
			continue
		}
		def, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// WriteFile stores def at path in the format its extension names.
func (l *Loader) WriteFile(path string, def api.WizardDefinition) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Marshal(def, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := l.FS.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return afero.WriteFile(l.FS, path, data, 0o644)
}

// Parse decodes a definition document.
func Parse(data []byte, format Format) (api.WizardDefinition, error) {
	switch format {
	case FormatJSON:
		return persistence.DecodeValue[api.WizardDefinition](data)
	case FormatYAML:
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return api.WizardDefinition{}, err
		}
		if doc == nil {
			return api.WizardDefinition{}, errors.New("empty document")
		}
		// yaml.v3 yields ints and typed slices; the JSON pass turns them into
		// the shapes submissions use.
		raw, err := persistence.EncodeValue(doc)
		if err != nil {
			return api.WizardDefinition{}, err
		}
		return persistence.DecodeValue[api.WizardDefinition](raw)
	}
	return api.WizardDefinition{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Marshal encodes def. JSON output is indented.
func Marshal(def api.WizardDefinition, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(def, "", "  ")
	case FormatYAML:
		return yaml.Marshal(def)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
