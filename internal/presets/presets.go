package presets

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var embeddedPresets []byte

// ErrNotFound is returned when a preset name is not in the library
var ErrNotFound = errors.New("preset not found")

// Preset is a named example query bundled with the sandbox
type Preset struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label" json:"label"`
	Query string `yaml:"query" json:"query"`
}

// presetFile is the on-disk layout of a preset library
type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Library is an ordered, read-only set of presets
type Library struct {
	order  []string
	byName map[string]Preset
}

// Default returns the library bundled with the binary
func Default() (*Library, error) {
	return Load(bytes.NewReader(embeddedPresets))
}

// LoadFile reads a preset library from a YAML file
func LoadFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open presets file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load parses a YAML preset library. Every query has to parse as a
// GraphQL document so a broken preset fails at startup rather than
// as an API error later.
func Load(r io.Reader) (*Library, error) {
	var file presetFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode presets: %w", err)
	}

	lib := &Library{
		order:  make([]string, 0, len(file.Presets)),
		byName: make(map[string]Preset, len(file.Presets)),
	}

	for i, p := range file.Presets {
		p.Name = strings.TrimSpace(p.Name)
		p.Query = strings.TrimRight(p.Query, "\n")

		if p.Name == "" {
			return nil, fmt.Errorf("preset %d has no name", i+1)
		}
		if _, dup := lib.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset name: %s", p.Name)
		}
		if strings.TrimSpace(p.Query) == "" {
			return nil, fmt.Errorf("preset %s has an empty query", p.Name)
		}
		if _, err := parser.ParseQuery(&ast.Source{Name: p.Name, Input: p.Query}); err != nil {
			return nil, fmt.Errorf("preset %s is not a valid GraphQL document: %w", p.Name, err)
		}
		if p.Label == "" {
			p.Label = p.Name
		}

		lib.order = append(lib.order, p.Name)
		lib.byName[p.Name] = p
	}

	return lib, nil
}

// Get looks a preset up by name
func (l *Library) Get(name string) (Preset, error) {
	p, ok := l.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Names returns the preset names in library order
func (l *Library) Names() []string {
	names := make([]string, len(l.order))
	copy(names, l.order)
	return names
}

// All returns every preset in library order
func (l *Library) All() []Preset {
	all := make([]Preset, 0, len(l.order))
	for _, name := range l.order {
		all = append(all, l.byName[name])
	}
	return all
}

// Len is the number of presets in the library
func (l *Library) Len() int {
	return len(l.order)
}
