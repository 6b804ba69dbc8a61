package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// file is the on-disk shape shared by the YAML and CUE formats.
type file struct {
	Assets map[string]Entry `json:"assets" yaml:"assets"`
}

// schema constrains CUE catalog files before decoding.
const schema = `
#Entry: {
	name:         string & !=""
	type:         string
	location:     string
	criticality?: "Critical" | "High" | "Medium" | "Low"
}
assets: [string]: #Entry
`

// Load reads a catalog file, choosing the format by extension:
// .cue files are validated against the catalog schema, .yaml/.yml/.json are
// decoded as YAML.
func Load(path string) (Static, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml", ".json":
		return LoadYAML(path)
	default:
		return nil, fmt.Errorf("load catalog: unsupported file extension %q", filepath.Ext(path))
	}
}

// LoadYAML reads a catalog from a YAML (or JSON) file.
func LoadYAML(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes catalog YAML.
func ParseYAML(data []byte) (Static, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	for code, e := range f.Assets {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("parse catalog yaml: asset %q has no name", code)
		}
	}
	return NewStatic(f.Assets), nil
}

// LoadCUE reads a catalog from a CUE file.
func LoadCUE(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return ParseCUE(data, path)
}

// ParseCUE compiles catalog CUE source, unifies it with the catalog schema
// and decodes the concrete result.
func ParseCUE(data []byte, filename string) (Static, error) {
	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(schema, cue.Filename("catalog-schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("parse catalog cue: %w", err)
	}

	unified := schemaVal.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate catalog cue: %w", err)
	}

	var f file
	if err := unified.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog cue: %w", err)
	}
	return NewStatic(f.Assets), nil
}
