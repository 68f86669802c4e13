package creative

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogFile is the on-disk shape of a format catalog override.
//
//	replace: false          # true drops the built-in formats
//	remove: [billboard]     # ids removed after merging
//	formats:
//	  - id: neon_night
//	    name: Neon Night
//	    kind: mockup
//	    prompt: ...
type CatalogFile struct {
	Replace bool     `yaml:"replace"`
	Remove  []string `yaml:"remove"`
	Formats []Format `yaml:"formats"`
}

// LoadCatalog merges the YAML file at path over the built-in formats.
// An empty path returns the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Builtin(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var merged []Format
	if !file.Replace {
		merged = append(merged, builtinFormats...)
	}
	merged = append(merged, file.Formats...)

	if len(file.Remove) > 0 {
		drop := make(map[string]struct{}, len(file.Remove))
		for _, id := range file.Remove {
			drop[normalizeKey(id)] = struct{}{}
		}
		kept := merged[:0:0]
		for _, f := range merged {
			key := normalizeKey(f.ID)
			if key == "" {
				key = normalizeKey(f.Name)
			}
			if _, ok := drop[key]; ok {
				continue
			}
			kept = append(kept, f)
		}
		merged = kept
	}

	if len(merged) == 0 {
		return nil, fmt.Errorf("catalog has no formats")
	}
	return NewCatalog(merged)
}
