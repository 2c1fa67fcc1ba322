package pool

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a pool file.
//
// Example:
//
//	splits:
//	  - name: train
//	    pools:
//	      PHONE: ["9876543210"]
//	      CITY: ["Pune"]
//	    templates:
//	      - text: "call me at {PHONE} in {CITY}"
//	        labels: [PHONE, CITY]
type File struct {
	Splits []SplitDefinition `yaml:"splits"`
}

// SplitDefinition holds the pools and templates of one split.
type SplitDefinition struct {
	Name      string               `yaml:"name"`
	Pools     map[string][]string  `yaml:"pools"`
	Templates []TemplateDefinition `yaml:"templates"`
}

// TemplateDefinition is the YAML form of a Template.
type TemplateDefinition struct {
	Text   string   `yaml:"text"`
	Labels []string `yaml:"labels"`
}

// LoadFile reads a pool file from disk and returns a validated provider.
func LoadFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pool: open %q: %w", path, err)
	}
	defer f.Close()

	p, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("pool: load %q: %w", path, err)
	}
	return p, nil
}

// LoadFromReader parses pool YAML and validates the result.
func LoadFromReader(r io.Reader) (*Static, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode pool yaml: %w", err)
	}

	p, err := file.Provider()
	if err != nil {
		return nil, err
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Provider converts the parsed file into a Static provider.
func (f *File) Provider() (*Static, error) {
	if len(f.Splits) == 0 {
		return nil, fmt.Errorf("pool file defines no splits")
	}

	order := make([]string, 0, len(f.Splits))
	pools := make(map[string]EntityPool, len(f.Splits))
	templates := make(map[string][]Template, len(f.Splits))

	for _, sd := range f.Splits {
		if sd.Name == "" {
			return nil, fmt.Errorf("split without a name")
		}
		if _, dup := pools[sd.Name]; dup {
			return nil, fmt.Errorf("split %q defined twice", sd.Name)
		}

		ep := make(EntityPool, len(sd.Pools))
		for name, values := range sd.Pools {
			label, err := ParseLabel(name)
			if err != nil {
				return nil, fmt.Errorf("split %q: %w", sd.Name, err)
			}
			ep[label] = values
		}

		tmpls := make([]Template, 0, len(sd.Templates))
		for _, td := range sd.Templates {
			labels := make([]Label, 0, len(td.Labels))
			for _, name := range td.Labels {
				label, err := ParseLabel(name)
				if err != nil {
					return nil, fmt.Errorf("split %q: template %q: %w", sd.Name, td.Text, err)
				}
				labels = append(labels, label)
			}
			tmpls = append(tmpls, Template{Text: td.Text, Labels: labels})
		}

		order = append(order, sd.Name)
		pools[sd.Name] = ep
		templates[sd.Name] = tmpls
	}

	return NewStatic(order, pools, templates)
}
