package record

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

// Category describes one entry of the taxonomy.
type Category struct {
	Code         Section `yaml:"code"`
	Label        string  `yaml:"label"`
	Rule         string  `yaml:"rule"`
	Hint         string  `yaml:"hint,omitempty"`
	LinkOptional bool    `yaml:"link_optional,omitempty"`
	Icon         string  `yaml:"icon"`
	Color        string  `yaml:"color"`
}

// Taxonomy is the versioned category list. Sections are kept in tie-break order.
type Taxonomy struct {
	Version  int        `yaml:"version"`
	Default  Section    `yaml:"default"`
	Sections []Category `yaml:"sections"`

	index map[Section]int
}

// ParseTaxonomy decodes and validates a taxonomy document.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if len(t.Sections) == 0 {
		return nil, fmt.Errorf("taxonomy has no sections")
	}

	t.index = make(map[Section]int, len(t.Sections))
	for i, c := range t.Sections {
		code := Section(strings.ToLower(strings.TrimSpace(string(c.Code))))
		if code == "" {
			return nil, fmt.Errorf("taxonomy section %d has no code", i)
		}
		if _, dup := t.index[code]; dup {
			return nil, fmt.Errorf("taxonomy section %q declared twice", code)
		}
		t.Sections[i].Code = code
		t.index[code] = i
	}

	if _, ok := t.index[t.Default]; !ok {
		return nil, fmt.Errorf("taxonomy default %q is not a declared section", t.Default)
	}

	return &t, nil
}

var defaultTaxonomy = sync.OnceValue(func() *Taxonomy {
	t, err := ParseTaxonomy(taxonomyYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTaxonomy returns the embedded taxonomy.
func DefaultTaxonomy() *Taxonomy {
	return defaultTaxonomy()
}

// Lookup returns the category for code.
func (t *Taxonomy) Lookup(code Section) (Category, bool) {
	i, ok := t.index[code]
	if !ok {
		return Category{}, false
	}
	return t.Sections[i], true
}

// Parse maps a raw category string onto a declared section.
// Matching is case-insensitive and ignores surrounding whitespace.
func (t *Taxonomy) Parse(raw string) (Section, bool) {
	code := Section(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := t.index[code]
	return code, ok
}

// Normalize returns the declared section for raw, or the default section.
func (t *Taxonomy) Normalize(raw string) Section {
	if s, ok := t.Parse(raw); ok {
		return s
	}
	return t.Default
}

// Codes returns all section codes in tie-break order.
func (t *Taxonomy) Codes() []Section {
	codes := make([]Section, len(t.Sections))
	for i, c := range t.Sections {
		codes[i] = c.Code
	}
	return codes
}

// LinkOptional reports whether entries in section never need a link.
func (t *Taxonomy) LinkOptional(s Section) bool {
	c, ok := t.Lookup(s)
	return ok && c.LinkOptional
}
