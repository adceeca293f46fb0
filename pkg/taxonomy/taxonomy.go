// Package taxonomy holds the fixed, read-only concern tree walked by the guided dialogue.
//
// The tree has three levels below the category: category -> topic -> detail -> leaf options.
// A Taxonomy is immutable after loading and safe for concurrent use without synchronization.
package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed concerns.yaml
var defaultConcerns []byte

// ErrUnknownSegment is returned when a lookup key does not exist at its level.
var ErrUnknownSegment = errors.New("unknown taxonomy segment")

// Detail is the last branching level; it carries the leaf options.
type Detail struct {
	Name    string   `yaml:"name" json:"name"`
	Options []string `yaml:"options" json:"options"`
}

// Topic groups details below a category.
type Topic struct {
	Name    string   `yaml:"name" json:"name"`
	Details []Detail `yaml:"details" json:"details"`
}

// Category is a top-level concern.
type Category struct {
	Name   string  `yaml:"name" json:"name"`
	Topics []Topic `yaml:"topics" json:"topics"`
}

// Taxonomy is the loaded concern tree.
type Taxonomy struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// Default returns the built-in concern tree.
func Default() *Taxonomy {
	t, err := Parse(defaultConcerns)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded concerns are invalid: %v", err))
	}
	return t
}

// Load reads a taxonomy from a YAML file.
func Load(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open taxonomy: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a taxonomy from YAML.
func Decode(r io.Reader) (*Taxonomy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML taxonomy.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that every level is non-empty and names are unique among siblings.
func (t *Taxonomy) Validate() error {
	if len(t.Categories) == 0 {
		return errors.New("taxonomy has no categories")
	}
	cats := make(map[string]bool)
	for _, c := range t.Categories {
		if c.Name == "" || cats[c.Name] {
			return fmt.Errorf("invalid or duplicate category %q", c.Name)
		}
		cats[c.Name] = true
		if len(c.Topics) == 0 {
			return fmt.Errorf("category %q has no topics", c.Name)
		}
		topics := make(map[string]bool)
		for _, tp := range c.Topics {
			if tp.Name == "" || topics[tp.Name] {
				return fmt.Errorf("invalid or duplicate topic %q in %q", tp.Name, c.Name)
			}
			topics[tp.Name] = true
			if len(tp.Details) == 0 {
				return fmt.Errorf("topic %q in %q has no details", tp.Name, c.Name)
			}
			details := make(map[string]bool)
			for _, d := range tp.Details {
				if d.Name == "" || details[d.Name] {
					return fmt.Errorf("invalid or duplicate detail %q in %q", d.Name, tp.Name)
				}
				details[d.Name] = true
				if len(d.Options) == 0 {
					return fmt.Errorf("detail %q in %q has no options", d.Name, tp.Name)
				}
			}
		}
	}
	return nil
}

// CategoryNames returns the top-level category names in order.
func (t *Taxonomy) CategoryNames() []string {
	names := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		names[i] = c.Name
	}
	return names
}

// Topics returns the topic names of a category.
func (t *Taxonomy) Topics(category string) ([]string, error) {
	c, err := t.category(category)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(c.Topics))
	for i, tp := range c.Topics {
		names[i] = tp.Name
	}
	return names, nil
}

// Details returns the detail names of a topic.
func (t *Taxonomy) Details(category, topic string) ([]string, error) {
	tp, err := t.topic(category, topic)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tp.Details))
	for i, d := range tp.Details {
		names[i] = d.Name
	}
	return names, nil
}

// Options returns the leaf options of a detail.
func (t *Taxonomy) Options(category, topic, detail string) ([]string, error) {
	tp, err := t.topic(category, topic)
	if err != nil {
		return nil, err
	}
	for _, d := range tp.Details {
		if d.Name == detail {
			return append([]string(nil), d.Options...), nil
		}
	}
	return nil, fmt.Errorf("%w: detail %q", ErrUnknownSegment, detail)
}

// Walk calls fn for every complete path, in tree order.
func (t *Taxonomy) Walk(fn func(category, topic, detail, option string)) {
	for _, c := range t.Categories {
		for _, tp := range c.Topics {
			for _, d := range tp.Details {
				for _, o := range d.Options {
					fn(c.Name, tp.Name, d.Name, o)
				}
			}
		}
	}
}

func (t *Taxonomy) category(name string) (*Category, error) {
	for i := range t.Categories {
		if t.Categories[i].Name == name {
			return &t.Categories[i], nil
		}
	}
	return nil, fmt.Errorf("%w: category %q", ErrUnknownSegment, name)
}

func (t *Taxonomy) topic(category, topic string) (*Topic, error) {
	c, err := t.category(category)
	if err != nil {
		return nil, err
	}
	for i := range c.Topics {
		if c.Topics[i].Name == topic {
			return &c.Topics[i], nil
		}
	}
	return nil, fmt.Errorf("%w: topic %q", ErrUnknownSegment, topic)
}
