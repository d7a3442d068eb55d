package features

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/rfielding/sketchcheck/kripke"
)

// Document is the serialized form of an Instance, as written by the
// reachability and feature providers. JSON documents are valid YAML and are
// read by the same loader.
type Document struct {
	Name     string            `yaml:"name,omitempty" json:"name,omitempty"`
	States   int               `yaml:"states" json:"states"`
	Initial  int               `yaml:"initial" json:"initial"`
	Goals    []int             `yaml:"goals" json:"goals"`
	Edges    []kripke.Edge     `yaml:"edges" json:"edges"`
	Features map[string][]any  `yaml:"features" json:"features"`
	Display  map[string]string `yaml:"display,omitempty" json:"display,omitempty"`
}

// Load reads an instance document from r.
func Load(r io.Reader) (*Instance, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse instance: %w", err)
	}
	return doc.Instance()
}

// LoadFile reads an instance document from path. The instance is named
// after the file unless the document names it.
func LoadFile(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open instance: %w", err)
	}
	defer f.Close()

	var doc Document
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse instance %s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = path
	}
	return doc.Instance()
}

// Instance validates the document and builds the instance it describes.
func (d Document) Instance() (*Instance, error) {
	g, err := kripke.FromEdges(d.States, d.Edges)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(d.Features))
	for name := range d.Features {
		names = append(names, name)
	}
	slices.Sort(names)

	vals := make([]Valuation, 0, len(names))
	for _, name := range names {
		v, err := decodeValuation(name, d.Features[name])
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return NewInstance(g, d.Initial, d.Goals, vals, WithName(d.Name), WithDisplayNames(d.Display))
}

// Document converts the instance back to its serialized form.
func (i *Instance) Document() Document {
	doc := Document{
		Name:     i.name,
		States:   i.Size(),
		Initial:  i.initial,
		Goals:    i.Goals(),
		Edges:    i.graph.Edges(),
		Features: make(map[string][]any, len(i.names)),
		Display:  i.DisplayNames(),
	}
	for _, name := range i.names {
		v := i.vals[name]
		values := make([]any, 0, v.Len())
		if v.Kind == Boolean {
			for _, b := range v.Bools {
				values = append(values, b)
			}
		} else {
			for _, n := range v.Ints {
				values = append(values, n)
			}
		}
		doc.Features[name] = values
	}
	return doc
}

func decodeValuation(name string, raw []any) (Valuation, error) {
	kind, err := KindOf(name)
	if err != nil {
		return Valuation{}, err
	}
	if kind == Boolean {
		values := make([]bool, len(raw))
		for s, x := range raw {
			b, ok := x.(bool)
			if !ok {
				return Valuation{}, fmt.Errorf("%w: %s has %v (%T) in s%d", ErrKindMismatch, name, x, x, s)
			}
			values[s] = b
		}
		return Bools(name, values...), nil
	}
	values := make([]int, len(raw))
	for s, x := range raw {
		n, ok := toInt(x)
		if !ok {
			return Valuation{}, fmt.Errorf("%w: %s has %v (%T) in s%d", ErrKindMismatch, name, x, x, s)
		}
		values[s] = n
	}
	return Ints(name, values...), nil
}

// toInt accepts the integer shapes produced by the YAML and JSON decoders.
func toInt(x any) (int, bool) {
	switch n := x.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
