package sketch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a sketch:
//
//	name: clear-x
//	rules:
//	  - when: {n_above_x: greater}
//	    then: {n_above_x: decr, b_holding: negative}
type Document struct {
	Name  string         `yaml:"name,omitempty"`
	Rules []RuleDocument `yaml:"rules"`
}

// RuleDocument maps feature names to condition and effect tokens.
type RuleDocument struct {
	When map[string]string `yaml:"when,omitempty"`
	Then map[string]string `yaml:"then,omitempty"`
}

// Sketch builds the sketch a document describes.
func (d Document) Sketch() (Sketch, error) {
	rules := make([]Rule, 0, len(d.Rules))
	for i, rd := range d.Rules {
		r, err := rd.Rule()
		if err != nil {
			return Sketch{}, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return New(rules...), nil
}

// Rule builds the rule a document entry describes.
func (rd RuleDocument) Rule() (Rule, error) {
	var conds []Condition
	for _, f := range slices.Sorted(maps.Keys(rd.When)) {
		c, err := ParseCondition(f, rd.When[f])
		if err != nil {
			return Rule{}, err
		}
		conds = append(conds, c)
	}
	var effs []Effect
	for _, f := range slices.Sorted(maps.Keys(rd.Then)) {
		e, err := ParseEffect(f, rd.Then[f])
		if err != nil {
			return Rule{}, err
		}
		effs = append(effs, e)
	}
	return NewRule(conds, effs)
}

// Document converts the sketch to its YAML form.
func (s Sketch) Document(name string) Document {
	doc := Document{Name: name, Rules: make([]RuleDocument, 0, len(s.rules))}
	for _, r := range s.rules {
		rd := RuleDocument{}
		if len(r.conds) > 0 {
			rd.When = make(map[string]string, len(r.conds))
			for _, c := range r.conds {
				rd.When[c.FeatureName()] = c.Token()
			}
		}
		if len(r.effs) > 0 {
			rd.Then = make(map[string]string, len(r.effs))
			for _, e := range r.effs {
				rd.Then[e.FeatureName()] = e.Token()
			}
		}
		doc.Rules = append(doc.Rules, rd)
	}
	return doc
}

// WriteYAML writes the sketch as a YAML document.
func (s Sketch) WriteYAML(w io.Writer, name string) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.Document(name)); err != nil {
		return fmt.Errorf("failed to encode sketch: %w", err)
	}
	return enc.Close()
}

// MarshalJSON encodes a rule as nested tuples:
// [[[feature, token], ...], [[feature, token], ...]].
func (r Rule) MarshalJSON() ([]byte, error) {
	conds := make([][2]string, len(r.conds))
	for i, c := range r.conds {
		conds[i] = [2]string{c.FeatureName(), c.Token()}
	}
	effs := make([][2]string, len(r.effs))
	for i, e := range r.effs {
		effs[i] = [2]string{e.FeatureName(), e.Token()}
	}
	return json.Marshal([2][][2]string{conds, effs})
}

// UnmarshalJSON decodes the tuple form written by MarshalJSON.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw [2][][2]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode rule: %w", err)
	}
	conds := make([]Condition, 0, len(raw[0]))
	for _, t := range raw[0] {
		c, err := ParseCondition(t[0], t[1])
		if err != nil {
			return err
		}
		conds = append(conds, c)
	}
	effs := make([]Effect, 0, len(raw[1]))
	for _, t := range raw[1] {
		e, err := ParseEffect(t[0], t[1])
		if err != nil {
			return err
		}
		effs = append(effs, e)
	}
	parsed, err := NewRule(conds, effs)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalText writes the line format: one JSON tuple per rule.
func (s Sketch) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range s.rules {
		line, err := r.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// UnmarshalText reads the line format. Blank lines are skipped.
func (s *Sketch) UnmarshalText(text []byte) error {
	var rules []Rule
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var r Rule
		if err := r.UnmarshalJSON(line); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		rules = append(rules, r)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	s.rules = rules
	return nil
}

// Load reads a sketch in either the YAML or the line format. Line format
// input starts with '['.
func Load(r io.Reader) (Sketch, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Sketch{}, "", fmt.Errorf("failed to read sketch: %w", err)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var s Sketch
		if err := s.UnmarshalText(trimmed); err != nil {
			return Sketch{}, "", err
		}
		return s, "", nil
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Sketch{}, "", fmt.Errorf("failed to parse sketch: %w", err)
	}
	s, err := doc.Sketch()
	return s, doc.Name, err
}

// LoadFile reads a sketch file. The name defaults to the path.
func LoadFile(path string) (Sketch, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sketch{}, "", fmt.Errorf("failed to open sketch: %w", err)
	}
	defer f.Close()

	s, name, err := Load(f)
	if err != nil {
		return Sketch{}, "", fmt.Errorf("%s: %w", path, err)
	}
	if name == "" {
		name = path
	}
	return s, name, nil
}
