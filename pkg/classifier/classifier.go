// Package classifier assigns categories to expense descriptions using an
// ordered keyword rule table.
package classifier

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFallback is the label returned when no rule matches.
const DefaultFallback = "Other"

//go:embed rules.json
var defaultRulesJSON []byte

// Rule maps any of its keywords to Label.
type Rule struct {
	Label    string   `json:"label" koanf:"label"`
	Keywords []string `json:"keywords" koanf:"keywords"`
}

// Table is the serialised form of a rule set.
type Table struct {
	Fallback string `json:"fallback" koanf:"fallback"`
	Rules    []Rule `json:"rules" koanf:"rules"`
}

// Classifier evaluates rules in order; the first rule with a keyword
// contained in the lower-cased description wins.
type Classifier struct {
	rules    []Rule
	fallback string
}

// New builds a classifier from rules. An empty fallback means DefaultFallback.
func New(rules []Rule, fallback string) (*Classifier, error) {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultFallback
	}

	compiled := make([]Rule, 0, len(rules))
	for i, r := range rules {
		label := strings.TrimSpace(r.Label)
		if label == "" {
			return nil, fmt.Errorf("rule %d: empty label", i)
		}

		keywords := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no keywords", i, label)
		}

		compiled = append(compiled, Rule{Label: label, Keywords: keywords})
	}

	return &Classifier{rules: compiled, fallback: fallback}, nil
}

// Default returns the classifier built from the embedded rule table.
func Default() *Classifier {
	var t Table
	if err := json.Unmarshal(defaultRulesJSON, &t); err != nil {
		panic(fmt.Sprintf("classifier: embedded rules: %v", err))
	}
	c, err := New(t.Rules, t.Fallback)
	if err != nil {
		panic(fmt.Sprintf("classifier: embedded rules: %v", err))
	}
	return c
}

// LoadRules reads a rule table from a JSON file.
func LoadRules(path string) (*Classifier, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("loading rules file: %w", err)
	}

	var t Table
	if err := k.UnmarshalWithConf("", &t, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling rules: %w", err)
	}
	if len(t.Rules) == 0 {
		return nil, errors.New("rules file has no rules")
	}

	return New(t.Rules, t.Fallback)
}

// Classify returns the label of the first matching rule, or the fallback.
func (c *Classifier) Classify(description string) string {
	desc := strings.ToLower(description)
	if strings.TrimSpace(desc) == "" {
		return c.fallback
	}

	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, kw) {
				return r.Label
			}
		}
	}
	return c.fallback
}

// Labels returns every label the classifier can produce, in rule order,
// followed by the fallback.
func (c *Classifier) Labels() []string {
	seen := make(map[string]struct{}, len(c.rules)+1)
	labels := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		if _, ok := seen[r.Label]; ok {
			continue
		}
		seen[r.Label] = struct{}{}
		labels = append(labels, r.Label)
	}
	if _, ok := seen[c.fallback]; !ok {
		labels = append(labels, c.fallback)
	}
	return labels
}

// Fallback returns the label used when nothing matches.
func (c *Classifier) Fallback() string {
	return c.fallback
}
