package identity

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRule is returned for a rule without a match email or without any replacement.
var ErrInvalidRule = errors.New("invalid identity rule")

// ruleFile is the on-disk layout of a rules file.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads rules from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close()

	rules, err := ParseRules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return rules, nil
}

// ParseRules decodes and validates rules from r. An empty document yields no rules.
func ParseRules(r io.Reader) ([]Rule, error) {
	var doc ruleFile

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	err := decoder.Decode(&doc)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	for i, rule := range doc.Rules {
		if strings.TrimSpace(rule.Match.Email) == "" {
			return nil, fmt.Errorf("%w: rule %d has no match email", ErrInvalidRule, i+1)
		}

		if rule.Replace.Name == "" && rule.Replace.Email == "" {
			return nil, fmt.Errorf("%w: rule %d replaces nothing", ErrInvalidRule, i+1)
		}
	}

	return doc.Rules, nil
}

// LoadTable reads a rules file into a table. An empty path yields an empty table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return NewTable(nil), nil
	}

	rules, err := LoadRules(path)
	if err != nil {
		return nil, err
	}

	return NewTable(rules), nil
}
