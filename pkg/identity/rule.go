// Package identity canonicalizes commit author identities with a table of
// administrator supplied override rules.
package identity

import (
	"strings"
)

// Match selects the signatures a rule applies to. An empty Name matches
// every signature with the email.
type Match struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Email string `yaml:"email" json:"email"`
}

// ByEmail matches all signatures carrying email.
func ByEmail(email string) Match {
	return Match{Email: email}
}

// ByNameAndEmail matches signatures carrying both name and email.
func ByNameAndEmail(name, email string) Match {
	return Match{Name: name, Email: email}
}

// Replacement is what a matching signature is rewritten to. An empty field
// keeps the corresponding part of the signature.
type Replacement struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Email string `yaml:"email,omitempty" json:"email,omitempty"`
}

// Name replaces only the name.
func Name(name string) Replacement {
	return Replacement{Name: name}
}

// Email replaces only the email.
func Email(email string) Replacement {
	return Replacement{Email: email}
}

// NameAndEmail replaces both.
func NameAndEmail(name, email string) Replacement {
	return Replacement{Name: name, Email: email}
}

// Rule is one override.
type Rule struct {
	Match   Match       `yaml:"match" json:"match"`
	Replace Replacement `yaml:"replace" json:"replace"`
}

// normalize folds a name or email for comparison.
func normalize(s string) string {
	return strings.ToLower(s)
}
