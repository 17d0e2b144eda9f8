package identity

import (
	"github.com/Sumatoshi-tech/hourglass/pkg/alg/mapx"
	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
)

// nameRule is a rule keyed by both name and email.
type nameRule struct {
	name    string // First seen casing of the matched name.
	replace Replacement
}

// bucket groups every rule for one normalized email.
type bucket struct {
	email   string // First seen casing; the canonical email of the bucket.
	byEmail *Replacement
	byName  map[string]*nameRule
}

// Table resolves signatures against a set of rules. Build it once with
// NewTable or Add, then share it read-only.
type Table struct {
	buckets map[string]*bucket
}

// NewTable builds a table from rules in order. Later rules with the same
// match key overwrite earlier ones.
func NewTable(rules []Rule) *Table {
	table := &Table{buckets: make(map[string]*bucket, len(rules))}

	for _, rule := range rules {
		table.Add(rule)
	}

	return table
}

// Add inserts rule, overwriting the replacement of an existing rule with the
// same match key. Stored match casing stays as first seen.
func (t *Table) Add(rule Rule) {
	key := normalize(rule.Match.Email)

	entry, ok := t.buckets[key]
	if !ok {
		entry = &bucket{email: rule.Match.Email}
		t.buckets[key] = entry
	}

	replace := rule.Replace

	if rule.Match.Name == "" {
		entry.byEmail = &replace

		return
	}

	if entry.byName == nil {
		entry.byName = make(map[string]*nameRule)
	}

	nameKey := normalize(rule.Match.Name)

	if existing, found := entry.byName[nameKey]; found {
		existing.replace = replace

		return
	}

	entry.byName[nameKey] = &nameRule{name: rule.Match.Name, replace: replace}
}

// Len returns the number of effective rules.
func (t *Table) Len() int {
	count := 0

	for _, entry := range t.buckets {
		count += len(entry.byName)

		if entry.byEmail != nil {
			count++
		}
	}

	return count
}

// TryResolve returns the rewritten signature and true when a rule matches.
// Name specific rules take precedence over email-only rules. The time is
// always kept.
func (t *Table) TryResolve(sig gitlib.Signature) (gitlib.Signature, bool) {
	entry, ok := t.buckets[normalize(sig.Email)]
	if !ok {
		return gitlib.Signature{}, false
	}

	if rule, found := entry.byName[normalize(sig.Name)]; found {
		return entry.apply(rule.replace, sig), true
	}

	if entry.byEmail != nil {
		return entry.apply(*entry.byEmail, sig), true
	}

	return gitlib.Signature{}, false
}

// Resolve is TryResolve falling back to an unchanged copy of sig.
func (t *Table) Resolve(sig gitlib.Signature) gitlib.Signature {
	resolved, ok := t.TryResolve(sig)
	if !ok {
		return sig
	}

	return resolved
}

func (b *bucket) apply(replace Replacement, sig gitlib.Signature) gitlib.Signature {
	out := gitlib.Signature{Name: sig.Name, Email: b.email, When: sig.When}

	if replace.Name != "" {
		out.Name = replace.Name
	}

	if replace.Email != "" {
		out.Email = replace.Email
	}

	return out
}

// Entries lists the effective rules grouped by normalized email in ascending
// order; within a group the email-only rule comes first, then name rules by
// normalized name. The order does not depend on insertion order.
func (t *Table) Entries() []Rule {
	rules := make([]Rule, 0, t.Len())

	for _, key := range mapx.SortedKeys(t.buckets) {
		entry := t.buckets[key]

		if entry.byEmail != nil {
			rules = append(rules, Rule{Match: ByEmail(entry.email), Replace: *entry.byEmail})
		}

		for _, name := range mapx.SortedKeys(entry.byName) {
			rule := entry.byName[name]
			rules = append(rules, Rule{Match: ByNameAndEmail(rule.name, entry.email), Replace: rule.replace})
		}
	}

	return rules
}
