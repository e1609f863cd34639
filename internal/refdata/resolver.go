package refdata

import (
	"regexp"
	"sort"
	"strings"

	"github.com/triagelink/wait-data-etl/internal/domain"
)

// parentheticalRe strips descriptive suffixes like "(University Health
// Network)" that sources append to hospital names.
var parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)`)

// aliasEntry pairs a normalized alias with the identity it names.
type aliasEntry struct {
	normalized string
	identity   domain.HospitalIdentity
}

// Resolver maps raw source hospital names to canonical identities. Built
// once from the hospital table and shared read-only; Resolve is a pure
// lookup with no side effects. Two raw strings naming the same hospital
// always resolve to the same hospital_id.
type Resolver struct {
	exact   map[string]domain.HospitalIdentity
	aliases []aliasEntry
}

// NewResolver builds the immutable lookup structures from the table.
func NewResolver(table *HospitalTable) (*Resolver, error) {
	r := &Resolver{exact: make(map[string]domain.HospitalIdentity)}

	for _, entry := range table.Hospitals {
		identity := entry.Identity()
		names := append([]string{entry.StandardName}, entry.Aliases...)
		for _, name := range names {
			norm := normalizeName(name)
			if norm == "" {
				continue
			}
			if existing, ok := r.exact[norm]; ok && existing.HospitalID != identity.HospitalID {
				return nil, &domain.SchemaDriftError{Field: "alias", Value: name}
			}
			r.exact[norm] = identity
			r.aliases = append(r.aliases, aliasEntry{normalized: norm, identity: identity})
		}
	}

	// Longer aliases first so the substring pass prefers the most specific
	// name before a shared health-system prefix.
	sort.SliceStable(r.aliases, func(i, j int) bool {
		return len(r.aliases[i].normalized) > len(r.aliases[j].normalized)
	})
	return r, nil
}

// Resolve maps a raw source name to its canonical identity. Exact match on
// the normalized form is tried first, then a substring pass over the alias
// table. A name matching zero identities, or more than one distinct
// identity, is a ResolutionFailure; the resolver never invents identities.
func (r *Resolver) Resolve(rawName string) (domain.HospitalIdentity, error) {
	norm := normalizeName(rawName)
	if norm == "" {
		return domain.HospitalIdentity{}, &domain.ResolutionFailure{RawName: rawName}
	}

	if identity, ok := r.exact[norm]; ok {
		return identity, nil
	}

	var matches []domain.HospitalIdentity
	seen := map[int]bool{}
	for _, entry := range r.aliases {
		if !strings.Contains(norm, entry.normalized) && !strings.Contains(entry.normalized, norm) {
			continue
		}
		if seen[entry.identity.HospitalID] {
			continue
		}
		seen[entry.identity.HospitalID] = true
		matches = append(matches, entry.identity)
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return domain.HospitalIdentity{}, &domain.ResolutionFailure{RawName: rawName}
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.StandardName
		}
		return domain.HospitalIdentity{}, &domain.ResolutionFailure{RawName: rawName, Candidates: names}
	}
}

// Identities returns every canonical identity in the table, ordered by ID.
func (r *Resolver) Identities() []domain.HospitalIdentity {
	seen := map[int]bool{}
	var out []domain.HospitalIdentity
	for _, entry := range r.aliases {
		if seen[entry.identity.HospitalID] {
			continue
		}
		seen[entry.identity.HospitalID] = true
		out = append(out, entry.identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HospitalID < out[j].HospitalID })
	return out
}

// Len returns the number of distinct hospitals the resolver knows.
func (r *Resolver) Len() int {
	return len(r.Identities())
}

// normalizeName lowercases, drops parenthetical suffixes and punctuation,
// strips a leading article, and collapses whitespace, so naming variants
// collapse to one lookup key.
func normalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = parentheticalRe.ReplaceAllString(s, " ")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	s = strings.Join(strings.Fields(b.String()), " ")
	s = strings.TrimPrefix(s, "the ")
	return s
}
