package alias

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/oddslab/odds-intel-service/internal/models"
)

// Registry resolves team name variants to canonical team names. It is built
// from externally owned alias entries and is read-only: corrections happen
// through the administrative surface, never here.
type Registry struct {
	// canonicalByKey maps the normalized form of every known spelling
	// (canonical names and variants alike) to the canonical display name.
	canonicalByKey map[string]string
}

// NewRegistry builds a registry from alias entries.
func NewRegistry(entries []models.AliasEntry) *Registry {
	r := &Registry{canonicalByKey: make(map[string]string)}
	for _, e := range entries {
		canon := strings.TrimSpace(e.Canonical)
		if canon == "" {
			continue
		}
		r.canonicalByKey[Normalize(canon)] = canon
		for _, v := range e.Variants {
			key := Normalize(v)
			if key == "" {
				continue
			}
			r.canonicalByKey[key] = canon
		}
	}
	return r
}

// accentFolder strips combining marks so "São Paulo" and "Sao Paulo" compare
// equal.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, accent-folds and whitespace-collapses a team name
// into its comparison key.
func Normalize(name string) string {
	folded, _, err := transform.String(accentFolder, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// CanonicalFor resolves a raw team name to its canonical name. A name that is
// itself canonical resolves to itself.
func (r *Registry) CanonicalFor(name string) (string, bool) {
	canon, ok := r.canonicalByKey[Normalize(name)]
	return canon, ok
}

// MatchTeamNames reports whether two team names denote the same team, either
// directly after normalization or through the alias table in either
// direction.
func (r *Registry) MatchTeamNames(a, b string) bool {
	ka, kb := Normalize(a), Normalize(b)
	if ka == "" || kb == "" {
		return false
	}
	if ka == kb {
		return true
	}
	ca, aok := r.canonicalByKey[ka]
	cb, bok := r.canonicalByKey[kb]
	return aok && bok && ca == cb
}
