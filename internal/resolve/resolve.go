// Package resolve maps differently spelled entity identifiers to one
// canonical join key.
//
// Canonicalization has two stages:
//  1. Normalize: Unicode NFC, full case folding, trim, collapse whitespace
//  2. Alias: a single lookup in a fixed alias table
//
// Unmapped identifiers pass through stage 1 only. Alias targets are not
// looked up again, so chains never form.
package resolve

import (
	"maps"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Resolver canonicalizes identifiers. It is immutable after New and safe
// for concurrent use.
type Resolver struct {
	aliases map[string]string
}

// New creates a Resolver from an alias table mapping a synonym to the
// identifier it stands for (e.g. "Aurora" -> "Denver"). Keys and values are
// normalized, so the table may be written in any case.
func New(aliases map[string]string) *Resolver {
	r := &Resolver{
		aliases: make(map[string]string, len(aliases)),
	}
	for from, to := range aliases {
		from, to = r.Normalize(from), r.Normalize(to)
		if from == "" || to == "" || from == to {
			continue
		}
		r.aliases[from] = to
	}
	return r
}

// Normalize applies stage 1 only.
func (r *Resolver) Normalize(raw string) string {
	// A Caser carries state, so each call gets its own.
	s := cases.Fold().String(norm.NFC.String(raw))
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Canonicalize returns the join key for raw.
func (r *Resolver) Canonicalize(raw string) string {
	key := r.Normalize(raw)
	if to, ok := r.aliases[key]; ok {
		return to
	}
	return key
}

// Aliases returns a copy of the normalized alias table.
func (r *Resolver) Aliases() map[string]string {
	return maps.Clone(r.aliases)
}
