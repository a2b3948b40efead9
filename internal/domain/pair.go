package domain

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PairKey identifies the chat record of an unordered pair of characters.
// The encoding is "<len(a)>:<a>|<b>" with a <= b, which is unambiguous for
// any names and free of NUL bytes (Postgres text rejects them).
type PairKey string

// PairKeyFor returns the canonical key for the pair {a, b}. Order of the
// arguments does not matter: PairKeyFor(a, b) == PairKeyFor(b, a).
func PairKeyFor(a, b string) PairKey {
	a, b = NormalizeName(a), NormalizeName(b)
	if b < a {
		a, b = b, a
	}
	return PairKey(strconv.Itoa(len(a)) + ":" + a + "|" + b)
}

// Names returns the two names encoded in the key in canonical order.
// A malformed key yields two empty strings.
func (k PairKey) Names() (string, string) {
	s := string(k)
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", ""
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n < 0 {
		return "", ""
	}
	rest := s[i+1:]
	if len(rest) < n+1 || rest[n] != '|' {
		return "", ""
	}
	return rest[:n], rest[n+1:]
}

// NormalizeName returns the NFC form of a character name so canonically
// equivalent spellings address the same record.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}
