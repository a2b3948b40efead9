package domain

import "testing"

func TestPairKeyFor_IsOrderIndependent(t *testing.T) {
	if PairKeyFor("Alice", "Bob") != PairKeyFor("Bob", "Alice") {
		t.Fatalf("pair key must not depend on argument order")
	}
	if got := PairKeyFor("Bob", "Alice"); got != "5:Alice|Bob" {
		t.Fatalf("PairKeyFor = %q", got)
	}
}

func TestPairKeyFor_Unambiguous(t *testing.T) {
	// Names containing the separator must not collide.
	a := PairKeyFor("a|b", "c")
	b := PairKeyFor("a", "b|c")
	if a == b {
		t.Fatalf("distinct pairs produced the same key %q", a)
	}
}

func TestPairKey_Names(t *testing.T) {
	cases := []struct {
		key   PairKey
		wantA string
		wantB string
	}{
		{PairKeyFor("Bob", "Alice"), "Alice", "Bob"},
		{PairKeyFor("a|b", "c"), "a|b", "c"},
		{PairKeyFor("Solo", "Solo"), "Solo", "Solo"},
		{"", "", ""},
		{"x:abc", "", ""},
		{"9:short|", "", ""},
	}
	for _, tc := range cases {
		a, b := tc.key.Names()
		if a != tc.wantA || b != tc.wantB {
			t.Errorf("%q.Names() = (%q, %q); want (%q, %q)", tc.key, a, b, tc.wantA, tc.wantB)
		}
	}
}

func TestNormalizeName_NFC(t *testing.T) {
	decomposed := "Ame\u0301lie" // e + combining acute
	composed := "Am\u00e9lie"
	if NormalizeName(decomposed) != composed {
		t.Fatalf("NormalizeName did not compose %q", decomposed)
	}
	if PairKeyFor(decomposed, "Bob") != PairKeyFor(composed, "Bob") {
		t.Fatalf("pair keys should match for canonically equivalent names")
	}
}
