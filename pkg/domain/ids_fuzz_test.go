//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParsePrincipalID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParsePrincipalID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE payments;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		p, err := ParsePrincipalID(input)
		if err == nil {
			roundTrip, err2 := ParsePrincipalID(p.String())
			if err2 != nil {
				t.Errorf("valid principal failed round-trip: %v", err2)
			}
			if roundTrip != p {
				t.Error("round-trip changed principal value")
			}
			if p.IsNil() {
				t.Error("nil principal was accepted")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseMemo checks that accepted memos round-trip through String.
func FuzzParseMemo(f *testing.F) {
	f.Add("0")
	f.Add("42")
	f.Add("18446744073709551615")
	f.Add("-1")
	f.Add("abc")

	f.Fuzz(func(t *testing.T, input string) {
		m, err := ParseMemo(input)
		if err != nil {
			return
		}
		again, err := ParseMemo(m.String())
		if err != nil || again != m {
			t.Errorf("memo %q did not round-trip", input)
		}
	})
}
