// Package ebcdic translates between host EBCDIC bytes and local text.
//
// The tables come from golang.org/x/text/encoding/charmap, so decoding is
// total: every host byte maps to exactly one rune, and encoding that rune
// returns the original byte. Encoding arbitrary local text can fail for
// runes outside the codepage; batch encoding substitutes the EBCDIC SUB
// byte and keeps going rather than aborting the buffer.
package ebcdic

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Sub is the EBCDIC substitute byte written in place of a local character
// that has no host equivalent.
const Sub byte = 0x3F

// Codepage is one EBCDIC character mapping. The zero value is not usable;
// obtain instances from the package variables or Lookup.
type Codepage struct {
	name string
	cm   *charmap.Charmap
}

// The codepages commonly seen on US/international hosts. CP037 is the
// default for US EBCDIC; CP1047 is the z/OS Unix variant; CP1140 is CP037
// with the euro sign.
var (
	CP037  = &Codepage{name: "037", cm: charmap.CodePage037}
	CP1047 = &Codepage{name: "1047", cm: charmap.CodePage1047}
	CP1140 = &Codepage{name: "1140", cm: charmap.CodePage1140}
)

// Default is the codepage used when a session does not specify one.
var Default = CP037

var registry = map[string]*Codepage{
	"037":  CP037,
	"37":   CP037,
	"1047": CP1047,
	"1140": CP1140,
}

// Lookup returns the codepage registered under name. Names are the bare
// numeric identifiers ("037", "1047", "1140"); an optional "cp" or "ibm"
// prefix is accepted, case-insensitively.
func Lookup(name string) (*Codepage, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "cp")
	key = strings.TrimPrefix(key, "ibm")
	if cp, ok := registry[key]; ok {
		return cp, nil
	}
	return nil, fmt.Errorf("unknown codepage %q (have %s)", name, strings.Join(Names(), ", "))
}

// Names returns the registered codepage names in sorted order.
func Names() []string {
	seen := map[string]bool{}
	names := make([]string, 0, len(registry))
	for _, cp := range registry {
		if !seen[cp.name] {
			seen[cp.name] = true
			names = append(names, cp.name)
		}
	}
	sort.Strings(names)
	return names
}

// Name returns the codepage identifier, e.g. "037".
func (cp *Codepage) Name() string { return cp.name }

func (cp *Codepage) String() string { return "IBM-" + cp.name }

// DecodeByte maps one host byte to its local rune. Total: every byte value
// decodes to something, control bytes included.
func (cp *Codepage) DecodeByte(b byte) rune {
	return cp.cm.DecodeByte(b)
}

// EncodeRune maps one local rune to its host byte. Returns an
// UnmappableError (and the Sub byte) when the rune is outside the
// codepage's repertoire.
func (cp *Codepage) EncodeRune(r rune) (byte, error) {
	if b, ok := cp.cm.EncodeRune(r); ok {
		return b, nil
	}
	return Sub, &UnmappableError{Rune: r, Codepage: cp.name}
}

// Decode converts a host byte slice to a local string.
func (cp *Codepage) Decode(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(cp.cm.DecodeByte(b))
	}
	return sb.String()
}

// Encode converts a local string to host bytes. Unmappable runes become
// the Sub byte; the second return is how many were substituted.
func (cp *Codepage) Encode(s string) ([]byte, int) {
	out := make([]byte, 0, len(s))
	substituted := 0
	for _, r := range s {
		b, ok := cp.cm.EncodeRune(r)
		if !ok {
			b = Sub
			substituted++
		}
		out = append(out, b)
	}
	return out, substituted
}

// UnmappableError reports a local character with no host-code equivalent.
// Callers that substitute rather than fail can ignore it; it never aborts
// batch encoding.
type UnmappableError struct {
	Rune     rune
	Codepage string
}

func (e *UnmappableError) Error() string {
	return fmt.Sprintf("character %q has no mapping in codepage %s", e.Rune, e.Codepage)
}
