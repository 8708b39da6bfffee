package stream

import "fmt"

// AID is the attention identifier byte a terminal sends first in every
// reply. It names the key that triggered the transmission.
type AID byte

// Attention identifiers.
const (
	AIDNone  AID = 0x60
	AIDEnter AID = 0x7D
	AIDPF1   AID = 0xF1
	AIDPF2   AID = 0xF2
	AIDPF3   AID = 0xF3
	AIDPF4   AID = 0xF4
	AIDPF5   AID = 0xF5
	AIDPF6   AID = 0xF6
	AIDPF7   AID = 0xF7
	AIDPF8   AID = 0xF8
	AIDPF9   AID = 0xF9
	AIDPF10  AID = 0x7A
	AIDPF11  AID = 0x7B
	AIDPF12  AID = 0x7C
	AIDPF13  AID = 0xC1
	AIDPF14  AID = 0xC2
	AIDPF15  AID = 0xC3
	AIDPF16  AID = 0xC4
	AIDPF17  AID = 0xC5
	AIDPF18  AID = 0xC6
	AIDPF19  AID = 0xC7
	AIDPF20  AID = 0xC8
	AIDPF21  AID = 0xC9
	AIDPF22  AID = 0x4A
	AIDPF23  AID = 0x4B
	AIDPF24  AID = 0x4C
	AIDPA1   AID = 0x6C
	AIDPA2   AID = 0x6E
	AIDPA3   AID = 0x6B
	AIDClear AID = 0x6D
)

// PF returns the attention identifier for program function key n
// (1 through 24).
func PF(n int) (AID, error) {
	switch {
	case n >= 1 && n <= 9:
		return AID(0xF0 + n), nil
	case n >= 10 && n <= 12:
		return AID(0x7A + n - 10), nil
	case n >= 13 && n <= 21:
		return AID(0xC1 + n - 13), nil
	case n >= 22 && n <= 24:
		return AID(0x4A + n - 22), nil
	default:
		return AIDNone, fmt.Errorf("no PF key %d", n)
	}
}

// PFNumber returns the program function key number for a, or false if a
// is not a PF key.
func (a AID) PFNumber() (int, bool) {
	switch {
	case a >= 0xF1 && a <= 0xF9:
		return int(a-0xF1) + 1, true
	case a >= 0x7A && a <= 0x7C:
		return int(a-0x7A) + 10, true
	case a >= 0xC1 && a <= 0xC9:
		return int(a-0xC1) + 13, true
	case a >= 0x4A && a <= 0x4C:
		return int(a-0x4A) + 22, true
	default:
		return 0, false
	}
}

// PANumber returns the program attention key number for a, or false if
// a is not a PA key.
func (a AID) PANumber() (int, bool) {
	switch a {
	case AIDPA1:
		return 1, true
	case AIDPA2:
		return 2, true
	case AIDPA3:
		return 3, true
	default:
		return 0, false
	}
}

// Valid reports whether a is a known attention identifier.
func (a AID) Valid() bool {
	if _, ok := a.PFNumber(); ok {
		return true
	}
	if _, ok := a.PANumber(); ok {
		return true
	}
	return a == AIDNone || a == AIDEnter || a == AIDClear
}

// String returns the key name, such as "Enter" or "PF3".
func (a AID) String() string {
	if n, ok := a.PFNumber(); ok {
		return fmt.Sprintf("PF%d", n)
	}
	if n, ok := a.PANumber(); ok {
		return fmt.Sprintf("PA%d", n)
	}
	switch a {
	case AIDNone:
		return "None"
	case AIDEnter:
		return "Enter"
	case AIDClear:
		return "Clear"
	default:
		return fmt.Sprintf("AID(0x%02X)", byte(a))
	}
}
