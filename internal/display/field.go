package display

import "strings"

// Field attribute bits as they appear in the wire attribute byte.
// Bits 4-7 are reserved and preserved nowhere.
const (
	attrProtected   = 0x01
	attrNumeric     = 0x02
	attrHidden      = 0x04
	attrIntensified = 0x08
)

// Attribute is the decoded form of a field attribute byte.
type Attribute struct {
	Protected   bool // read-only for local input
	Numeric     bool // digits and numeric punctuation only
	Hidden      bool // content exists but is not displayed
	Intensified bool // high-visibility rendering
}

// ParseAttribute decodes a wire attribute byte.
func ParseAttribute(b byte) Attribute {
	return Attribute{
		Protected:   b&attrProtected != 0,
		Numeric:     b&attrNumeric != 0,
		Hidden:      b&attrHidden != 0,
		Intensified: b&attrIntensified != 0,
	}
}

// Byte encodes the attribute back to its wire form.
func (a Attribute) Byte() byte {
	var b byte
	if a.Protected {
		b |= attrProtected
	}
	if a.Numeric {
		b |= attrNumeric
	}
	if a.Hidden {
		b |= attrHidden
	}
	if a.Intensified {
		b |= attrIntensified
	}
	return b
}

func (a Attribute) String() string {
	var parts []string
	if a.Protected {
		parts = append(parts, "protected")
	}
	if a.Numeric {
		parts = append(parts, "numeric")
	}
	if a.Hidden {
		parts = append(parts, "hidden")
	}
	if a.Intensified {
		parts = append(parts, "intensified")
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, "|")
}

// Field describes one attributed region of the screen: the half-open
// range [Start, Start+Length). The attribute byte occupies the first cell
// of the range, so a field holding n characters has Length n+1; a field
// with no content yet has Length 0. Fields never own character storage,
// they describe a view over Screen cells.
type Field struct {
	Start    Position
	Length   int
	Attr     Attribute
	Modified bool
}

// EndOffset returns the exclusive end of the field's range.
func (f Field) EndOffset() int { return f.Start.Offset() + f.Length }

// Contains reports whether p lies inside the field's range. Zero-length
// fields contain nothing, not even their own start.
func (f Field) Contains(p Position) bool {
	return p >= f.Start && p.Offset() < f.EndOffset()
}

// ContentLength returns how many character cells the field holds, which
// excludes the attribute cell.
func (f Field) ContentLength() int {
	if f.Length <= 1 {
		return 0
	}
	return f.Length - 1
}

// ContentStart returns the first character cell, one past the attribute
// cell. Only meaningful when ContentLength is nonzero.
func (f Field) ContentStart() Position { return f.Start + 1 }

// Content reads the field's characters from the screen.
func (f Field) Content(s *Screen) string {
	n := f.ContentLength()
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(n)
	p := f.ContentStart()
	for i := 0; i < n; i++ {
		sb.WriteRune(s.Cell(p + Position(i)).Ch)
	}
	return sb.String()
}
