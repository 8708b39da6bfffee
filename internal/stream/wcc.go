package stream

import "strings"

// WCC is the write control character that follows every write-class
// command code. Its bits request side effects on the terminal.
type WCC byte

// Write control character bits.
const (
	WCCKeyboardRestore WCC = 0x80
	WCCAlarm           WCC = 0x40
	WCCResetModified   WCC = 0x20
	WCCResetCursor     WCC = 0x02
)

// KeyboardRestore reports whether the command unlocks the keyboard.
func (w WCC) KeyboardRestore() bool { return w&WCCKeyboardRestore != 0 }

// Alarm reports whether the command requests the audible alarm.
func (w WCC) Alarm() bool { return w&WCCAlarm != 0 }

// ResetModified reports whether the command clears all modified-data
// flags after its orders run.
func (w WCC) ResetModified() bool { return w&WCCResetModified != 0 }

// ResetCursor reports whether the command homes the cursor to buffer
// address zero after its orders run.
func (w WCC) ResetCursor() bool { return w&WCCResetCursor != 0 }

// String lists the set bits, such as "restore|alarm", or "none".
func (w WCC) String() string {
	var parts []string
	if w.KeyboardRestore() {
		parts = append(parts, "restore")
	}
	if w.Alarm() {
		parts = append(parts, "alarm")
	}
	if w.ResetModified() {
		parts = append(parts, "reset-modified")
	}
	if w.ResetCursor() {
		parts = append(parts, "reset-cursor")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
