// Package ui implements the terminal user interface for the tn3270 client.
//
// The package has two halves. TerminalModel is a full-screen interactive
// emulator view built on the Bubble Tea framework, used by the connect
// command. Printer renders styled run-once output for commands that print
// and exit, such as decode and hosts.
//
// # Terminal Model
//
// TerminalModel follows the Elm architecture: all state lives in the
// model, Update consumes messages, and View is a pure render of the
// current state. The model moves through four phases:
//
//  1. Connecting: a spinner and progress bar while the session dials
//     and negotiates, with automatic retries handled by the session.
//  2. Ready: the emulated screen. Host writes arrive as messages from
//     the session's update callback; local input edits fields directly.
//  3. Failed: the dial failed; the operator can retry or quit.
//  4. Closed: the host ended the session; the operator can reconnect
//     or quit.
//
// # Input Model
//
// Input is field oriented. Tab and Shift+Tab (or the arrow keys) move
// between unprotected fields, printable keys fill the focused field,
// and Backspace erases. Typing replaces the field's previous content
// from the first keystroke; there is no insert mode. Attention keys
// submit the screen:
//
//   - Enter sends the modified fields under the Enter identifier
//   - Esc sends Clear
//   - F1 through F12 send PF1 through PF12; the shifted set reaches PF24
//   - Alt+1 through Alt+3 send PA1 through PA3
//
// While the keyboard is locked the status line shows X SYSTEM and input
// is refused, matching the operator information area of real hardware.
// Numeric-only fields refuse other input with X NUM.
//
// # Screen Rendering
//
// The grid renders from a session snapshot. Each cell is styled by the
// field that owns it: unprotected fields are underlined, intensified
// fields are bright, protected fields are dim, and hidden fields render
// as blanks so secrets never reach the terminal. The cell under the
// cursor is drawn in reverse video.
//
// # Framework Components
//
// The interactive view leverages Bubble Tea components throughout:
//   - bubbles/spinner: dial progress indicator
//   - bubbles/progress: dial pacing bar
//   - bubbles/help: context-sensitive key binding footer
//   - bubbles/key: declarative key bindings
//   - lipgloss: styling and layout
//
// # Usage Example
//
//	model := ui.NewTerminal("mainframe.example.com:23", session.Options{
//	    TerminalType: "IBM-3278-2",
//	})
//	defer model.Session().Close()
//
//	program := tea.NewProgram(model, tea.WithAltScreen())
//	final, err := program.Run()
//	if err != nil {
//	    return err
//	}
//	if m, ok := final.(ui.TerminalModel); ok && m.Err() != nil {
//	    return m.Err()
//	}
//
// # Run-Once Output
//
// Printer writes styled component boxes to any writer: command headers,
// success and failure results, and framed screen dumps. Commands pass
// nil to write to stdout; tests pass a buffer.
//
// # Thread Safety
//
// The Bubble Tea framework ensures model updates occur in a single
// goroutine. Session callbacks run on the session's read loop and hand
// snapshots to the model through a buffered channel that keeps only the
// newest state.
package ui
