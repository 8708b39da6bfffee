// Package session ties one telnet connection to one screen model.
//
// A Session owns the decoder, screen, field table, and codec for a
// single host connection. Host records flow in through ProcessRecord,
// which decodes and applies every command in the record and answers
// read commands on the wire. Local input flows out through
// SetFieldText and Submit, which build the modified-field reply and
// lock the keyboard until the host restores it.
//
// All exported methods are safe for concurrent use. Snapshots are
// value copies: renderers read them without holding any session state.
package session
