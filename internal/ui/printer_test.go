package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPrinterHeader(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(72)

	p.PrintHeader("decode capture", "tn3270 decode session.bin", map[string]string{
		"File":      "session.bin",
		"Code page": "037",
	})

	out := buf.String()
	if !strings.Contains(out, "DECODE CAPTURE") {
		t.Error("header missing the uppercased title")
	}
	if !strings.Contains(out, "tn3270 decode session.bin") {
		t.Error("header missing the command line")
	}
	for _, want := range []string{"File:", "session.bin", "Code page:", "037"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q", want)
		}
	}

	// Sorted parameters keep the output stable.
	if strings.Index(out, "Code page:") > strings.Index(out, "File:") {
		t.Error("parameters not sorted by key")
	}
}

func TestPrinterSuccessBox(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(72)

	p.PrintSuccess("Profile saved", map[string]string{
		"Name": "production",
		"Host": "mvs.example.com:992",
	})

	out := buf.String()
	if !strings.Contains(out, SuccessMarker) {
		t.Error("success box missing its marker")
	}
	for _, want := range []string{"Profile saved", "Name:", "production", "Host:", "mvs.example.com:992"} {
		if !strings.Contains(out, want) {
			t.Errorf("success box missing %q", want)
		}
	}
}

func TestPrinterErrorBox(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(72)

	p.PrintError("Connection failed", errors.New("dial tcp: connection refused"), []string{
		"Check that the host is reachable",
		"Verify the port number",
	})

	out := buf.String()
	if !strings.Contains(out, ErrorMarker) {
		t.Error("error box missing its marker")
	}
	for _, want := range []string{
		"Connection failed",
		"dial tcp: connection refused",
		"Troubleshooting:",
		"Check that the host is reachable",
		"Verify the port number",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("error box missing %q", want)
		}
	}
}

func TestPrinterErrorBoxWithoutDetails(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(72)

	p.PrintError("No capture file", nil, nil)

	out := buf.String()
	if !strings.Contains(out, "No capture file") {
		t.Error("error box missing the title")
	}
	if strings.Contains(out, "Troubleshooting:") {
		t.Error("error box shows a troubleshooting section with no tips")
	}
}

func TestPrintScreen(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(100)

	lines := []string{
		"WELCOME TO THE SYSTEM",
		"",
		"USERID ===>",
	}
	p.PrintScreen(lines)

	out := buf.String()
	for _, want := range []string{"WELCOME TO THE SYSTEM", "USERID ===>"} {
		if !strings.Contains(out, want) {
			t.Errorf("screen box missing %q", want)
		}
	}
}

func TestPrinterWidthClamping(t *testing.T) {
	out := RenderHeader("t", "c", nil, 10)
	if out == "" {
		t.Fatal("header rendered empty at a tiny width")
	}
	lines := strings.Split(out, "\n")
	for _, line := range lines {
		if len([]rune(line)) > MinTerminalWidth+2 {
			// The clamp settles narrow terminals on the minimum width.
			t.Fatalf("header line wider than the clamped minimum: %d runes", len([]rune(line)))
		}
	}
}
