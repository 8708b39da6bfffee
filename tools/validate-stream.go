//go:build ignore

// Validate-stream runs captured 3270 data streams through the decoder
// and reports parse coverage: command and order distribution plus any
// invalid or corrupt spans. Point it at a directory of captures or a
// single file.
//
// Captures may be raw binary or hex text. Hex text may contain
// whitespace, an optional 0x prefix per token, and comments starting
// with '#'; a file whose entire content reads as hex text is treated as
// hex. Captures that still carry telnet framing are split on IAC EOR
// record marks.
//
// Usage:
//
//	go run tools/validate-stream.go <directory-or-file>
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/muldry/tn3270/internal/stream"
)

// Statistics tracks decoding results
type Statistics struct {
	TotalFiles    int
	TotalRecords  int
	TotalCommands int
	ParseFailure  int
	CommandTypes  map[byte]int
	OrderTypes    map[string]int
	Failures      []Failure
}

// Failure stores information about one decode failure
type Failure struct {
	File   string
	Offset int
	Error  string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate-stream <directory-or-file>")
		fmt.Println("Example: go run tools/validate-stream.go captures/")
		fmt.Println("         go run tools/validate-stream.go login-screen.bin")
		os.Exit(1)
	}

	path := os.Args[1]

	stats := Statistics{
		CommandTypes: make(map[byte]int),
		OrderTypes:   make(map[string]int),
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Error accessing path: %v\n", err)
		os.Exit(1)
	}

	var files []string
	if info.IsDir() {
		for _, pattern := range []string{"*.bin", "*.hex", "*.cap"} {
			matches, err := filepath.Glob(filepath.Join(path, pattern))
			if err != nil {
				fmt.Printf("Error finding capture files: %v\n", err)
				os.Exit(1)
			}
			files = append(files, matches...)
		}
		if len(files) == 0 {
			fmt.Printf("No capture files (*.bin, *.hex, *.cap) found in %s\n", path)
			os.Exit(1)
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	fmt.Printf("=== TN3270 Stream Validator ===\n")
	fmt.Printf("Files to process: %d\n\n", len(files))

	for _, file := range files {
		processFile(file, &stats)
	}

	printStatistics(&stats)
}

func processFile(filename string, stats *Statistics) {
	stats.TotalFiles++

	raw, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading file %s: %v\n", filename, err)
		return
	}

	data := raw
	if decoded, err := decodeHexText(raw); err == nil && len(decoded) > 0 {
		data = decoded
	}

	for _, record := range splitRecords(data) {
		stats.TotalRecords++
		validateRecord(filename, record, stats)
	}
}

func validateRecord(filename string, record []byte, stats *Statistics) {
	dec := stream.NewDecoder(nil)
	dec.Feed(record)

	for {
		cmd, err := dec.Next()
		if err != nil {
			if stream.IsIncomplete(err) {
				if left := dec.Buffered(); left > 0 {
					stats.ParseFailure++
					stats.Failures = append(stats.Failures, Failure{
						File:   filename,
						Offset: dec.Offset(),
						Error:  fmt.Sprintf("record ends mid-command with %d bytes left", left),
					})
				}
				return
			}
			stats.ParseFailure++
			stats.Failures = append(stats.Failures, Failure{
				File:   filename,
				Offset: dec.Offset(),
				Error:  err.Error(),
			})
			continue
		}

		stats.TotalCommands++
		stats.CommandTypes[cmd.Code()]++
		if w, ok := cmd.(*stream.WriteCommand); ok {
			for _, o := range w.Orders {
				stats.OrderTypes[orderName(o)]++
			}
		}
	}
}

// orderName maps a parsed order to its mnemonic, ignoring parameters so
// the distribution groups by kind.
func orderName(o stream.Order) string {
	switch o.(type) {
	case *stream.SetBufferAddress:
		return "SBA"
	case *stream.StartField:
		return "SF"
	case *stream.StartFieldExtended:
		return "SFE"
	case *stream.SetAttribute:
		return "SA"
	case *stream.InsertCursor:
		return "IC"
	case *stream.ProgramTab:
		return "PT"
	case *stream.EraseUnprotectedToAddress:
		return "EUA"
	case *stream.RepeatToAddress:
		return "RA"
	case *stream.Text:
		return "Text"
	default:
		return "Unknown"
	}
}

// decodeHexText interprets the file as hex tokens separated by
// whitespace, with '#' comments and optional 0x prefixes.
func decodeHexText(raw []byte) ([]byte, error) {
	var sb strings.Builder
	for _, line := range strings.Split(string(raw), "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, tok := range strings.Fields(line) {
			sb.WriteString(strings.TrimPrefix(strings.ToLower(tok), "0x"))
		}
	}
	return hex.DecodeString(sb.String())
}

// splitRecords separates a telnet-framed capture into records: split on
// IAC EOR, unescape IAC IAC, skip stray negotiation verbs. A capture
// without any IAC EOR mark is returned as a single record.
func splitRecords(data []byte) [][]byte {
	const (
		iac = 0xFF
		eor = 0xEF
	)

	framed := false
	for i := 0; i+1 < len(data); i++ {
		if data[i] == iac && data[i+1] == eor {
			framed = true
			break
		}
	}
	if !framed {
		return [][]byte{data}
	}

	var records [][]byte
	var current []byte
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b != iac {
			current = append(current, b)
			continue
		}
		i++
		if i >= len(data) {
			break
		}
		switch data[i] {
		case iac:
			current = append(current, iac)
		case eor:
			records = append(records, current)
			current = nil
		default:
			if data[i] >= 0xFB && data[i] <= 0xFE && i+1 < len(data) {
				i++
			}
		}
	}
	if len(current) > 0 {
		records = append(records, current)
	}
	return records
}

func printStatistics(stats *Statistics) {
	fmt.Printf("\n========================================\n")
	fmt.Printf("VALIDATION RESULTS\n")
	fmt.Printf("========================================\n\n")

	fmt.Printf("Files Processed:    %d\n", stats.TotalFiles)
	fmt.Printf("Total Records:      %d\n", stats.TotalRecords)
	fmt.Printf("Commands Decoded:   %d\n", stats.TotalCommands)
	fmt.Printf("Decode Failures:    %d\n", stats.ParseFailure)

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("COMMAND DISTRIBUTION\n")
	fmt.Printf("----------------------------------------\n")
	codes := make([]int, 0, len(stats.CommandTypes))
	for code := range stats.CommandTypes {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)
	for _, code := range codes {
		count := stats.CommandTypes[byte(code)]
		percentage := float64(count) / float64(stats.TotalCommands) * 100
		fmt.Printf("0x%02X (%s): %d (%.2f%%)\n", code, stream.CommandName(byte(code)), count, percentage)
	}

	if len(stats.OrderTypes) > 0 {
		fmt.Printf("\n----------------------------------------\n")
		fmt.Printf("ORDER DISTRIBUTION\n")
		fmt.Printf("----------------------------------------\n")
		names := make([]string, 0, len(stats.OrderTypes))
		for name := range stats.OrderTypes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-8s %d\n", name, stats.OrderTypes[name])
		}
	}

	if len(stats.Failures) > 0 {
		fmt.Printf("\n----------------------------------------\n")
		fmt.Printf("DECODE FAILURES (%d total)\n", len(stats.Failures))
		fmt.Printf("----------------------------------------\n")

		maxShow := 10
		if len(stats.Failures) > maxShow {
			fmt.Printf("(Showing first %d of %d failures)\n", maxShow, len(stats.Failures))
		}

		for i, failed := range stats.Failures {
			if i >= maxShow {
				break
			}
			fmt.Printf("\nFailure #%d:\n", i+1)
			fmt.Printf("  File: %s (offset %d)\n", failed.File, failed.Offset)
			fmt.Printf("  Error: %s\n", failed.Error)
		}
	}

	fmt.Printf("\n========================================\n")
	if stats.ParseFailure == 0 {
		fmt.Printf("SUCCESS: all records decoded cleanly\n")
	} else {
		fmt.Printf("ISSUES FOUND: %d decode failures\n", stats.ParseFailure)
	}
	fmt.Printf("========================================\n")
}
