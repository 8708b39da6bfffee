package main

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muldry/tn3270/internal/config"
	"github.com/muldry/tn3270/internal/discovery"
	"github.com/muldry/tn3270/internal/display"
	"github.com/muldry/tn3270/internal/ebcdic"
	"github.com/muldry/tn3270/internal/logging"
	"github.com/muldry/tn3270/internal/session"
	"github.com/muldry/tn3270/internal/stream"
	"github.com/muldry/tn3270/internal/ui"
)

// Connection flags shared by connect and hosts add (persistent on root)
var (
	hostPort      int
	useTLS        bool
	insecureTLS   bool
	termType      string
	codepageName  string
	retries       uint64
	retryInterval time.Duration
	scanTimeout   int
	description   string
)

func init() {
	rootCmd.PersistentFlags().IntVar(&hostPort, "port", 0, "Port to connect on (0 selects 23, or 992 with --tls)")
	rootCmd.PersistentFlags().BoolVar(&useTLS, "tls", false, "Connect over TLS (telnets)")
	rootCmd.PersistentFlags().BoolVar(&insecureTLS, "insecure", false, "Skip TLS certificate verification")
	rootCmd.PersistentFlags().StringVar(&termType, "term", "", "Terminal type reported during negotiation (default IBM-3278-2)")
	rootCmd.PersistentFlags().StringVar(&codepageName, "codepage", "", "EBCDIC code page (default 037)")
	rootCmd.PersistentFlags().Uint64Var(&retries, "retries", 0, "Extra connection attempts after the first fails")
	rootCmd.PersistentFlags().DurationVar(&retryInterval, "retry-interval", 0, "Initial delay between attempts, growing exponentially (default 500ms)")

	// Add subcommands directly to root
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(hostsCmd)
	rootCmd.AddCommand(discoverCmd)
}

// connectCmd opens an interactive terminal session
var connectCmd = &cobra.Command{
	Use:   "connect <host[:port] | profile>",
	Short: "Connect to a TN3270 host",
	Long: `Open an interactive terminal session to a TN3270 host.

The target is either host[:port] or the name of a saved profile. When
the port is omitted it defaults to 23, or 992 with --tls. Profile
settings provide the defaults; explicit flags override them.

The session runs in the alternate screen. Tab and Shift+Tab move
between input fields, Enter sends the modified fields, F1-F12 send PF
keys (shifted for PF13-PF24), Alt+1 to Alt+3 send PA keys, and Esc
sends Clear. Ctrl+C ends the session.

Set TN3270_LOG_LEVEL=debug to log negotiation and record traffic.`,
	Example: `  # Connect to a host on the standard telnet port
  tn3270 connect mvs.example.com

  # Connect over TLS on the telnets port
  tn3270 connect secure.example.com --tls

  # Connect to a saved profile
  tn3270 connect dev

  # Local demo host with a self-signed certificate
  tn3270 connect localhost:3270 --tls --insecure`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	if err := logging.InitializeFromEnv(); err != nil {
		return err
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load host profiles: %w", err)
	}

	target, opts, err := resolveTarget(cmd, reg, args[0])
	if err != nil {
		return err
	}

	// When the target is a profile, stamp its last-used time on the
	// first processed record, which is when the connection is known good.
	if reg.GetHost(args[0]) != nil {
		name := args[0]
		var once sync.Once
		opts.OnUpdate = func(session.Snapshot) {
			once.Do(func() {
				reg.TouchHost(name)
				if err := reg.Save(); err != nil {
					logging.Warn("Failed to record profile use", zap.Error(err))
				}
			})
		}
	}

	model := ui.NewTerminal(target, opts)
	defer model.Session().Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("terminal error: %w", err)
	}
	if m, ok := final.(ui.TerminalModel); ok {
		if err := m.Err(); err != nil {
			return err
		}
	}

	return nil
}

// resolveTarget turns a connect argument into a dialable address and
// session options. Profile values apply first, explicit flags win.
func resolveTarget(cmd *cobra.Command, reg *config.Registry, arg string) (string, session.Options, error) {
	opts := session.Options{
		MaxRetries:    retries,
		RetryInterval: retryInterval,
		Log:           logging.GetLogger(),
	}

	tlsEnabled := useTLS
	terminal := termType
	codepage := codepageName

	var target string
	if prof := reg.GetHost(arg); prof != nil {
		if !cmd.Flags().Changed("tls") {
			tlsEnabled = prof.TLS
		}
		if terminal == "" {
			terminal = prof.TerminalType
		}
		if codepage == "" {
			codepage = prof.Codepage
		}
		if cmd.Flags().Changed("port") {
			target = net.JoinHostPort(prof.Address, strconv.Itoa(hostPort))
		} else {
			target = prof.HostPort()
		}
	} else {
		target = arg
		if _, _, err := net.SplitHostPort(arg); err != nil {
			port := hostPort
			if port == 0 {
				port = config.DefaultPort
				if tlsEnabled {
					port = config.DefaultTLSPort
				}
			}
			target = net.JoinHostPort(arg, strconv.Itoa(port))
		}
	}

	opts.TerminalType = terminal

	if codepage != "" {
		cp, err := ebcdic.Lookup(codepage)
		if err != nil {
			return "", session.Options{}, err
		}
		opts.Codepage = cp
	}

	if tlsEnabled {
		serverName, _, err := net.SplitHostPort(target)
		if err != nil {
			serverName = target
		}
		opts.TLSConfig = &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: insecureTLS,
			MinVersion:         tls.VersionTLS12,
		}
	}

	return target, opts, nil
}

// decodeCmd replays a captured data stream offline
var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode a captured 3270 data stream",
	Long: `Decode a file of captured host-to-terminal 3270 traffic.

The decoder lists every command in the capture, replays them against a
fresh 24x80 screen, and prints the final screen image, the field table,
and any stream diagnostics. Captures that still carry telnet framing
are split on IAC EOR record marks and unescaped first; anything else is
treated as a single record.

Terminal-to-host records start with an AID byte rather than a command
code and are reported as invalid commands.`,
	Example: `  # Decode a capture with the default code page
  tn3270 decode login-screen.bin

  # Decode a capture written by an international host
  tn3270 decode capture.bin --codepage 1047`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	if err := logging.InitializeFromEnv(); err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}

	cp := ebcdic.Default
	if codepageName != "" {
		cp, err = ebcdic.Lookup(codepageName)
		if err != nil {
			return err
		}
	}

	records := splitRecords(data)

	printer := ui.NewPrinter(nil)
	printer.PrintHeader("Decode Capture", "tn3270 decode "+path, map[string]string{
		"File":      path,
		"Size":      fmt.Sprintf("%d bytes", len(data)),
		"Records":   strconv.Itoa(len(records)),
		"Code page": cp.Name(),
	})

	screen, err := display.NewScreen(display.Model2)
	if err != nil {
		return err
	}
	table := display.NewFieldTable()
	exec := stream.NewExecutor(display.Model2, cp, logging.GetLogger())
	dec := stream.NewDecoder(logging.GetLogger())

	var warnings []string
	commands := 0
	for _, record := range records {
		dec.Feed(record)
		for {
			c, err := dec.Next()
			if err != nil {
				if stream.IsIncomplete(err) {
					if left := dec.Buffered(); left > 0 {
						warnings = append(warnings, fmt.Sprintf(
							"record ends mid-command, %d bytes dropped at offset %d", left, dec.Offset()))
						dec.Reset()
					}
					break
				}
				warnings = append(warnings, err.Error())
				continue
			}
			commands++
			printer.Printf("%3d  %s\n", commands, c)
			if err := exec.Apply(c, screen, table); err != nil {
				warnings = append(warnings, fmt.Sprintf("apply %s: %v", stream.CommandName(c.Code()), err))
			}
		}
	}

	printer.Newline()
	cursorRow, cursorCol := screen.Cursor().RowCol(display.Model2)
	printer.Println(fmt.Sprintf("Final screen (cursor at row %d, col %d):", cursorRow, cursorCol))
	rows := make([]string, display.Model2.Rows)
	for r := range rows {
		rows[r] = screen.Row(r)
	}
	printer.PrintScreen(rows)

	fields := table.Fields()
	printer.Newline()
	printer.Println(fmt.Sprintf("Fields: %d", len(fields)))
	for i, f := range fields {
		row, col := f.Start.RowCol(display.Model2)
		printer.Println(fmt.Sprintf("  %2d  row %2d col %2d  len %3d  %-22s %q",
			i, row, col, f.ContentLength(), f.Attr, strings.TrimRight(f.Content(screen), " ")))
	}

	if len(warnings) > 0 {
		printer.Newline()
		printer.Println(ui.WarningMarker + " Diagnostics:")
		for _, w := range warnings {
			printer.Println("  " + w)
		}
	}

	printer.Newline()
	printer.PrintSuccess("Decode complete", map[string]string{
		"Commands": strconv.Itoa(commands),
		"Fields":   strconv.Itoa(len(fields)),
		"Warnings": strconv.Itoa(len(warnings)),
	})

	return nil
}

// splitRecords separates a telnet-framed capture into records: split on
// IAC EOR, unescape IAC IAC, and skip stray negotiation verbs. A capture
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
			// WILL, WONT, DO and DONT carry an option byte.
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

// hostsCmd manages saved connection profiles
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage saved host profiles",
	Long: `Manage the saved host profiles used as connect targets.

Profiles live in a YAML file under the user config directory and store
the address, port, transport, terminal type, and code page for a host.
Set TN3270_CONFIG_DIR to relocate the file.

Running 'tn3270 hosts' without a subcommand lists the profiles.`,
	Args: cobra.NoArgs,
	RunE: runHostsList,
}

var hostsAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Add or replace a host profile",
	Long: `Save a host profile under a name usable as a connect target.

The connection flags (--port, --tls, --term, --codepage) are stored in
the profile. Adding a profile under an existing name replaces it.`,
	Example: `  # Save a development host
  tn3270 hosts add dev mvs-dev.example.com

  # TLS host with a different code page
  tn3270 hosts add prod mvs.example.com --tls --codepage 1047

  # Custom port and a note
  tn3270 hosts add demo localhost --port 3270 --description "local demo host"`,
	Args: cobra.ExactArgs(2),
	RunE: runHostsAdd,
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved host profiles",
	Args:  cobra.NoArgs,
	RunE:  runHostsList,
}

var hostsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a host profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runHostsRemove,
}

func init() {
	hostsAddCmd.Flags().StringVar(&description, "description", "", "Free-form note stored with the profile")

	hostsCmd.AddCommand(hostsAddCmd)
	hostsCmd.AddCommand(hostsListCmd)
	hostsCmd.AddCommand(hostsRemoveCmd)
}

func runHostsAdd(cmd *cobra.Command, args []string) error {
	name, address := args[0], args[1]

	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load host profiles: %w", err)
	}

	h := &config.Host{
		Address:      address,
		Port:         hostPort,
		TLS:          useTLS,
		TerminalType: termType,
		Codepage:     codepageName,
		Description:  description,
	}

	replaced := reg.GetHost(name) != nil
	if err := reg.SetHost(name, h); err != nil {
		return err
	}
	if err := reg.Save(); err != nil {
		return fmt.Errorf("failed to save host profiles: %w", err)
	}

	title := "Profile saved"
	if replaced {
		title = "Profile replaced"
	}
	details := map[string]string{
		"Name":   name,
		"Target": h.HostPort(),
	}
	if h.Codepage != "" {
		details["Code page"] = h.Codepage
	}
	if path, err := config.GetConfigPath(); err == nil {
		details["File"] = path
	}
	ui.NewPrinter(nil).PrintSuccess(title, details)

	return nil
}

func runHostsList(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load host profiles: %w", err)
	}

	names := reg.Names()
	if len(names) == 0 {
		fmt.Println("No host profiles saved.")
		fmt.Println()
		fmt.Println("Use 'tn3270 hosts add <name> <address>' to create one.")
		return nil
	}

	nameWidth := len("NAME")
	targetWidth := len("TARGET")
	for _, name := range names {
		if len(name) > nameWidth {
			nameWidth = len(name)
		}
		if l := len(reg.GetHost(name).HostPort()); l > targetWidth {
			targetWidth = l
		}
	}

	fmt.Printf("%-*s  %-*s  %-8s  %-4s  %-10s  %s\n",
		nameWidth, "NAME", targetWidth, "TARGET", "CODEPAGE", "TLS", "LAST USED", "DESCRIPTION")
	for _, name := range names {
		h := reg.GetHost(name)
		codepage := h.Codepage
		if codepage == "" {
			codepage = ebcdic.Default.Name()
		}
		tlsMark := "-"
		if h.TLS {
			tlsMark = "yes"
		}
		lastUsed := "never"
		if !h.LastUsed.IsZero() {
			lastUsed = h.LastUsed.Format("2006-01-02")
		}
		fmt.Printf("%-*s  %-*s  %-8s  %-4s  %-10s  %s\n",
			nameWidth, name, targetWidth, h.HostPort(), codepage, tlsMark, lastUsed, h.Description)
	}

	return nil
}

func runHostsRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load host profiles: %w", err)
	}

	if !reg.RemoveHost(name) {
		return fmt.Errorf("no profile named %q", name)
	}
	if err := reg.Save(); err != nil {
		return fmt.Errorf("failed to save host profiles: %w", err)
	}

	fmt.Printf("✓ Removed profile %q\n", name)
	return nil
}

// discoverCmd browses for announced hosts
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover TN3270 hosts on the local network",
	Long: `Discover TN3270 hosts using mDNS/DNS-SD discovery.

This command browses for ` + discovery.ServiceType + ` services and prints
every host found with its address, port, and advertised metadata.`,
	Example: `  # Browse for 5 seconds (default)
  tn3270 discover

  # Longer browse for slower networks
  tn3270 discover --timeout 15`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Browse timeout in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Browsing for TN3270 hosts (timeout: %ds)...\n\n", scanTimeout)

	hosts, err := discovery.Scan(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if len(hosts) == 0 {
		fmt.Println("No hosts found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the host announces itself (tn3270-host serve --announce <name>)")
		fmt.Println("  - Check that your network allows multicast DNS")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Connect directly with 'tn3270 connect <host:port>' if discovery fails")
		return nil
	}

	fmt.Printf("Found %d host(s):\n\n", len(hosts))

	for i, h := range hosts {
		fmt.Printf("%d. %s\n", i+1, h.Instance)
		fmt.Printf("   Target:   %s\n", h.Target())
		if h.TLS() {
			fmt.Printf("   TLS:      yes\n")
		}
		if h.Hostname != "" {
			fmt.Printf("   Hostname: %s\n", h.Hostname)
		}
		fmt.Println()
	}

	fmt.Println("Use 'tn3270 connect <target>' to open a session")
	fmt.Println("Use 'tn3270 hosts add <name> <address>' to save a profile")

	return nil
}
