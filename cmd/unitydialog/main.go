package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/1broseidon/unitydialog/internal/config"
	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/ipc"
	"github.com/1broseidon/unitydialog/internal/tui"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "parents":
		os.Exit(runParents(os.Args[2:]))
	case "check":
		os.Exit(runCheck(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: unitydialog <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the dialog daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  parents             List dimmed parents and their dialogs")
	fmt.Fprintln(w, "  check               Verify parent/transient links")
	fmt.Fprintln(w, "  reload              Ask the daemon to reload its config")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  watch               Live view of dimmed parents")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'unitydialog <command> --help' for command-specific options.")
}

// parseNoArgs parses a subcommand that only takes flags. It returns -1 when
// the caller should continue, otherwise the exit code.
func parseNoArgs(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		fs.Usage()
		return 2
	}
	return -1
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: unitydialog status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if code := parseNoArgs(fs, args); code >= 0 {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running:     %v\n", status.DaemonRunning)
	fmt.Printf("uptime_seconds:     %d\n", status.UptimeSeconds)
	fmt.Printf("windows:            %d\n", status.Windows)
	fmt.Printf("parents:            %d\n", status.Parents)
	fmt.Printf("transients:         %d\n", status.Transients)
	fmt.Printf("switching_viewport: %v\n", status.SwitchingViewport)
	fmt.Printf("fade_time_ms:       %d\n", status.FadeTimeMS)
	return 0
}

func runParents(args []string) int {
	fs := flag.NewFlagSet("parents", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: unitydialog parents")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List every parent dimmed behind a transient dialog.")
	}
	if code := parseNoArgs(fs, args); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().ListParents()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(data.Parents) == 0 {
		fmt.Println("no dialogs open")
		return 0
	}

	fmt.Printf("%-12s %-5s %-7s %-11s %s\n", "PARENT", "DIM", "INPUT", "CONSTRAINED", "TRANSIENTS")
	for _, p := range data.Parents {
		transients := make([]string, 0, len(p.Transients))
		for _, t := range p.Transients {
			transients = append(transients, fmt.Sprintf("0x%07x", uint32(t)))
		}
		list := strings.Join(transients, ",")
		if list == "" {
			list = "(fading out)"
		}
		fmt.Printf("0x%07x    %3d%%  %-7s %-11s %s\n",
			uint32(p.ID),
			p.ShadeProgress*100/dialog.Opaque,
			yesNo(p.HasInputPassthrough),
			yesNo(p.Constrained),
			list,
		)
	}
	return 0
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: unitydialog check")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Verify that every parent/transient link is mirrored and acyclic.")
		fmt.Fprintln(os.Stderr, "Exits 1 when problems are found.")
	}
	if code := parseNoArgs(fs, args); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().Check()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(data.Problems) == 0 {
		fmt.Println("relationships: ok")
		return 0
	}
	for _, p := range data.Problems {
		fmt.Println(p)
	}
	return 1
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: unitydialog reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the running daemon to re-read its config file.")
	}
	if code := parseNoArgs(fs, args); code >= 0 {
		return code
	}

	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  unitydialog config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  unitydialog config print [--path PATH] [--effective|--defaults]")
		fmt.Fprintln(os.Stderr, "  unitydialog config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/unitydialog/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/unitydialog/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		printEffective := fs.Bool("effective", false, "Print effective config (default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if *printDefaults && *printEffective {
			fmt.Fprintln(os.Stderr, "--defaults and --effective are mutually exclusive")
			return 2
		}

		// The effective config is printed unless --defaults asks for the
		// built-in values alone.
		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/unitydialog/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			fmt.Fprintf(os.Stderr, "known paths: %s\n", strings.Join(config.Paths(), ", "))
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	interval := fs.Duration("interval", tui.DefaultInterval, "Polling interval")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: unitydialog watch [--interval DURATION]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Live view of the parents the daemon is dimming.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓  Select parent")
		fmt.Fprintln(os.Stderr, "  r         Refresh now")
		fmt.Fprintln(os.Stderr, "  q, Esc    Quit")
	}
	if code := parseNoArgs(fs, args); code >= 0 {
		return code
	}
	if *interval < 50*time.Millisecond {
		fmt.Fprintln(os.Stderr, "interval must be at least 50ms")
		return 2
	}

	if err := tui.Run(ipc.NewClient(), *interval); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
