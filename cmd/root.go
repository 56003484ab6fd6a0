package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/maxvaer/reconx/internal/config"
	"github.com/maxvaer/reconx/internal/logging"
	"github.com/maxvaer/reconx/internal/runner"
	"github.com/maxvaer/reconx/pkg/version"
)

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"domain", "wordlist", "sources"}},
	{"MODULES", []string{"full", "sub", "probe", "finger", "dir"}},
	{"RATE-LIMIT", []string{"concurrency", "delay", "timeout", "safe", "rate", "adaptive-throttle"}},
	{"HTTP", []string{"header", "user-agent", "proxy", "insecure"}},
	{"OUTPUT", []string{"reports-dir", "quiet", "no-color", "verbose", "log-level", "log-format"}},
	{"CONFIGURATION", []string{"config"}},
}

// newRootCmd builds the root command with its own viper instance. RECONX_*
// environment variables and an optional config file fill any flag that was
// not set on the command line.
func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "reconx -d <domain> [flags]",
		Short:   "Rate-limited HTTP reconnaissance for a single domain",
		Version: version.Version,
		Long: `reconx probes one domain with a bounded, polite set of HTTP requests:
certificate-transparency subdomain lookup, http(s) probing, fingerprinting
and a small directory brute force. Results are written as JSON reports.
Only scan targets you are authorized to test.`,
		Example: `  reconx -d example.com
  reconx -d example.com --probe --finger
  reconx -d example.com --dir -w paths.txt --concurrency 20 --delay 0.05
  reconx -d example.com --safe --adaptive-throttle
  RECONX_CONCURRENCY=4 reconx -d example.com --config reconx.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd, v)
			if err != nil {
				return err
			}
			log, err := logging.New(opts.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if !opts.Quiet {
				printBanner(cmd.ErrOrStderr(), opts.NoColor)
			}
			r, err := runner.New(opts, log, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := r.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Warnw("interrupted, partial reports were saved", "reports_dir", opts.ReportsDir)
					return nil
				}
				return err
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.Flags()

	// Target
	f.StringP("domain", "d", "", "Target domain (example.com)")
	f.StringP("wordlist", "w", "", "Directory word list (default: built-in)")
	f.StringSlice("sources", nil, "Subdomain lookup URL templates with {domain} (default: crt.sh, certspotter)")

	// Modules
	f.Bool("full", false, "Run every module (default when none is selected)")
	f.Bool("sub", false, "Run subdomain enumeration")
	f.Bool("probe", false, "Run HTTP probing")
	f.Bool("finger", false, "Run fingerprinting")
	f.Bool("dir", false, "Run directory brute force")

	// Performance
	f.Int("concurrency", 10, "Maximum requests in flight")
	f.Float64("delay", 0.15, "Pause in seconds each worker takes after a request")
	f.Duration("timeout", 15*time.Second, "Per-request timeout")
	f.Bool("safe", false, "Safe mode: concurrency at most 8, delay at least 0.2s")
	f.Float64("rate", 0, "Global request rate cap in requests/sec (0 = off)")
	f.Bool("adaptive-throttle", false, "Auto back-off on 429/503 and repeated errors")

	// HTTP
	f.StringArrayP("header", "H", nil, "Custom header, repeatable (Key: Value)")
	f.String("user-agent", "", "Custom User-Agent string")
	f.String("proxy", "", "HTTP/SOCKS proxy URL")
	f.Bool("insecure", false, "Skip TLS certificate verification")

	// Output
	f.String("reports-dir", "reports", "Directory for JSON reports")
	f.BoolP("quiet", "q", false, "Minimal output")
	f.Bool("no-color", false, "Disable colored output")
	f.BoolP("verbose", "v", false, "Debug logging")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-format", "console", "Log format: console, json")

	f.String("config", "", "Config file (yaml, toml or json)")

	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		w := cmd.ErrOrStderr()
		noColor, _ := cmd.Flags().GetBool("no-color")
		printBanner(w, noColor)
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if f := cmd.Flags().Lookup(name); f != nil {
					fmt.Fprintln(w, formatFlag(f))
				}
			}
		}
		fmt.Fprintln(w)
	})

	return cmd
}

// loadOptions layers flags, RECONX_* environment variables and the optional
// config file into validated Options.
func loadOptions(cmd *cobra.Command, v *viper.Viper) (*config.Options, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	v.SetEnvPrefix("RECONX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	opts, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	raw, _ := cmd.Flags().GetStringArray("header")
	headers, err := parseHeaders(raw)
	if err != nil {
		return nil, err
	}
	opts.Headers = headers
	return opts, nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid header format %q, expected 'Key: Value'", h)
		}
		headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return headers, nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	// Pad to fixed column width for aligned descriptions.
	const col = 36
	for len(left) < col {
		left += " "
	}

	right := f.Usage
	def := f.DefValue
	if def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}

	return "   " + left + right
}

func printBanner(w io.Writer, noColor bool) {
	c := color.New(color.FgCyan, color.Bold)
	if noColor || !isTerminal(w) {
		c.DisableColor()
	}
	fmt.Fprint(w, c.Sprint(helpBanner(version.Version)))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf(`
   _______  _________  ____  _  __
  / ___/ _ \/ ___/ __ \/ __ \| |/_/
 / /  /  __/ /__/ /_/ / / / />  <  
/_/   \___/\___/\____/_/ /_/_/|_|   %s

`, ver)
}
