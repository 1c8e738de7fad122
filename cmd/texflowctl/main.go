package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artur-silva-empresa/Texdex/pkg/logging"
)

const cliName = "texflowctl"

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	timezone string
	at       string
	logLevel string
}

func (g *globalOptions) location() (*time.Location, error) {
	loc, err := time.LoadLocation(g.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid --timezone: %w", err)
	}
	return loc, nil
}

// now is the instant states are evaluated at, --at or the wall clock
func (g *globalOptions) now() (time.Time, error) {
	loc, err := g.location()
	if err != nil {
		return time.Time{}, err
	}
	if g.at == "" {
		return time.Now().In(loc), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, g.at, loc); err == nil {
		return t.Add(12 * time.Hour), nil
	}
	t, err := time.Parse(time.RFC3339, g.at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want YYYY-MM-DD or RFC3339", g.at)
	}
	return t.In(loc), nil
}

func (g *globalOptions) logger(w io.Writer) *logging.Logger {
	config := logging.DefaultConfig(cliName)
	config.Level = logging.ParseLevel(g.logLevel)
	config.Output = w
	return logging.New(config)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   cliName,
		Short: "Inspect, convert and import ERP production exports",
		Long: `texflowctl works on ERP spreadsheet exports (.xlsx, .xlsm) and ledger
backups (.sqlite, .db) without going through the API.

Available subcommands:
  inspect - Show how a file classifies, sector by sector
  kpis    - Compute the dashboard figures of a file
  export  - Convert a file to an Excel report or a SQLite backup
  import  - Merge a file into the MongoDB ledger`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.timezone, "timezone", getEnv("TIMEZONE", "UTC"), "Location dates are read and evaluated in")
	cmd.PersistentFlags().StringVar(&opts.at, "at", "", "Evaluate states at this date (YYYY-MM-DD or RFC3339, default now)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", getEnv("LOG_LEVEL", "warn"), "Log level: debug, info, warn or error")

	cmd.AddCommand(newInspectCmd(opts))
	cmd.AddCommand(newKPIsCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
