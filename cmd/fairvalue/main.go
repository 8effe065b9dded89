// FairValue — equity valuation from the command line.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/fairvalue/api"
	"github.com/seenimoa/fairvalue/internal/cache"
	"github.com/seenimoa/fairvalue/internal/config"
	"github.com/seenimoa/fairvalue/internal/datasource"
	"github.com/seenimoa/fairvalue/internal/logging"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set up in PersistentPreRunE.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fairvalue",
	Short: "FairValue — exit-multiple projections and DCF fair value",
	Long: `FairValue explores equity valuation under two models:
an exit-multiple market-cap projection across named growth scenarios, and a
discounted-cash-flow (FCFE) fair value with a CAPM discount rate.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger = logging.New(cfg.Logging, os.Stderr)
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(dcfCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(serveCmd)
}

// newAggregator wires the configured cache and data sources.
func newAggregator() (*datasource.Aggregator, error) {
	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}
	return datasource.NewAggregatorFromConfig(cfg, store)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "FairValue %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		api.Version = version
		srv, err := api.NewServerFromConfig(cfg, logger)
		if err != nil {
			return fmt.Errorf("server setup failed: %w", err)
		}
		return srv.ListenAndServe(cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and secret status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  FairValue — System Status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintln(out)

		v := cfg.Valuation
		fmt.Fprintln(out, "  Valuation defaults:")
		fmt.Fprintf(out, "    Horizon:       %d years\n", v.Horizon)
		for _, s := range v.Scenarios {
			fmt.Fprintf(out, "    %-14s growth %s, margin %s, multiple %gx\n",
				s.Name+":", fmtPct(s.AnnualRevenueGrowthPct), fmtPct(s.FCFMarginPct), s.ExitMultiple)
		}
		rate := "CAPM"
		if v.DCF.DiscountRatePct != 0 {
			rate = fmtPct(v.DCF.DiscountRatePct)
		}
		fmt.Fprintf(out, "    DCF:           growth %s, terminal %s, ERP %s, discount %s\n",
			fmtPct(v.DCF.FCFGrowthRatePct), fmtPct(v.DCF.TerminalGrowthRatePct), fmtPct(v.DCF.EquityRiskPremiumPct), rate)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    Risk-free:     %v\n", cfg.Data.RiskFreeSources)
		fmt.Fprintf(out, "    Cache:         %s (ttl %ds)\n", cfg.Cache.Backend, cfg.Cache.TTL)
		fmt.Fprintf(out, "    API Server:    %s\n", cfg.API.Addr())
		scoring := "disabled"
		if cfg.Data.ScoringURL != "" {
			scoring = cfg.Data.ScoringURL
		}
		fmt.Fprintf(out, "    Score source:  %s\n", scoring)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Secrets:")
		for _, k := range config.CheckSecrets(cfg) {
			status := "❌ not set"
			switch {
			case k.IsSet:
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			case k.Missing():
				status = fmt.Sprintf("⚠️  required, set %s", k.EnvVar)
			}
			fmt.Fprintf(out, "    %-25s %s\n", k.Name+":", status)
		}

		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}
