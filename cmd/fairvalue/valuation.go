package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seenimoa/fairvalue/internal/datasource"
	"github.com/seenimoa/fairvalue/internal/valuation"
	"github.com/seenimoa/fairvalue/pkg/models"
	"github.com/seenimoa/fairvalue/pkg/utils"
)

// --- Project Command ---

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project market cap across growth scenarios",
	Long: `Project future market cap with the exit-multiple model.

Each scenario compounds revenue at its growth rate, applies its FCF margin and
exit multiple, and reports the implied CAGR over the horizon.

Examples:
  fairvalue project --revenue 391e9 --market-cap 3.4e12
  fairvalue project --ticker AAPL --horizon 10
  fairvalue project --revenue 1e9 --market-cap 8e9 --scenario bear=5,15,10 --scenario bull=35,25,25`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		revenue, _ := flags.GetFloat64("revenue")
		marketCap, _ := flags.GetFloat64("market-cap")
		ticker, _ := flags.GetString("ticker")

		horizon := cfg.Valuation.Horizon
		if flags.Changed("horizon") {
			horizon, _ = flags.GetInt("horizon")
		}

		specs, _ := flags.GetStringArray("scenario")
		scenarios, err := scenarioSet(specs)
		if err != nil {
			return err
		}

		if ticker != "" && !flags.Changed("revenue") && !flags.Changed("market-cap") {
			agg, err := newAggregator()
			if err != nil {
				return err
			}
			snap, err := agg.Snapshots().GetSnapshot(cmd.Context(), ticker)
			if err != nil {
				return err
			}
			revenue, marketCap = snap.Revenue, snap.MarketCap
			fmt.Fprintf(cmd.OutOrStdout(), "%s: revenue %s, market cap %s\n\n",
				snap.Ticker, utils.FormatCompact(revenue), utils.FormatCompact(marketCap))
		}

		res, err := valuation.Project(valuation.ProjectionBase{Revenue: revenue, MarketCap: marketCap}, scenarios, horizon)
		if err != nil {
			return err
		}
		printProjection(cmd.OutOrStdout(), res, scenarios.Names())
		return nil
	},
}

func init() {
	projectCmd.Flags().Float64("revenue", 0, "current annual revenue")
	projectCmd.Flags().Float64("market-cap", 0, "current market cap")
	projectCmd.Flags().Int("horizon", 0, "projection horizon in years (default from config)")
	projectCmd.Flags().StringArray("scenario", nil, "scenario as name=growth,margin,multiple (repeatable; default from config)")
	projectCmd.Flags().String("ticker", "", "fetch revenue and market cap for this ticker")
}

// scenarioSet parses --scenario values, falling back to the configured set.
func scenarioSet(specs []string) (*valuation.ScenarioSet, error) {
	if len(specs) == 0 {
		return cfg.Valuation.ScenarioSet()
	}
	set := &valuation.ScenarioSet{}
	for _, spec := range specs {
		sc, err := parseScenario(spec)
		if err != nil {
			return nil, err
		}
		if err := set.Add(sc.Name, sc.ScenarioAssumptions); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// parseScenario parses "name=growth,margin,multiple".
func parseScenario(spec string) (valuation.NamedScenario, error) {
	name, values, ok := strings.Cut(spec, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return valuation.NamedScenario{}, fmt.Errorf("scenario %q: want name=growth,margin,multiple", spec)
	}
	parts := strings.Split(values, ",")
	if len(parts) != 3 {
		return valuation.NamedScenario{}, fmt.Errorf("scenario %q: want 3 values, got %d", spec, len(parts))
	}
	var nums [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return valuation.NamedScenario{}, fmt.Errorf("scenario %q: %w", spec, err)
		}
		nums[i] = f
	}
	return valuation.NamedScenario{
		Name: strings.TrimSpace(name),
		ScenarioAssumptions: valuation.ScenarioAssumptions{
			AnnualRevenueGrowthPct: nums[0],
			FCFMarginPct:           nums[1],
			ExitMultiple:           nums[2],
		},
	}, nil
}

func printProjection(out io.Writer, res *valuation.ProjectionResult, names []string) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Year\t%s\t\n", strings.Join(names, "\t"))
	for _, point := range res.Timeline {
		cells := make([]string, len(names))
		for i, name := range names {
			v, _ := point.Value(name)
			cells[i] = utils.FormatCompact(v)
		}
		fmt.Fprintf(tw, "%d\t%s\t\n", point.Year, strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Fprintln(out)

	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Scenario\tFuture Market Cap\tCAGR")
	for _, s := range res.Summaries {
		cagr := utils.NotAvailable
		if s.CAGRPct != nil {
			cagr = utils.FormatPct(*s.CAGRPct)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, utils.FormatCurrency(s.FutureMarketCap), cagr)
	}
	tw.Flush()
}

// --- Rate Command ---

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Resolve the DCF discount rate via CAPM",
	Long: `Resolve the discount rate: r = risk-free + beta × equity risk premium.

Without --risk-free the 10-year Treasury yield is fetched from the configured
sources. A non-zero --override is returned unchanged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		beta, _ := flags.GetFloat64("beta")
		override, _ := flags.GetFloat64("override")
		erp := cfg.Valuation.DCF.EquityRiskPremiumPct
		if flags.Changed("erp") {
			erp, _ = flags.GetFloat64("erp")
		}

		rf, _ := flags.GetFloat64("risk-free")
		if !flags.Changed("risk-free") && override == 0 {
			agg, err := newAggregator()
			if err != nil {
				return err
			}
			if rf, err = agg.RiskFree().GetRiskFreeRate(cmd.Context()); err != nil {
				return err
			}
		}

		rate, err := valuation.ResolveDiscountRate(rf, beta, erp, override)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Discount rate: %s\n", fmtPct(rate))
		if override == 0 {
			fmt.Fprintf(out, "  CAPM: %s + %.2f × %s\n", utils.FormatPercentage(rf), beta, fmtPct(erp))
		} else {
			fmt.Fprintln(out, "  (override)")
		}
		return nil
	},
}

func init() {
	rateCmd.Flags().Float64("risk-free", 0, "risk-free rate as a decimal fraction, e.g. 0.042 (default: fetched)")
	rateCmd.Flags().Float64("beta", 1, "equity beta")
	rateCmd.Flags().Float64("erp", 0, "equity risk premium in percent (default from config)")
	rateCmd.Flags().Float64("override", 0, "discount rate override in percent")
}

// --- DCF Command ---

var dcfCmd = &cobra.Command{
	Use:   "dcf [ticker]",
	Short: "Estimate fair value per share with an FCFE DCF",
	Long: `Estimate fair value per share with the FCFE discounted-cash-flow model.

With a ticker the snapshot and risk-free rate are fetched. Without one, supply
the snapshot with --fcfe, --shares, --debt, --cash, --beta and --risk-free.

Examples:
  fairvalue dcf AAPL
  fairvalue dcf MSFT --growth 12 --terminal 2.5
  fairvalue dcf --fcfe 100 --shares 50 --debt 200 --cash 50 --discount 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		a := dcfAssumptions(cmd)

		var snap models.FinancialSnapshot
		if len(args) == 1 {
			agg, err := newAggregator()
			if err != nil {
				return err
			}
			fetched, err := agg.FetchDCFInputs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			snap = *fetched
		} else {
			snap.SharesOutstanding, _ = flags.GetFloat64("shares")
			snap.TotalDebt, _ = flags.GetFloat64("debt")
			snap.CashAndEquivalents, _ = flags.GetFloat64("cash")
			snap.Beta, _ = flags.GetFloat64("beta")
			snap.RiskFreeRate, _ = flags.GetFloat64("risk-free")
			if flags.Changed("fcfe") {
				fcfe, _ := flags.GetFloat64("fcfe")
				snap.LeveredFreeCashFlow = models.Float(fcfe)
			}
			if err := datasource.ValidateForDCF(snap); err != nil {
				return err
			}
			if !flags.Changed("risk-free") && a.DiscountRatePct == 0 {
				agg, err := newAggregator()
				if err != nil {
					return err
				}
				if snap.RiskFreeRate, err = agg.RiskFree().GetRiskFreeRate(cmd.Context()); err != nil {
					return err
				}
			}
		}

		res, err := valuation.Valuate(snap, a)
		if err != nil {
			return err
		}
		printDCF(cmd.OutOrStdout(), snap, res)
		return nil
	},
}

func init() {
	f := dcfCmd.Flags()
	f.Float64("growth", 0, "FCFE growth rate in percent (default from config)")
	f.Float64("terminal", 0, "terminal growth rate in percent (default from config)")
	f.Float64("erp", 0, "equity risk premium in percent (default from config)")
	f.Float64("discount", 0, "discount rate override in percent (default: CAPM)")
	f.Int("years", 0, "explicit forecast years (default from config)")

	f.Float64("fcfe", 0, "levered free cash flow (without ticker)")
	f.Float64("shares", 0, "shares outstanding (without ticker)")
	f.Float64("debt", 0, "total debt (without ticker)")
	f.Float64("cash", 0, "cash and equivalents (without ticker)")
	f.Float64("beta", 1, "equity beta (without ticker)")
	f.Float64("risk-free", 0, "risk-free rate as a decimal fraction (without ticker; default: fetched)")
}

// dcfAssumptions overlays changed flags on the configured defaults.
func dcfAssumptions(cmd *cobra.Command) valuation.DCFAssumptions {
	flags := cmd.Flags()
	a := cfg.Valuation.DCF
	if flags.Changed("growth") {
		a.FCFGrowthRatePct, _ = flags.GetFloat64("growth")
	}
	if flags.Changed("terminal") {
		a.TerminalGrowthRatePct, _ = flags.GetFloat64("terminal")
	}
	if flags.Changed("erp") {
		a.EquityRiskPremiumPct, _ = flags.GetFloat64("erp")
	}
	if flags.Changed("discount") {
		a.DiscountRatePct, _ = flags.GetFloat64("discount")
	}
	if flags.Changed("years") {
		a.Years, _ = flags.GetInt("years")
	}
	return a
}

func printDCF(out io.Writer, snap models.FinancialSnapshot, res *valuation.DCFResult) {
	if snap.Ticker != "" {
		fmt.Fprintf(out, "%s  %s\n\n", snap.Ticker, snap.Name)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Year\tFCFE\tPresent Value\t")
	for _, y := range res.Projections {
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", y.Year, utils.FormatCompact(y.FCFE), utils.FormatCompact(y.PresentValue))
	}
	tw.Flush()
	fmt.Fprintln(out)

	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Discount rate\t%s\n", fmtPct(res.DiscountRatePct))
	fmt.Fprintf(tw, "PV of explicit FCFE\t%s\n", utils.FormatCurrency(res.PVExplicit))
	fmt.Fprintf(tw, "Terminal value\t%s\n", utils.FormatCurrency(res.TerminalValue))
	fmt.Fprintf(tw, "PV of terminal value\t%s\n", utils.FormatCurrency(res.PVTerminal))
	fmt.Fprintf(tw, "Equity value\t%s\n", utils.FormatCurrency(res.EquityValue))
	fmt.Fprintf(tw, "Net debt\t%s\n", utils.FormatCurrency(res.NetDebt))
	fmt.Fprintf(tw, "Enterprise value\t%s\n", utils.FormatCurrency(res.EnterpriseValue))
	fmt.Fprintf(tw, "Fair value per share\t%s\n", utils.FormatCurrency(res.FairPricePerShare))
	tw.Flush()
}

// fmtPct renders a whole percentage (6 → "6.00%").
func fmtPct(pct float64) string {
	return utils.FormatPercentage(pct / 100)
}
