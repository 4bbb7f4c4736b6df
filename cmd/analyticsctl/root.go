package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/logger"
	"genfity-analytics-service/internal/store"
	"genfity-analytics-service/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	log     *zap.Logger
}

// envKeys binds config keys to the same variables the service reads.
var envKeys = map[string]string{
	"timezone":             "ANALYTICS_TIMEZONE",
	"jwt_secret":           "JWT_SECRET",
	"funnel_cart_factor":   "ANALYTICS_FUNNEL_CART_FACTOR",
	"funnel_view_factor":   "ANALYTICS_FUNNEL_VIEW_FACTOR",
	"on_time_minutes":      "ANALYTICS_ON_TIME_MINUTES",
	"bag_limit":            "ANALYTICS_BAG_LIMIT",
	"prep_fallback_factor": "ANALYTICS_PREP_FALLBACK_FACTOR",
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "analyticsctl",
		Short:         "Computes and exports restaurant dashboard metrics from order dumps",
		Long:          `analyticsctl runs the analytics engine offline: compute metrics from a JSON order dump, export reports, generate synthetic orders and mint dashboard tokens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.analyticsctl.yaml)")
	flags.String("timezone", "America/Sao_Paulo", "Reporting timezone")
	flags.Bool("verbose", false, "Log progress to stderr")
	_ = a.v.BindPFlag("timezone", flags.Lookup("timezone"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))

	defaults := analytics.DefaultTuning()
	a.v.SetDefault("funnel_cart_factor", defaults.FunnelCartFactor)
	a.v.SetDefault("funnel_view_factor", defaults.FunnelViewFactor)
	a.v.SetDefault("on_time_minutes", defaults.OnTimeMinutes)
	a.v.SetDefault("bag_limit", defaults.BagLimit)
	a.v.SetDefault("prep_fallback_factor", defaults.PrepFallbackFactor)
	for key, env := range envKeys {
		_ = a.v.BindEnv(key, env)
	}

	root.AddCommand(a.computeCmd(), a.exportCmd(), a.seedCmd(), a.tokenCmd())
	return root
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(home)
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".analyticsctl")
		var notFound viper.ConfigFileNotFoundError
		if err := a.v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	log, err := logger.ForCLI(a.v.GetBool("verbose"))
	if err != nil {
		return err
	}
	a.log = log
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Info("using config file", zap.String("path", used))
	}
	return nil
}

func (a *app) engine() *analytics.Engine {
	tuning := analytics.Tuning{
		FunnelCartFactor:   a.v.GetFloat64("funnel_cart_factor"),
		FunnelViewFactor:   a.v.GetFloat64("funnel_view_factor"),
		OnTimeMinutes:      a.v.GetFloat64("on_time_minutes"),
		BagLimit:           a.v.GetInt("bag_limit"),
		PrepFallbackFactor: a.v.GetFloat64("prep_fallback_factor"),
	}
	return analytics.NewEngine(tuning, utils.LoadLocation(a.v.GetString("timezone")))
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("orders", "", "JSON order dump (required)")
	cmd.Flags().Int64("merchant", 0, "Only use orders of this merchant id")
	cmd.Flags().String("period", string(analytics.PeriodToday), "Period label or alias (Hoje, 7d, 30 dias, custom...)")
	cmd.Flags().String("start", "", "Custom range start, YYYY-MM-DD")
	cmd.Flags().String("end", "", "Custom range end, YYYY-MM-DD")
	cmd.Flags().String("now", "", "Evaluate as of this RFC3339 instant instead of the current time")
	_ = cmd.MarkFlagRequired("orders")
}

// computeFromFlags loads the order dump and runs the engine with the query
// flags of cmd.
func (a *app) computeFromFlags(cmd *cobra.Command) (analytics.MetricsResult, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("orders")
	merchantID, _ := flags.GetInt64("merchant")
	periodLabel, _ := flags.GetString("period")
	start, _ := flags.GetString("start")
	end, _ := flags.GetString("end")
	nowText, _ := flags.GetString("now")

	period, ok := analytics.ParsePeriod(periodLabel)
	if !ok {
		return analytics.MetricsResult{}, fmt.Errorf("unknown period %q", periodLabel)
	}
	q := analytics.Query{Period: period}
	if strings.TrimSpace(start) != "" || strings.TrimSpace(end) != "" {
		if start == "" || end == "" {
			return analytics.MetricsResult{}, errors.New("--start and --end must be given together")
		}
		q.Period = analytics.PeriodCustom
		q.CustomRange = &analytics.CustomRange{Start: start, End: end}
	}

	now := time.Now()
	if nowText != "" {
		parsed, err := time.Parse(time.RFC3339, nowText)
		if err != nil {
			return analytics.MetricsResult{}, fmt.Errorf("--now: %w", err)
		}
		now = parsed
	}

	records, err := store.ReadRecords(path)
	if err != nil {
		return analytics.MetricsResult{}, err
	}
	orders := make([]analytics.Order, 0, len(records))
	for _, record := range records {
		if merchantID != 0 && record.MerchantID != merchantID {
			continue
		}
		orders = append(orders, record.Order)
	}
	a.log.Info("orders loaded", zap.String("path", path), zap.Int("orders", len(orders)))

	started := time.Now()
	result := a.engine().Compute(orders, q, now)
	a.log.Info("metrics computed",
		zap.String("period", string(result.Period)),
		zap.Int("valid", result.TotalCount),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}
