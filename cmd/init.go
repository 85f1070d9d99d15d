package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
	"github.com/zerodha/snmp-lama/internal/check"
	"github.com/zerodha/snmp-lama/internal/extract"
	"github.com/zerodha/snmp-lama/internal/metrics"
	"github.com/zerodha/snmp-lama/internal/poller"
	"github.com/zerodha/snmp-lama/internal/push"
	"github.com/zerodha/snmp-lama/internal/snmp"
	"golang.org/x/exp/slog"
)

const (
	modeComposite = "composite"
	modeInventory = "inventory"
	modeDaemon    = "daemon"
)

// defaultConfig is loaded before the config file so every key read with a
// Must* getter below is always present.
var defaultConfig = map[string]interface{}{
	"app.log_level":      "info",
	"app.mode":           modeComposite,
	"app.max_retries":    3,
	"app.retry_interval": "5s",
	"app.sync_interval":  "1m",

	"snmp.target":          "",
	"snmp.walk_file":       "",
	"snmp.port":            161,
	"snmp.community":       "public",
	"snmp.version":         "2c",
	"snmp.timeout":         "10s",
	"snmp.retries":         1,
	"snmp.max_repetitions": 10,
	"snmp.concurrency":     0,

	"push.url":               "",
	"push.token":             "",
	"push.timeout":           "10s",
	"push.idle_conn_timeout": "90s",

	"metrics.address": ":9161",
}

// initConfig loads config to `ko`
// object.
func initConfig(cfgDefault, envPrefix string, args []string) (*koanf.Koanf, error) {
	var (
		ko = koanf.New(".")
		f  = flag.NewFlagSet("snmp-lama", flag.ContinueOnError)
	)

	// Configure Flags.
	f.Usage = func() {
		fmt.Println(f.FlagUsages())
		os.Exit(0)
	}

	cfgPath := f.String("config", cfgDefault, "Path to a config file to load (.toml or .yaml).")
	f.String("mode", modeComposite, "Run mode: composite, inventory or daemon.")
	f.String("target", "", "SNMP agent address.")
	f.String("walk-file", "", "Read a saved `snmpwalk -On` dump instead of polling an agent.")

	// Parse and Load Flags.
	if err := f.Parse(args); err != nil {
		return nil, err
	}

	if err := ko.Load(confmap.Provider(defaultConfig, "."), nil); err != nil {
		return nil, err
	}

	// The default config file is optional; an explicit one is not.
	if _, err := os.Stat(*cfgPath); err == nil || f.Changed("config") {
		if err := ko.Load(file.Provider(*cfgPath), parserFor(*cfgPath)); err != nil {
			return nil, fmt.Errorf("loading %s: %w", *cfgPath, err)
		}
	}

	// Load environment variables if the key is given
	// and merge into the loaded config.
	if envPrefix != "" {
		err := ko.Load(env.Provider(envPrefix, ".", func(s string) string {
			return strings.Replace(strings.ToLower(
				strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
		}), nil)
		if err != nil {
			return nil, err
		}
	}

	// Flags set on the command line win over everything else.
	overrides := map[string]interface{}{}
	for flagName, key := range map[string]string{
		"mode":      "app.mode",
		"target":    "snmp.target",
		"walk-file": "snmp.walk_file",
	} {
		if f.Changed(flagName) {
			v, _ := f.GetString(flagName)
			overrides[key] = v
		}
	}
	if err := ko.Load(confmap.Provider(overrides, "."), nil); err != nil {
		return nil, err
	}

	return ko, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	}
	return toml.Parser()
}

// validateConfig reports every problem in the loaded config at once.
func validateConfig(ko *koanf.Koanf, params check.Params) error {
	var errs *multierror.Error

	switch ko.String("app.mode") {
	case modeComposite, modeInventory, modeDaemon:
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown mode %q", ko.String("app.mode")))
	}
	if ko.String("snmp.target") == "" && ko.String("snmp.walk_file") == "" {
		errs = multierror.Append(errs, errors.New("one of snmp.target or snmp.walk_file is required"))
	}
	if port := ko.Int("snmp.port"); port < 1 || port > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("snmp.port must be between 1 and 65535, got %d", port))
	}
	if ko.Int("app.max_retries") < 1 {
		errs = multierror.Append(errs, errors.New("app.max_retries must be at least 1"))
	}
	if ko.Duration("snmp.timeout") <= 0 {
		errs = multierror.Append(errs, errors.New("snmp.timeout must be positive"))
	}
	if ko.String("app.mode") == modeDaemon && ko.Duration("app.sync_interval") <= 0 {
		errs = multierror.Append(errs, errors.New("app.sync_interval must be positive"))
	}
	if err := params.Validate(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("params: %w", err))
	}

	return errs.ErrorOrNil()
}

// initLogger initialies a logger.
func initLogger(lvl string, w io.Writer) *slog.Logger {
	opts := slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelInfo,
	}
	if lvl == "debug" {
		opts.Level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &opts).WithAttrs([]slog.Attr{slog.String("component", "snmp-lama")}))
}

// initParams overlays the [params] section on the default thresholds.
func initParams(ko *koanf.Koanf) (check.Params, error) {
	p := check.DefaultParams()
	if err := ko.Unmarshal("params", &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal params: %v", err)
	}
	return p, nil
}

// initOIDs overlays the [oids] section on the default object identifiers.
func initOIDs(ko *koanf.Koanf) (extract.OIDs, error) {
	o := extract.DefaultOIDs()
	if err := ko.Unmarshal("oids", &o); err != nil {
		return o, fmt.Errorf("failed to unmarshal oids: %v", err)
	}
	return o, nil
}

// initFetcher returns a file backed fetcher when a walk file is configured
// and an SNMP manager otherwise.
func initFetcher(ko *koanf.Koanf, lo *slog.Logger) (snmp.Fetcher, error) {
	if path := ko.String("snmp.walk_file"); path != "" {
		f, err := snmp.NewFileFetcher(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	m, err := snmp.NewManager(lo, snmp.Opts{
		Target:         ko.MustString("snmp.target"),
		Port:           uint16(ko.MustInt("snmp.port")),
		Community:      ko.String("snmp.community"),
		Version:        ko.MustString("snmp.version"),
		Timeout:        ko.MustDuration("snmp.timeout"),
		Retries:        ko.Int("snmp.retries"),
		MaxRepetitions: uint32(ko.Int("snmp.max_repetitions")),
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func initPoller(ko *koanf.Koanf, lo *slog.Logger, fetcher snmp.Fetcher, oids extract.OIDs) *poller.Poller {
	return poller.New(lo, fetcher, oids.Roots(), poller.Opts{
		Timeout:     ko.MustDuration("snmp.timeout"),
		Concurrency: ko.Int("snmp.concurrency"),
	})
}

// initPushManager initialises the push manager. Pushing is optional, a nil
// manager is returned when no URL is configured.
func initPushManager(ko *koanf.Koanf, lo *slog.Logger) (*push.Manager, error) {
	if ko.String("push.url") == "" {
		return nil, nil
	}

	return push.New(lo, push.Opts{
		URL:             ko.MustString("push.url"),
		Token:           ko.String("push.token"),
		Timeout:         ko.MustDuration("push.timeout"),
		IdleConnTimeout: ko.Duration("push.idle_conn_timeout"),
	})
}

// initMetricsManager initialises the metrics manager.
func initMetricsManager() *metrics.Manager {
	return metrics.NewManager()
}

func initOpts(ko *koanf.Koanf) Opts {
	target := ko.String("snmp.target")
	if target == "" {
		target = filepath.Base(ko.String("snmp.walk_file"))
	}

	return Opts{
		Mode:           ko.MustString("app.mode"),
		Target:         target,
		MaxRetries:     ko.MustInt("app.max_retries"),
		RetryInterval:  ko.MustDuration("app.retry_interval"),
		SyncInterval:   ko.MustDuration("app.sync_interval"),
		MetricsAddress: ko.String("metrics.address"),
	}
}
