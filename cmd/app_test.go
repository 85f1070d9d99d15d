package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerodha/snmp-lama/internal/check"
	"github.com/zerodha/snmp-lama/internal/extract"
	"github.com/zerodha/snmp-lama/internal/inventory"
	"github.com/zerodha/snmp-lama/internal/metrics"
	"github.com/zerodha/snmp-lama/internal/poller"
	"github.com/zerodha/snmp-lama/internal/snmp"
	"github.com/zerodha/snmp-lama/pkg/models"
)

var hostSample = models.RawSample{
	"1.3.6.1.2.1.1.1.0":            "Linux web01",
	"1.3.6.1.2.1.1.4.0":            "ops@example.com",
	"1.3.6.1.2.1.1.6.0":            "DC1",
	"1.3.6.1.4.1.2021.10.1.2.1":    "Load-1",
	"1.3.6.1.4.1.2021.10.1.2.2":    "Load-5",
	"1.3.6.1.4.1.2021.10.1.2.3":    "Load-15",
	"1.3.6.1.4.1.2021.10.1.3.1":    "1.00",
	"1.3.6.1.4.1.2021.10.1.3.2":    "0.50",
	"1.3.6.1.4.1.2021.10.1.3.3":    "0.25",
	"1.3.6.1.4.1.2021.9.1.2.1":     "/",
	"1.3.6.1.4.1.2021.9.1.7.1":     "500000",
	"1.3.6.1.4.1.2021.2.1.2.1":     "mountd",
	"1.3.6.1.4.1.2021.2.1.2.2":     "ntalkd",
	"1.3.6.1.4.1.2021.2.1.2.3":     "sendmail",
	"1.3.6.1.4.1.2021.50.2.1":      "backup",
	"1.3.6.1.4.1.2021.50.101.1":    "all good",
	"1.3.6.1.2.1.2.2.1.2.1":        "lo",
	"1.3.6.1.2.1.2.2.1.2.2":        "eth0",
	"1.3.6.1.2.1.4.21.1.1.0.0.0.0": "0.0.0.0",
}

func newTestApp(t *testing.T, s models.RawSample) *App {
	t.Helper()

	lo := initLogger("debug", io.Discard)
	oids := extract.DefaultOIDs()
	ex := extract.New(oids)
	params := check.DefaultParams()

	return &App{
		lo:         lo,
		opts:       Opts{Target: "web01", MaxRetries: 1},
		poller:     poller.New(lo, snmp.NewSampleFetcher("web01", s), oids.Roots(), poller.Opts{Timeout: time.Second}),
		eval:       check.NewEvaluator(ex, params),
		inv:        inventory.New(ex, params),
		metricsMgr: metrics.NewManager(),
	}
}

func TestRunComposite(t *testing.T) {
	app := newTestApp(t, hostSample)

	var out bytes.Buffer
	code := app.RunComposite(context.Background(), &out)

	assert.Equal(t, 0, code)
	assert.Equal(t, "0 OK - Load values: Load-1=1.0, Load-5=0.5, Load-15=0.25 | OK - All disks have enough space | "+
		"OK - All required processes are running | OK - All custom outputs are fine\n", out.String())
}

func TestRunCompositeCritical(t *testing.T) {
	s := models.RawSample{}
	for k, v := range hostSample {
		s[k] = v
	}
	delete(s, "1.3.6.1.4.1.2021.2.1.2.2")
	s["1.3.6.1.4.1.2021.50.101.1"] = "ERROR: disk full"

	app := newTestApp(t, s)

	var out bytes.Buffer
	code := app.RunComposite(context.Background(), &out)

	assert.Equal(t, 2, code)
	assert.True(t, strings.HasPrefix(out.String(), "2 "))
	assert.Contains(t, out.String(), "CRITICAL - Missing processes: ntalkd")
	assert.Contains(t, out.String(), "CRITICAL - Error in backup: ERROR: disk full")
}

func TestRunInventory(t *testing.T) {
	app := newTestApp(t, models.RawSample{
		"1.3.6.1.4.1.458.115.1.1.0":      "64",
		"1.3.6.1.4.1.458.115.1.2.0":      "32",
		"1.3.6.1.4.1.458.115.1.3.0":      "8",
		"1.3.6.1.4.1.458.115.1.5.0":      "1000",
		"1.3.6.1.4.1.458.115.1.6.0":      "950",
		"1.3.6.1.4.1.458.115.1.17.1.3.1": "db1",
		"1.3.6.1.4.1.458.115.1.17.1.6.1": "2",
	})

	var out bytes.Buffer
	code := app.RunInventory(context.Background(), &out)

	assert.Equal(t, 2, code)
	assert.Equal(t, []string{
		`2 "Storage" storage_used_percent=95;80;90 Used 950 GB of 1000 GB (95.0%)`,
		`0 "Memory" memory_available_gb=64;; 64 GB available`,
		`0 "vCPUs" vcpu_used_percent=25;; Used 8 of 32 (25.0%)`,
		`0 "VM: db1" - VM 'db1' state: StateNum=2`,
		`0 "Alert Count" alert_count=0;; 0 alerts present`,
	}, strings.Split(strings.TrimSpace(out.String()), "\n"))
}

func TestRunInventoryFetchFailure(t *testing.T) {
	app := newTestApp(t, hostSample)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	code := app.RunInventory(ctx, &out)

	assert.Equal(t, 3, code)
	assert.True(t, strings.HasPrefix(out.String(), `3 "everRun" - `), out.String())
}

func TestRunInventoryNothingDiscovered(t *testing.T) {
	app := newTestApp(t, hostSample)

	var out bytes.Buffer
	code := app.RunInventory(context.Background(), &out)

	assert.Equal(t, 0, code)
	assert.Empty(t, out.String())
}

func TestCycle(t *testing.T) {
	app := newTestApp(t, hostSample)

	p := app.Cycle(context.Background())
	require.NotNil(t, p.Composite)
	assert.Equal(t, "web01", p.Target)
	assert.Equal(t, models.StateOK, p.Composite.State)
	assert.Equal(t, "Linux web01", p.Composite.System.Descr)
	assert.Empty(t, p.Services)
}

func TestLocalCheckLine(t *testing.T) {
	warn, crit := 80.0, 90.0
	assert.Equal(t, `1 "Storage" storage_used_percent=85;80;90 Used 850 GB of 1000 GB (85.0%)`,
		localCheckLine(inventory.Service{Name: "Storage", Result: models.Result{
			State:   models.StateWarning,
			Summary: "Used 850 GB of 1000 GB (85.0%)",
			Metrics: []models.Metric{{Name: "storage_used_percent", Value: 85, Warn: &warn, Crit: &crit}},
		}}))

	assert.Equal(t, `0 "VM: db1" - VM 'db1' state: running`,
		localCheckLine(inventory.Service{Name: "VM: db1", Result: models.Result{
			State:   models.StateOK,
			Summary: "VM 'db1' state: running",
		}}))

	assert.Equal(t, `0 "VM: db 'prod' \a" - up`,
		localCheckLine(inventory.Service{Name: "VM: db \"prod\" \\a", Result: models.Result{Summary: "up"}}))

	assert.Equal(t, `0 "Memory" a=1;;|b=2.5;; x`,
		localCheckLine(inventory.Service{Name: "Memory", Result: models.Result{
			Summary: "x",
			Metrics: []models.Metric{{Name: "a", Value: 1}, {Name: "b", Value: 2.5}},
		}}))
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  mode: inventory
snmp:
  target: 10.0.0.1
  community: secret
params:
  load_ceiling: 4
  storage:
    warning: 70
`), 0o600))

	ko, err := initConfig("config.toml", "", []string{"--config", path, "--target", "10.0.0.2"})
	require.NoError(t, err)

	assert.Equal(t, modeInventory, ko.String("app.mode"))
	assert.Equal(t, "10.0.0.2", ko.String("snmp.target"))
	assert.Equal(t, "secret", ko.String("snmp.community"))
	assert.Equal(t, 10*time.Second, ko.Duration("snmp.timeout"))

	p, err := initParams(ko)
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.LoadCeiling)
	assert.Equal(t, 70.0, p.Storage.Warn)
	assert.Equal(t, 90.0, p.Storage.Crit)
	assert.Equal(t, []string{"mountd", "ntalkd", "sendmail"}, p.RequiredProcesses)

	require.NoError(t, validateConfig(ko, p))
}

func TestInitConfigMissingExplicitFile(t *testing.T) {
	_, err := initConfig("config.toml", "", []string{"--config", filepath.Join(t.TempDir(), "nope.toml")})
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	ko, err := initConfig(filepath.Join(t.TempDir(), "absent.toml"), "", []string{"--mode", "bogus"})
	require.NoError(t, err)

	p := check.DefaultParams()
	p.LoadCeiling = 0

	err = validateConfig(ko, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "bogus"`)
	assert.Contains(t, err.Error(), "one of snmp.target or snmp.walk_file is required")
	assert.Contains(t, err.Error(), "load_ceiling must be positive")
}

func TestValidateConfigPort(t *testing.T) {
	for _, port := range []string{"0", "65536", "70000"} {
		t.Setenv("SNMP_LAMA_SNMP__PORT", port)
		ko, err := initConfig(filepath.Join(t.TempDir(), "absent.toml"), "SNMP_LAMA_", []string{"--target", "10.0.0.1"})
		require.NoError(t, err)

		err = validateConfig(ko, check.DefaultParams())
		require.Error(t, err, port)
		assert.Contains(t, err.Error(), "snmp.port must be between 1 and 65535")
	}

	t.Setenv("SNMP_LAMA_SNMP__PORT", "1161")
	ko, err := initConfig(filepath.Join(t.TempDir(), "absent.toml"), "SNMP_LAMA_", []string{"--target", "10.0.0.1"})
	require.NoError(t, err)
	assert.NoError(t, validateConfig(ko, check.DefaultParams()))
}
