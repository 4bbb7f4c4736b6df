package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/auth"
	"genfity-analytics-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cliNow = time.Date(2026, 3, 15, 15, 0, 0, 0, time.UTC)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDump(t *testing.T) string {
	t.Helper()
	ts := cliNow.Add(-2 * time.Hour)
	records := []store.Record{
		{MerchantID: 1, Order: analytics.Order{ID: "a", Status: analytics.StatusDelivered, Timestamp: ts, Total: 70,
			Items: []analytics.OrderItem{{ID: "p", Name: "Pizza", Category: "Pizzas", Quantity: 1, Price: 70}}}},
		{MerchantID: 1, Order: analytics.Order{ID: "b", Status: analytics.StatusDelivered, Timestamp: ts, Total: 30,
			Items: []analytics.OrderItem{{ID: "s", Name: "Suco", Category: "Bebidas", Quantity: 3, Price: 10}}}},
		{MerchantID: 2, Order: analytics.Order{ID: "c", Status: analytics.StatusDelivered, Timestamp: ts, Total: 500}},
	}
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, store.WriteRecords(path, records))
	return path
}

func TestComputeCommand(t *testing.T) {
	dump := writeDump(t)
	out, err := run(t, "compute", "--orders", dump, "--merchant", "1", "--period", "7d",
		"--now", cliNow.Format(time.RFC3339), "--timezone", "UTC")
	require.NoError(t, err)

	var result analytics.MetricsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, analytics.Period7Days, result.Period)
	assert.Equal(t, 100.0, result.TotalRevenue)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 2.0, result.AvgItemsPerOrder)
}

func TestComputeCommandAllMerchantsCustomRange(t *testing.T) {
	dump := writeDump(t)
	out, err := run(t, "compute", "--orders", dump, "--start", "2026-03-15", "--end", "2026-03-15",
		"--now", cliNow.Format(time.RFC3339), "--timezone", "UTC")
	require.NoError(t, err)

	var result analytics.MetricsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, analytics.PeriodCustom, result.Period)
	assert.Equal(t, 600.0, result.TotalRevenue)
}

func TestComputeCommandErrors(t *testing.T) {
	dump := writeDump(t)
	_, err := run(t, "compute", "--orders", dump, "--period", "fortnight")
	assert.ErrorContains(t, err, "unknown period")

	_, err = run(t, "compute", "--orders", dump, "--start", "2026-03-01")
	assert.Error(t, err)

	_, err = run(t, "compute")
	assert.Error(t, err)

	_, err = run(t, "compute", "--orders", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	dump := writeDump(t)
	dir := t.TempDir()
	for _, format := range []string{"csv", "pdf", "parquet"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(dir, "report."+format)
			out, err := run(t, "export", "--orders", dump, "--format", format, "--out", path,
				"--period", "30d", "--now", cliNow.Format(time.RFC3339))
			require.NoError(t, err)
			assert.Equal(t, path, strings.TrimSpace(out))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.NotZero(t, info.Size())
		})
	}

	_, err := run(t, "export", "--orders", dump, "--format", "xlsx", "--out", filepath.Join(dir, "x"))
	assert.ErrorContains(t, err, "unsupported format")
}

func TestSeedCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	out, err := run(t, "seed", "--count", "25", "--days", "3", "--merchants", "2", "--out", path, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 25 orders")

	records, err := store.ReadRecords(path)
	require.NoError(t, err)
	assert.Len(t, records, 25)

	_, err = run(t, "seed", "--count", "0", "--out", path)
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--merchant", "8", "--role", "staff", "--secret", "cli-secret")
	require.NoError(t, err)

	claims, err := auth.VerifyAccessToken(strings.TrimSpace(out), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleMerchantStaff, claims.Role)
	assert.True(t, claims.HasPermission(auth.PermReports))
	id, err := claims.MerchantIDValue()
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)

	t.Setenv("JWT_SECRET", "")
	_, err = run(t, "token", "--merchant", "8")
	assert.Error(t, err)
}

func TestConfigFileOverridesTuning(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "analyticsctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("funnel_cart_factor: 4\ntimezone: UTC\n"), 0o644))
	dump := writeDump(t)

	out, err := run(t, "--config", cfgPath, "compute", "--orders", dump, "--merchant", "1",
		"--now", cliNow.Format(time.RFC3339))
	require.NoError(t, err)

	var result analytics.MetricsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.FunnelData, 3)
	assert.Equal(t, int64(8), result.FunnelData[1].Value)
}
