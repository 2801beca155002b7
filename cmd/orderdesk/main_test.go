package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/order-status-sync/internal/config"
	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/view"
)

func init() {
	color.NoColor = true
}

var orderID = regexp.MustCompile(`ord-[0-9a-f-]{36}`)

func sqliteConfig(t *testing.T) func() *viper.Viper {
	t.Helper()

	path := filepath.Join(t.TempDir(), "desk.db")
	return func() *viper.Viper {
		v := config.New()
		v.Set("DB_DRIVER", config.DriverSQLite)
		v.Set("SQLITE_PATH", path)
		v.Set("LOG_LEVEL", "error")
		v.Set("METRICS_ENABLED", false)
		v.Set("KAFKA_BROKERS", "")
		return v
	}
}

func run(t *testing.T, v *viper.Viper, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd(v)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestOrdersWorkflow(t *testing.T) {
	newConfig := sqliteConfig(t)

	out, err := run(t, newConfig(), "", "orders", "add",
		"--folio", "1001", "--tracking-id", "T1", "--subtotal", "10", "--shipping", "2.5",
		"--customer", "Ana", "--date", "2024-05-01")
	require.NoError(t, err, out)
	id := orderID.FindString(out)
	require.NotEmpty(t, id, out)

	out, err = run(t, newConfig(), "", "orders", "advance", id)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Order 1001 marked confirmed")
	assert.Contains(t, out, "tracking: created")

	out, err = run(t, newConfig(), "", "orders", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1001")
	assert.Contains(t, out, "12.50")
	assert.Contains(t, out, "25%")
	assert.Contains(t, out, "confirmed")
	assert.Contains(t, out, "Page 1/1, 1 orders")

	out, err = run(t, newConfig(), "", "orders", "list", "--status", "ready")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Page 1/1, 0 orders")

	out, err = run(t, newConfig(), "n\n", "orders", "cancel", id)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cancel order 1001? [y/N]")
	assert.Contains(t, out, "unchanged")

	out, err = run(t, newConfig(), "", "orders", "cancel", "--yes", id)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Order 1001 marked cancelled")
	assert.Contains(t, out, "tracking: updated")

	out, err = run(t, newConfig(), "", "tracking", "T1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "cancelled (100%)")

	_, err = run(t, newConfig(), "", "orders", "set-status", id, "lost")
	assert.Error(t, err)

	out, err = run(t, newConfig(), "", "ping")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 document(s)")
}

func TestOrdersAddRequiresFolio(t *testing.T) {
	newConfig := sqliteConfig(t)

	_, err := run(t, newConfig(), "", "orders", "add", "--total", "3")
	assert.Error(t, err)

	_, err = run(t, newConfig(), "", "orders", "add", "--folio", "9", "--method", "drone")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	v := config.New()
	v.Set("LOG_LEVEL", "error")

	out, err := run(t, v, "", "token", "--subject", "op-1")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}

func TestConfirm(t *testing.T) {
	tests := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"yes":   true,
	}

	for input, want := range tests {
		var out bytes.Buffer
		assert.Equal(t, want, confirm(strings.NewReader(input), &out, "Sure?"), "input %q", input)
		assert.Equal(t, "Sure? [y/N] ", out.String())
	}
}

func TestRenderOrders(t *testing.T) {
	var out bytes.Buffer
	renderOrders(&out, view.Page{
		Items: []*models.Order{
			{DocID: "ord-1", Folio: "1001", Date: "2024-05-01", Total: 9, Status: models.StatusReady},
			{DocID: "ord-2", Folio: "1002", Date: "2024-05-02", Total: 3},
		},
		Page:       1,
		TotalPages: 1,
		TotalCount: 2,
	})

	text := out.String()
	assert.Contains(t, text, "75%")
	assert.Contains(t, text, "0%")
	assert.Contains(t, text, "new")
	assert.Contains(t, text, "Page 1/1, 2 orders")
}
