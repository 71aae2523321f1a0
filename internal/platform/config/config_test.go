package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EDUGRANT_ADMINISTRATOR", "0xadmin")
	t.Setenv("EDUGRANT_VERIFIERS", "0xv1,0xv2")
	t.Setenv("EDUGRANT_OPENING_BALANCE", "1000")
	t.Setenv("EDUGRANT_CUSTODY_COOLDOWN", "1m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.Ops.Addr)
	assert.Equal(t, "0xadmin", cfg.Ledger.Administrator)
	assert.Equal(t, []string{"0xv1", "0xv2"}, cfg.Ledger.Verifiers)
	assert.Equal(t, int64(1000), cfg.Ledger.OpeningBalance)
	assert.Equal(t, time.Minute, cfg.Ledger.Custody.Cooldown)
	assert.Equal(t, 5, cfg.Ledger.Custody.FailureThreshold)
	assert.Equal(t, 256, cfg.Audit.Buffer)
	assert.Empty(t, cfg.Audit.SQLitePath)
	assert.Empty(t, cfg.Audit.PostgresDSN)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresAdministrator(t *testing.T) {
	t.Setenv("EDUGRANT_ADMINISTRATOR", "")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("EDUGRANT_ADMINISTRATOR", "0xadmin")
	t.Setenv("EDUGRANT_ENV", "staging")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Env")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edugrant.yaml")
	body := `env: production
log_level: warn
ops:
  address: ":8081"
ledger:
  administrator: "0xfile-admin"
  verifiers: ["0xv9"]
  opening_balance: 250
audit:
  buffer: 0
  sqlite_path: "/tmp/audit.db"
  postgres_dsn: "postgres://edugrant@localhost/edugrant?sslmode=disable"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ":8081", cfg.Ops.Addr)
	assert.Equal(t, "0xfile-admin", cfg.Ledger.Administrator)
	assert.Equal(t, []string{"0xv9"}, cfg.Ledger.Verifiers)
	assert.Equal(t, int64(250), cfg.Ledger.OpeningBalance)
	assert.Equal(t, 0, cfg.Audit.Buffer)
	assert.Equal(t, "/tmp/audit.db", cfg.Audit.SQLitePath)
	assert.Equal(t, "postgres://edugrant@localhost/edugrant?sslmode=disable", cfg.Audit.PostgresDSN)
}

func TestAuditBufferZeroFromEnvIsKept(t *testing.T) {
	t.Setenv("EDUGRANT_ADMINISTRATOR", "0xadmin")
	t.Setenv("EDUGRANT_AUDIT_BUFFER", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Audit.Buffer)
}

func TestAuditBufferDefaultsWhenFileOmitsIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edugrant.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  administrator: \"0xadmin\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultAuditBuffer, cfg.Audit.Buffer)
}
