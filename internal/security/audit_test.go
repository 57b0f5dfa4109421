package security

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_WriteAppendsJSONLine(t *testing.T) {
	dir := t.TempDir()
	log := NewAuditLog(AuditLogConfig{Dir: dir, MaxSizeMB: 1, MaxAgeDays: 1, MaxBackups: 1})

	log.Write(AuditEntry{TenantID: "t1", Action: "crawl", Outcome: OutcomeSuccess})

	path := filepath.Join(dir, "audit.jsonl")
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	line := scanner.Text()
	assert.Contains(t, line, `"tenant_id":"t1"`)
	assert.Contains(t, line, `"action":"crawl"`)
	assert.Contains(t, line, `"outcome":"success"`)
}

func TestDefaultAuditLogConfig_SetsRetentionDefaults(t *testing.T) {
	cfg := DefaultAuditLogConfig()
	assert.Equal(t, "logs/audit", cfg.Dir)
	assert.Equal(t, 100, cfg.MaxSizeMB)
	assert.Equal(t, 30, cfg.MaxAgeDays)
	assert.Equal(t, 10, cfg.MaxBackups)
}
