package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `telegram:
  token: "123:test"
database:
  driver: sqlite3
  path: %q
storage:
  endpoint: localhost:9000
  bucket: books
logging:
  format: json
  dir: %q
  bot_file: bot.log
`

func TestSeedFailureFlushesLog(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	cfgPath := filepath.Join(dir, "config.yaml")
	body := []byte(fmt.Sprintf(testConfig, filepath.Join(dir, "books.db"), logDir))
	require.NoError(t, os.WriteFile(cfgPath, body, 0o600))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"seed", filepath.Join(dir, "missing.yaml"), "--config", cfgPath})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seeding failed")
	assert.Empty(t, out.String())

	data, err := os.ReadFile(filepath.Join(logDir, "bot.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "startup")
}
