package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	erprag "github.com/thanhtoan105/accounting-erp-rag"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/urfave/cli/v2"
)

// runApp runs the CLI with args and returns what it printed.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"erprag"}, args...))
	return out.String(), err
}

func findCommand(t *testing.T, names ...string) *cli.Command {
	t.Helper()
	commands := newApp().Commands
	var found *cli.Command
	for _, name := range names {
		found = nil
		for _, cmd := range commands {
			if cmd.Name == name {
				found = cmd
				break
			}
		}
		require.NotNil(t, found, name)
		commands = found.Subcommands
	}
	return found
}

func findStringFlag(cmd *cli.Command, name string) *cli.StringFlag {
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func TestIndexCommandFlags(t *testing.T) {
	cmd := findCommand(t, "index")

	t.Run("tenant is required", func(t *testing.T) {
		_, err := runApp(t, "index", "--db", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tenant")
	})

	t.Run("embedding-host has default value", func(t *testing.T) {
		hostFlag := findStringFlag(cmd, "embedding-host")
		require.NotNil(t, hostFlag)
		assert.Equal(t, "http://localhost:11434/v1", hostFlag.Value)
		assert.Equal(t, []string{"ERPRAG_EMBEDDING_HOST"}, hostFlag.EnvVars)
	})

	t.Run("embedding-api-key comes from the environment", func(t *testing.T) {
		keyFlag := findStringFlag(cmd, "embedding-api-key")
		require.NotNil(t, keyFlag)
		assert.Empty(t, keyFlag.Value)
		assert.Equal(t, []string{"ERPRAG_EMBEDDING_API_KEY"}, keyFlag.EnvVars)
	})

	t.Run("db comes from the environment", func(t *testing.T) {
		dbFlag := findStringFlag(cmd, "db")
		require.NotNil(t, dbFlag)
		assert.Equal(t, []string{"ERPRAG_DB"}, dbFlag.EnvVars)
	})

	t.Run("type defaults to incremental", func(t *testing.T) {
		typeFlag := findStringFlag(cmd, "type")
		require.NotNil(t, typeFlag)
		assert.Equal(t, "incremental", typeFlag.Value)
	})

	t.Run("max-retries has default value of 3", func(t *testing.T) {
		var retriesFlag *cli.IntFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "max-retries" {
				retriesFlag = f
				break
			}
		}
		require.NotNil(t, retriesFlag)
		assert.Equal(t, 3, retriesFlag.Value)
	})
}

func TestIndexCommandValidation(t *testing.T) {
	tenant := uuid.New().String()

	t.Run("missing db fails", func(t *testing.T) {
		_, err := runApp(t, "index", "--tenant", tenant)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database path is required")
	})

	t.Run("invalid tenant fails", func(t *testing.T) {
		_, err := runApp(t, "index", "--db", t.TempDir(), "--tenant", "acme")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid tenant ID")
	})

	t.Run("invalid batch type fails", func(t *testing.T) {
		_, err := runApp(t, "index", "--db", t.TempDir(), "--tenant", tenant, "--type", "weekly")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidBatchType)
	})

	t.Run("invalid api type fails", func(t *testing.T) {
		_, err := runApp(t, "index", "--db", t.TempDir(), "--tenant", tenant, "--embedding-api-type", "bedrock")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid AI configuration")
	})
}

func TestIndexCommand_EmptyTenant(t *testing.T) {
	dir := t.TempDir()
	tenant := uuid.New().String()

	out, err := runApp(t, "index", "--db", dir, "--tenant", tenant, "--type", "full")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: complete")
	assert.Contains(t, out, "0 processed, 0 failed, 0 total")

	out, err = runApp(t, "batch", "--db", dir, "--tenant", tenant)
	require.NoError(t, err)
	assert.Contains(t, out, "full")
	assert.Contains(t, out, "complete")
}

func TestBatchCommand_RequiresIdOrTenant(t *testing.T) {
	_, err := runApp(t, "batch", "--db", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--id or --tenant")
}

func TestSaltCommands(t *testing.T) {
	dir := t.TempDir()
	tenant := uuid.New().String()

	_, err := runApp(t, "salt", "show", "--db", dir)
	require.Error(t, err)

	out, err := runApp(t, "salt", "set", "--db", dir, "--value", "global-salt")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored pii_masking_global_salt version 1")

	out, err = runApp(t, "salt", "show", "--db", dir, "--tenant", tenant)
	require.NoError(t, err)
	assert.Contains(t, out, "Global: true")
	assert.NotContains(t, out, "global-salt")

	out, err = runApp(t, "salt", "rotate", "--db", dir, "--tenant", tenant)
	require.NoError(t, err)
	assert.Contains(t, out, "version 1")

	out, err = runApp(t, "salt", "show", "--db", dir, "--tenant", tenant, "--reveal")
	require.NoError(t, err)
	assert.Contains(t, out, "Name: pii_masking_company_"+tenant)
	assert.Contains(t, out, "Global: false")
	assert.Contains(t, out, "Value: ")
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()

	t.Run("clean database", func(t *testing.T) {
		out, err := runApp(t, "scan", "--db", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "vector_records: 0 scanned, 0 violations")
		assert.Contains(t, out, "query_logs: 0 scanned, 0 violations")
	})

	t.Run("invalid source", func(t *testing.T) {
		_, err := runApp(t, "scan", "--db", dir, "--source", "documents")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid source")
	})

	t.Run("violations exit non-zero", func(t *testing.T) {
		db, err := erprag.NewDatabase(dir)
		require.NoError(t, err)
		_, err = db.QueryLogs().AppendQueryLog(context.Background(), &core.QueryLog{
			TenantId: uuid.New(),
			Question: "what did ketoan@abc.vn pay?",
		})
		require.NoError(t, err)
		require.NoError(t, db.Close())

		out, err := runApp(t, "scan", "--db", dir, "--source", "queries")
		require.Error(t, err)
		var exitErr cli.ExitCoder
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.ExitCode())
		assert.Contains(t, out, "EMAIL")
		assert.NotContains(t, out, "ketoan@abc.vn")
	})
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "erprag.yaml")
	dbDir := filepath.Join(dir, "db")
	require.NoError(t, os.WriteFile(configPath, []byte("db: "+dbDir+"\nembedding:\n  model: text-embedding-3-small\n"), 0644))

	t.Run("values fill unset flags", func(t *testing.T) {
		out, err := runApp(t, "--config", configPath, "salt", "set", "--value", "from-config")
		require.NoError(t, err)
		assert.Contains(t, out, "version 1")

		_, err = os.Stat(dbDir)
		assert.NoError(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := runApp(t, "--config", filepath.Join(dir, "missing.yaml"), "scan")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("malformed file fails", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("db: [unterminated"), 0644))
		_, err := runApp(t, "--config", bad, "scan")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing default file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(dir, ".env"), false))
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		assert.Error(t, loadEnvFile(filepath.Join(dir, ".env"), true))
	})

	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(dir, "test.env")
		require.NoError(t, os.WriteFile(path, []byte("ERPRAG_TEST_ONLY_VALUE=loaded\n"), 0644))
		t.Cleanup(func() { os.Unsetenv("ERPRAG_TEST_ONLY_VALUE") })

		require.NoError(t, loadEnvFile(path, true))
		assert.Equal(t, "loaded", os.Getenv("ERPRAG_TEST_ONLY_VALUE"))
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"WaRn", slog.LevelWarn},
			{"ERROR", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						assert.True(t, slog.Default().Enabled(context.Background(), tc.expected))
						assert.False(t, slog.Default().Enabled(context.Background(), tc.expected-1))
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, err := runApp(t, "--log-level", "invalid", "scan")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
