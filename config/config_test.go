package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"TOKEN_GEN_KEY_FILE", "TOKEN_GEN_LEDGER", "TOKEN_GEN_LOG_LEVEL"} {
		unsetenv(t, k)
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), ".env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, "private_key.json", cfg.KeyFile)
	require.Empty(t, cfg.Ledger)
	require.Equal(t, zapcore.WarnLevel, cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN_GEN_KEY_FILE", "/etc/token-gen/key.json")
	t.Setenv("TOKEN_GEN_LEDGER", "/var/lib/token-gen/ledger.db")
	t.Setenv("TOKEN_GEN_LOG_LEVEL", "debug")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, "/etc/token-gen/key.json", cfg.KeyFile)
	require.Equal(t, "/var/lib/token-gen/ledger.db", cfg.Ledger)
	require.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
}

func TestLoadExpandsHome(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN_GEN_KEY_FILE", "~/keys/token.json")

	home, err := homedir.Dir()
	require.NoError(t, err)

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "keys", "token.json"), cfg.KeyFile)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TOKEN_GEN_LEDGER=issued.db\nTOKEN_GEN_LOG_LEVEL=info\n"), 0o600))

	// The real environment wins over the file.
	t.Setenv("TOKEN_GEN_LOG_LEVEL", "error")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	require.Equal(t, "issued.db", cfg.Ledger)
	require.Equal(t, zapcore.ErrorLevel, cfg.LogLevel)
	require.Equal(t, "private_key.json", cfg.KeyFile)
}

func TestLoadBadLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN_GEN_LOG_LEVEL", "shouty")

	_, err := Load(missingEnvFile(t))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfig))
}

func TestLoadIgnoresOtherEnvFileEntries(t *testing.T) {
	clearEnv(t)
	unsetenv(t, "DATABASE_URL")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DATABASE_URL=postgres://x\nTOKEN_GEN_KEY_FILE=k.json\n"), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	require.NoError(t, cfg.EnvFileErr)
	require.Equal(t, "k.json", cfg.KeyFile)

	// The file only feeds configuration; the environment is left alone.
	_, set := os.LookupEnv("DATABASE_URL")
	require.False(t, set)
	_, set = os.LookupEnv("TOKEN_GEN_KEY_FILE")
	require.False(t, set)
}

func TestLoadUnparsableEnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DATABASE_URL=postgres://x\nexport\n{bad\n"), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	require.Error(t, cfg.EnvFileErr)
	require.Equal(t, "private_key.json", cfg.KeyFile)
	require.Empty(t, cfg.Ledger)
	require.Equal(t, zapcore.WarnLevel, cfg.LogLevel)
}

func TestLoadEnvFileIsDirectory(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Error(t, cfg.EnvFileErr)
	require.Equal(t, "private_key.json", cfg.KeyFile)
}
