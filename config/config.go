package config

import (
	"io/fs"
	"strings"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"token-gen/keystore"
	"token-gen/logging"
)

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "TOKEN_GEN"

var ErrConfig = errors.New("invalid configuration")

type Config struct {
	KeyFile  string // TOKEN_GEN_KEY_FILE
	Ledger   string // TOKEN_GEN_LEDGER, empty disables the ledger
	LogLevel zapcore.Level

	// EnvFileErr is set when the env file exists but could not be read. The
	// file is then ignored.
	EnvFileErr error
}

// Load reads the configuration from the environment. TOKEN_GEN_* entries of
// envFile (".env" when empty) fill in variables the environment leaves
// unset; other entries in the file are ignored and the process environment
// is not modified.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("key_file", keystore.DefaultPath)
	v.SetDefault("ledger", "")
	v.SetDefault("log_level", logging.DefaultLevel)

	var cfg Config

	fileVars, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		for k, val := range fileVars {
			name, ok := strings.CutPrefix(k, EnvPrefix+"_")
			if !ok || name == "" {
				continue
			}
			v.SetDefault(strings.ToLower(name), val)
		}
	case !errors.Is(err, fs.ErrNotExist):
		cfg.EnvFileErr = errors.Wrapf(err, "read %s", envFile)
	}

	cfg.KeyFile, err = homedir.Expand(v.GetString("key_file"))
	if err != nil {
		return Config{}, errors.Wrapf(ErrConfig, "key file: %v", err)
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = keystore.DefaultPath
	}

	cfg.Ledger, err = homedir.Expand(v.GetString("ledger"))
	if err != nil {
		return Config{}, errors.Wrapf(ErrConfig, "ledger: %v", err)
	}

	cfg.LogLevel, err = logging.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return Config{}, errors.Wrapf(ErrConfig, "%v", err)
	}

	return cfg, nil
}
