package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"token-gen/config"
	"token-gen/logging"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token-gen [key=value]...",
		Short: "Generate an encrypted JWT from key=value claims",
		Long: `token-gen prints a JWE-encrypted JWT (ECDH-ES+A256KW, A256CBC-HS512)
whose claims are the given key=value arguments. Values made only of digits,
optionally with a leading '-', become integers.

The EC P-256 key is read from private_key.json in the working directory and
created there on first use.

Environment:
  TOKEN_GEN_KEY_FILE   key file path (default private_key.json)
  TOKEN_GEN_LEDGER     SQLite file recording issued tokens (default off)
  TOKEN_GEN_LOG_LEVEL  stderr log level (default warn)`,
		Args: cobra.ArbitraryArgs,
		// Every argument is a claim, including ones that look like flags.
		DisableFlagParsing: true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}

			log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
			defer log.Sync()

			if cfg.EnvFileErr != nil {
				log.Warn("ignoring env file", zap.Error(cfg.EnvFileErr))
			}

			return run(cmd.Context(), cfg, log, args, cmd.OutOrStdout())
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}
