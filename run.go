package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-jose/go-jose/v4"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"token-gen/config"
	"token-gen/keystore"
	"token-gen/ledger"
	"token-gen/payload"
	"token-gen/token"
)

// run issues one token for args and writes it to out.
func run(ctx context.Context, cfg config.Config, log *zap.Logger, args []string, out io.Writer) error {
	return issue(ctx, keystore.NewFileStore(cfg.KeyFile, log), cfg, log, args, out)
}

func issue(ctx context.Context, keys keystore.Provider, cfg config.Config, log *zap.Logger, args []string, out io.Writer) error {
	key, err := keys.LoadOrGenerate()
	if err != nil {
		return err
	}

	p, err := payload.Parse(args)
	if err != nil {
		return err
	}

	enc, err := token.NewEncryptor(keystore.Public(key))
	if err != nil {
		return err
	}

	tok, err := enc.Encrypt(p)
	if err != nil {
		return err
	}

	if cfg.Ledger != "" {
		if err := record(ctx, cfg.Ledger, log, key, tok, p); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(out, tok)
	return err
}

func record(ctx context.Context, path string, log *zap.Logger, key *jose.JSONWebKey, tok string, p *payload.Payload) error {
	l, err := ledger.NewSQLiteLedger(path, clock.RealClock{}, log)
	if err != nil {
		return err
	}
	defer l.Close()

	tp, err := keystore.Thumbprint(key)
	if err != nil {
		return err
	}

	_, err = l.Record(ctx, ledger.NewIssue(tp, tok, p))
	return err
}
