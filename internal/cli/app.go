// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Dependency wiring shared by the commands.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jeranaias/docchat/internal/api"
	"github.com/jeranaias/docchat/internal/auth"
	"github.com/jeranaias/docchat/internal/config"
	"github.com/jeranaias/docchat/internal/history"
	"github.com/jeranaias/docchat/internal/logging"
	"github.com/jeranaias/docchat/internal/notify"
	"github.com/jeranaias/docchat/internal/session"
	"github.com/jeranaias/docchat/internal/storage"
)

// authNamespace keeps credentials apart from conversation data.
const authNamespace = "auth"

// App holds the wired dependencies for one invocation.
type App struct {
	Config     *config.Config
	ConfigPath string
	Log        *zap.Logger

	KV      storage.KeyValue
	Auth    *auth.Store
	Client  *api.Client
	History *history.Store

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// NewApp loads configuration and opens storage for args.
func NewApp(args Args) (*App, error) {
	path := args.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	if args.APIURL != "" {
		cfg.API.BaseURL = args.APIURL
	}

	level := cfg.Log.Level
	if args.Verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Console:    args.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start logging: %w", err)
	}

	kv, err := storage.Open(cfg.Storage.Backend, cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	app := NewAppWith(cfg, kv, log)
	app.ConfigPath = path
	return app, nil
}

// NewAppWith wires an App around an existing store and logger.
func NewAppWith(cfg *config.Config, kv storage.KeyValue, log *zap.Logger) *App {
	log = logging.OrNop(log)

	authStore := auth.NewStore(storage.WithNamespace(kv, authNamespace), cfg.API.Token, log)

	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.RequestTimeout()),
		api.WithTokenSource(authStore),
		api.WithDocumentCacheTTL(cfg.DocumentCacheTTL()),
		api.WithLogger(log),
	)

	hist := history.NewStore(storage.WithNamespace(kv, cfg.Storage.Namespace),
		history.WithGreeting(cfg.UI.Greeting),
		history.WithLogger(log),
	)

	return &App{
		Config:  cfg,
		Log:     log,
		KV:      kv,
		Auth:    authStore,
		Client:  client,
		History: hist,
		In:      os.Stdin,
		Out:     os.Stdout,
		ErrOut:  os.Stderr,
	}
}

// NewController builds a session controller on the app's stores.
func (a *App) NewController(n notify.Notifier, onAuthExpired func()) *session.Controller {
	return session.New(session.Deps{
		Store:         a.History,
		Chat:          a.Client,
		Documents:     a.Client,
		Notifier:      n,
		Auth:          a.Auth,
		Logger:        a.Log,
		OnAuthExpired: onAuthExpired,
	})
}

// RequireAuth returns ErrNotSignedIn when there is no token.
func (a *App) RequireAuth() error {
	if !a.Auth.IsAuthenticated() {
		return ErrNotSignedIn
	}
	return nil
}

// SignIn exchanges credentials for a token and saves it.
func (a *App) SignIn(ctx context.Context, email, password string) error {
	res := a.Client.SignIn(ctx, api.Credentials{Email: email, Password: password})
	if !res.OK() {
		if res.AuthExpired {
			return errors.New("sign-in failed: incorrect email or password")
		}
		return fmt.Errorf("sign-in failed: %w", res.Err)
	}
	if err := a.saveAuth(res.Value); err != nil {
		return err
	}
	a.Log.Info("signed in", zap.String("user_id", res.Value.User.ID))
	return nil
}

// SignUp creates an account and saves its credentials.
func (a *App) SignUp(ctx context.Context, data api.SignupData) error {
	res := a.Client.SignUp(ctx, data)
	if !res.OK() {
		return fmt.Errorf("sign-up failed: %w", res.Err)
	}
	if err := a.saveAuth(res.Value); err != nil {
		return err
	}
	a.Log.Info("account created", zap.String("user_id", res.Value.User.ID))
	return nil
}

func (a *App) saveAuth(resp api.AuthResponse) error {
	if err := a.Auth.SetAuth(resp.AccessToken, resp.User); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	a.Client.InvalidateDocuments()
	return nil
}

// terminalIn returns the input file when it is an interactive terminal.
func (a *App) terminalIn() *os.File {
	f, ok := a.In.(*os.File)
	if ok && term.IsTerminal(int(f.Fd())) {
		return f
	}
	return nil
}

// Close flushes the log and releases storage.
func (a *App) Close() error {
	_ = a.Log.Sync()
	return a.KV.Close()
}
