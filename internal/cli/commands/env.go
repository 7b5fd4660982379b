package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/memberdesk/memberdesk/internal/auth"
	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/config"
	"github.com/memberdesk/memberdesk/internal/logger"
	"github.com/memberdesk/memberdesk/internal/models"
	"github.com/memberdesk/memberdesk/internal/storage"
)

// Env is the wiring shared by every command
type Env struct {
	Config    *config.Config
	Out       io.Writer
	KV        storage.KV
	API       *client.Client
	Session   *auth.Store
	Validator *validator.Validate
	Logger    zerolog.Logger

	// Interactive reports whether prompts may be shown
	Interactive bool
}

// EnvFactory builds the Env for one command run
type EnvFactory func(cmd *cobra.Command) (*Env, error)

// NewEnv wires the API client and session store around kv
func NewEnv(cfg *config.Config, kv storage.KV, out io.Writer, zlog zerolog.Logger) *Env {
	tokens := storage.NewTokenStore(kv)
	api := client.New(cfg.API.BaseURL, tokens,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(zlog),
	)
	session := auth.New(api, tokens, auth.NewKVPersister(kv), auth.WithLogger(zlog))
	api.OnUnauthorized(session.Invalidate)

	return &Env{
		Config:    cfg,
		Out:       out,
		KV:        kv,
		API:       api,
		Session:   session,
		Validator: models.NewValidator(),
		Logger:    zlog,
	}
}

// DefaultEnv loads configuration and opens the CLI's storage. The OS keyring is
// used unless STORAGE_DRIVER says otherwise.
func DefaultEnv(cmd *cobra.Command) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// diagnostics stay on stderr so table output can be piped
	zlog := logger.New(os.Stderr, cfg.Logging.Level, "console")

	driver := cfg.StorageDriver(config.DriverKeyring)
	kv, err := storage.Open(storage.Options{
		Driver:      driver,
		DatabaseURL: cfg.Storage.DatabaseURL,
		FilePath:    cfg.Storage.FilePath,
		Passphrase:  cfg.Storage.Key,
		Scope:       cfg.API.BaseURL,
		Logger:      zlog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", driver, err)
	}

	env := NewEnv(cfg, kv, cmd.OutOrStdout(), zlog)
	env.Interactive = isTerminal(os.Stdin)
	return env, nil
}

// Close releases the storage backend
func (e *Env) Close() error {
	return e.KV.Close()
}

// withEnv runs fn with a freshly built Env and closes it afterwards
func withEnv(factory EnvFactory, cmd *cobra.Command, fn func(env *Env) error) error {
	env, err := factory(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(); cerr != nil {
			env.Logger.Warn().Err(cerr).Msg("Failed to close storage")
		}
	}()
	return fn(env)
}

// explain turns API failures into something actionable on a terminal
func explain(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, client.ErrAuth) {
		return fmt.Errorf("%s\nRun 'memberdesk login' to sign in again", client.Message(err))
	}
	if fields := client.FieldErrors(err); len(fields) > 0 {
		return fmt.Errorf("%s %s", client.Message(err), joinFieldErrors(fields))
	}
	return errors.New(client.Message(err))
}

func joinFieldErrors(fields map[string][]string) string {
	var out string
	for _, msgs := range fields {
		for _, m := range msgs {
			if out != "" {
				out += " "
			}
			out += m
		}
	}
	return out
}
