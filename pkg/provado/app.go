package provado

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/provado/provado/pkg/store"
)

// App holds the running application: configuration, the store, and the
// logger every component derives from.
type App struct {
	config *Config
	store  *store.Store
	log    zerolog.Logger
	tokens *tokenService
}

// New connects to the database and assembles the application.
func New(ctx context.Context, cfg *Config) (*App, error) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if !cfg.Production() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	conn, err := store.Connect(ctx, cfg.ConnConfig())
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}

	return &App{
		config: cfg,
		store:  store.New(conn, store.WithLogger(logger.With().Str("component", "store").Logger())),
		log:    logger,
		tokens: newTokenService(cfg.JWTSecret),
	}, nil
}

// Close releases the application's resources.
func (a *App) Close(ctx context.Context) error {
	return a.store.Close(ctx)
}

// Migrate applies the whole migration catalog.
func (a *App) Migrate(ctx context.Context) error {
	a.log.Info().Msg("applying migrations")
	return a.store.RunAllMigrations(ctx)
}

// Main parses the arguments and runs the selected command. It is the whole
// entry point so tests can drive the binary without building it.
func Main(ctx context.Context, args []string) error {
	cmd, cfg, err := Parse(args)
	if err != nil {
		return err
	}

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	switch cmd := cmd.(type) {
	case *RunCommand:
		return app.Run(ctx, cmd)
	case *MigrateCommand:
		return app.Migrate(ctx)
	default:
		return fmt.Errorf("unhandled command: %s", cmd.Name())
	}
}
