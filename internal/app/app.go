// Package app initializes and runs the music library service.
// It configures logging, storage, authentication, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/musicbox/internal/auth"
	"github.com/patric-chuzhbe/musicbox/internal/config"
	"github.com/patric-chuzhbe/musicbox/internal/db/memorystorage"
	"github.com/patric-chuzhbe/musicbox/internal/db/postgresdb"
	"github.com/patric-chuzhbe/musicbox/internal/db/sqlitedb"
	"github.com/patric-chuzhbe/musicbox/internal/logger"
	"github.com/patric-chuzhbe/musicbox/internal/models"
	"github.com/patric-chuzhbe/musicbox/internal/music"
	"github.com/patric-chuzhbe/musicbox/internal/router"
	"github.com/patric-chuzhbe/musicbox/internal/service"
	"github.com/patric-chuzhbe/musicbox/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error)
	FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error)
}

type catalogKeeper interface {
	GetSongs(ctx context.Context) ([]music.Song, error)
	InsertSongIfAbsent(ctx context.Context, song music.Song) error
	DeleteSong(ctx context.Context, songID int64) error
}

type playlistKeeper interface {
	CreatePlaylist(ctx context.Context, name string, ownerID int64) (int64, error)
	GetUserPlaylists(ctx context.Context, userID int64) ([]music.Playlist, error)
	GetPlaylistSongs(ctx context.Context, playlistID int64) ([]music.Song, error)
	IsPlaylistOwnedBy(ctx context.Context, playlistID, userID int64, transaction *sql.Tx) (bool, error)
	AddPlaylistSong(ctx context.Context, playlistID, songID int64, transaction *sql.Tx) error
}

type favoritesKeeper interface {
	AddFavorite(ctx context.Context, userID, songID int64) (int64, error)
	GetUserFavorites(ctx context.Context, userID int64) ([]music.Song, error)
}

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	catalogKeeper
	playlistKeeper
	favoritesKeeper
	transactioner
	pinger
	Close() error
}

// App encapsulates the configuration, storage backend, and HTTP handler
// needed to run the music library service.
type App struct {
	cfg         *config.Config
	db          storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - seeding the song catalog
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	svc := service.New(app.db)

	if err := svc.SeedCatalog(context.Background()); err != nil {
		return nil, fmt.Errorf("cannot seed the song catalog: %w", err)
	}

	app.httpHandler = router.New(
		svc,
		auth.New(app.cfg.TokenSigningKey, app.cfg.TokenTTL),
		app.cfg.StaticDir,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeSQLite
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeSQLite:
		return sqlitedb.New(context.Background(), cfg.DBFileName)
	}

	return memorystorage.New()
}
