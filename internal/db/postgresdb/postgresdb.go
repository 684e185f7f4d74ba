// Package postgresdb provides a PostgreSQL-backed implementation of the
// storage interface for users, the song catalog, playlists and favorites.
// Schema setup runs through goose migrations at construction time.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/musicbox/internal/db/storage"
	"github.com/patric-chuzhbe/musicbox/internal/music"
	"github.com/patric-chuzhbe/musicbox/internal/user"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// PostgresDB is a PostgreSQL-backed implementation of the music library
// storage. All persistence operations go through a single connection pool.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables resetting the database schema before migration.
// It is used by test setups needing a clean database.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, fmt.Errorf("resetting database before migrations: %w", err)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return result, nil
}

// CreateUser inserts a new user row and returns its identifier.
// A duplicate username surfaces as storage.ErrUniqueViolation.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error) {
	var database queryer = db.database
	if transaction != nil {
		database = transaction
	}

	row := database.QueryRowContext(
		ctx,
		`INSERT INTO users (username, password_hash, is_admin)
			VALUES ($1, $2, $3)
			RETURNING id`,
		usr.Username,
		usr.PasswordHash,
		usr.IsAdmin,
	)
	var userID int64
	if err := row.Scan(&userID); err != nil {
		return 0, translateConstraintError(err)
	}

	return userID, nil
}

// FindUserByUsername fetches a user by username. The second return value
// reports whether a matching row exists.
func (db *PostgresDB) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, username, password_hash, is_admin FROM users WHERE username = $1`,
		username,
	)
	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Username, &usr.PasswordHash, &usr.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return usr, true, nil
}

// GetSongs returns the whole catalog in insertion order.
func (db *PostgresDB) GetSongs(ctx context.Context) ([]music.Song, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT id, title, artist, file_path FROM songs ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSongs(rows)
}

// InsertSongIfAbsent inserts the song unless a row with the same title and
// artist already exists. It keeps the startup seeding idempotent.
func (db *PostgresDB) InsertSongIfAbsent(ctx context.Context, song music.Song) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO songs (title, artist, file_path)
			SELECT $1, $2, $3
			WHERE NOT EXISTS (
				SELECT 1 FROM songs WHERE title = $1 AND artist = $2
			)`,
		song.Title,
		song.Artist,
		song.FilePath,
	)

	return err
}

// DeleteSong removes a catalog row. Join rows in playlist_songs and
// favorites cascade at the schema level.
func (db *PostgresDB) DeleteSong(ctx context.Context, songID int64) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM songs WHERE id = $1`,
		songID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// CreatePlaylist inserts a playlist owned by the given user and returns
// its identifier. Duplicate names are allowed.
func (db *PostgresDB) CreatePlaylist(ctx context.Context, name string, ownerID int64) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO playlists (name, user_id) VALUES ($1, $2) RETURNING id`,
		name,
		ownerID,
	)
	var playlistID int64
	if err := row.Scan(&playlistID); err != nil {
		return 0, err
	}

	return playlistID, nil
}

// GetUserPlaylists returns every playlist owned by the user.
func (db *PostgresDB) GetUserPlaylists(ctx context.Context, userID int64) ([]music.Playlist, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT id, name, user_id FROM playlists WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []music.Playlist{}
	for rows.Next() {
		var playlist music.Playlist
		if err := rows.Scan(&playlist.ID, &playlist.Name, &playlist.UserID); err != nil {
			return nil, err
		}
		result = append(result, playlist)
	}

	return result, rows.Err()
}

// GetPlaylistSongs returns the member songs of a playlist. An empty
// playlist yields an empty slice.
func (db *PostgresDB) GetPlaylistSongs(ctx context.Context, playlistID int64) ([]music.Song, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT songs.id, songs.title, songs.artist, songs.file_path
			FROM playlist_songs
				JOIN songs ON playlist_songs.song_id = songs.id
			WHERE playlist_songs.playlist_id = $1
			ORDER BY songs.id`,
		playlistID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSongs(rows)
}

// IsPlaylistOwnedBy reports whether a playlist with the given id belongs
// to the given user.
func (db *PostgresDB) IsPlaylistOwnedBy(
	ctx context.Context,
	playlistID,
	userID int64,
	transaction *sql.Tx,
) (bool, error) {
	var database queryer = db.database
	if transaction != nil {
		database = transaction
	}

	row := database.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM playlists WHERE id = $1 AND user_id = $2`,
		playlistID,
		userID,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}

	return count > 0, nil
}

// AddPlaylistSong inserts a playlist membership row. A duplicate pair
// surfaces as storage.ErrUniqueViolation, an unknown song as
// storage.ErrNotFound.
func (db *PostgresDB) AddPlaylistSong(
	ctx context.Context,
	playlistID,
	songID int64,
	transaction *sql.Tx,
) error {
	var database executor = db.database
	if transaction != nil {
		database = transaction
	}

	_, err := database.ExecContext(
		ctx,
		`INSERT INTO playlist_songs (playlist_id, song_id) VALUES ($1, $2)`,
		playlistID,
		songID,
	)

	return translateConstraintError(err)
}

// AddFavorite inserts a favorites row and returns its identifier.
// A duplicate pair surfaces as storage.ErrUniqueViolation.
func (db *PostgresDB) AddFavorite(ctx context.Context, userID, songID int64) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO favorites (user_id, song_id) VALUES ($1, $2) RETURNING id`,
		userID,
		songID,
	)
	var favoriteID int64
	if err := row.Scan(&favoriteID); err != nil {
		return 0, translateConstraintError(err)
	}

	return favoriteID, nil
}

// GetUserFavorites returns every song the user has favorited.
func (db *PostgresDB) GetUserFavorites(ctx context.Context, userID int64) ([]music.Song, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT songs.id, songs.title, songs.artist, songs.file_path
			FROM favorites
				JOIN songs ON favorites.song_id = songs.id
			WHERE favorites.user_id = $1
			ORDER BY favorites.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSongs(rows)
}

// BeginTransaction starts a new SQL transaction and returns it.
// The caller is responsible for committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// CommitTransaction commits the given SQL transaction.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	return transaction.Rollback()
}

// Ping verifies connectivity with the database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf("dropping public schema tables: %w", err)
	}

	return nil
}

func scanSongs(rows *sql.Rows) ([]music.Song, error) {
	result := []music.Song{}
	for rows.Next() {
		var song music.Song
		if err := rows.Scan(&song.ID, &song.Title, &song.Artist, &song.FilePath); err != nil {
			return nil, err
		}
		result = append(result, song)
	}

	return result, rows.Err()
}

func translateConstraintError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return storage.ErrUniqueViolation
		case pgErrForeignKeyViolation:
			return storage.ErrNotFound
		}
	}

	return err
}
