// Package sqlitedb provides the default file-backed implementation of the
// storage interface using SQLite. The schema is created idempotently at
// construction time so repeated restarts are safe.
package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/patric-chuzhbe/musicbox/internal/db/storage"
	"github.com/patric-chuzhbe/musicbox/internal/music"
	"github.com/patric-chuzhbe/musicbox/internal/user"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		file_path TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_songs (
		playlist_id INTEGER NOT NULL REFERENCES playlists (id) ON DELETE CASCADE,
		song_id INTEGER NOT NULL REFERENCES songs (id) ON DELETE CASCADE,
		PRIMARY KEY (playlist_id, song_id)
	)`,
	`CREATE TABLE IF NOT EXISTS favorites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users (id),
		song_id INTEGER NOT NULL REFERENCES songs (id) ON DELETE CASCADE,
		UNIQUE (user_id, song_id)
	)`,
}

// SQLiteDB is a SQLite-backed implementation of the music library storage.
// The path may be a file name or ":memory:".
type SQLiteDB struct {
	database *sql.DB
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// New opens (creating if needed) the SQLite database at the given path
// and ensures the schema exists. Foreign keys are enabled through the DSN so
// that every pooled connection enforces them.
func New(ctx context.Context, path string) (*SQLiteDB, error) {
	database, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}

	for _, statement := range schemaStatements {
		if _, err := database.ExecContext(ctx, statement); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteDB{database: database}, nil
}

func (db *SQLiteDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error) {
	var database executor = db.database
	if transaction != nil {
		database = transaction
	}

	result, err := database.ExecContext(
		ctx,
		`INSERT INTO users (username, password_hash, is_admin) VALUES (?, ?, ?)`,
		usr.Username,
		usr.PasswordHash,
		usr.IsAdmin,
	)
	if err != nil {
		return 0, translateConstraintError(err)
	}

	return result.LastInsertId()
}

func (db *SQLiteDB) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, username, password_hash, is_admin FROM users WHERE username = ?`,
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

func (db *SQLiteDB) GetSongs(ctx context.Context) ([]music.Song, error) {
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

func (db *SQLiteDB) InsertSongIfAbsent(ctx context.Context, song music.Song) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO songs (title, artist, file_path)
			SELECT ?, ?, ?
			WHERE NOT EXISTS (
				SELECT 1 FROM songs WHERE title = ? AND artist = ?
			)`,
		song.Title,
		song.Artist,
		song.FilePath,
		song.Title,
		song.Artist,
	)

	return err
}

func (db *SQLiteDB) DeleteSong(ctx context.Context, songID int64) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM songs WHERE id = ?`,
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

func (db *SQLiteDB) CreatePlaylist(ctx context.Context, name string, ownerID int64) (int64, error) {
	result, err := db.database.ExecContext(
		ctx,
		`INSERT INTO playlists (name, user_id) VALUES (?, ?)`,
		name,
		ownerID,
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

func (db *SQLiteDB) GetUserPlaylists(ctx context.Context, userID int64) ([]music.Playlist, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT id, name, user_id FROM playlists WHERE user_id = ? ORDER BY id`,
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

func (db *SQLiteDB) GetPlaylistSongs(ctx context.Context, playlistID int64) ([]music.Song, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT songs.id, songs.title, songs.artist, songs.file_path
			FROM playlist_songs
				JOIN songs ON playlist_songs.song_id = songs.id
			WHERE playlist_songs.playlist_id = ?
			ORDER BY songs.id`,
		playlistID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSongs(rows)
}

func (db *SQLiteDB) IsPlaylistOwnedBy(
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
		`SELECT COUNT(*) FROM playlists WHERE id = ? AND user_id = ?`,
		playlistID,
		userID,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}

	return count > 0, nil
}

func (db *SQLiteDB) AddPlaylistSong(
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
		`INSERT INTO playlist_songs (playlist_id, song_id) VALUES (?, ?)`,
		playlistID,
		songID,
	)

	return translateConstraintError(err)
}

func (db *SQLiteDB) AddFavorite(ctx context.Context, userID, songID int64) (int64, error) {
	result, err := db.database.ExecContext(
		ctx,
		`INSERT INTO favorites (user_id, song_id) VALUES (?, ?)`,
		userID,
		songID,
	)
	if err != nil {
		return 0, translateConstraintError(err)
	}

	return result.LastInsertId()
}

func (db *SQLiteDB) GetUserFavorites(ctx context.Context, userID int64) ([]music.Song, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT songs.id, songs.title, songs.artist, songs.file_path
			FROM favorites
				JOIN songs ON favorites.song_id = songs.id
			WHERE favorites.user_id = ?
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
func (db *SQLiteDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// CommitTransaction commits the given SQL transaction.
func (db *SQLiteDB) CommitTransaction(transaction *sql.Tx) error {
	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
func (db *SQLiteDB) RollbackTransaction(transaction *sql.Tx) error {
	return transaction.Rollback()
}

// Ping verifies the database file is still reachable.
func (db *SQLiteDB) Ping(ctx context.Context) error {
	return db.database.PingContext(ctx)
}

// Close closes the underlying database handle.
func (db *SQLiteDB) Close() error {
	return db.database.Close()
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

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return storage.ErrUniqueViolation
		case sqlite3.ErrConstraintForeignKey:
			return storage.ErrNotFound
		}
	}

	return err
}
