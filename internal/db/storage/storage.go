// Package storage declares the full storage contract implemented by the
// database backends, the sentinel errors they surface, and the seed set
// of catalog songs inserted at startup.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/patric-chuzhbe/musicbox/internal/music"
	"github.com/patric-chuzhbe/musicbox/internal/user"
)

// Sentinel errors shared by all backends. The service layer translates
// them into domain errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// Storage is the union of every operation a backend must support.
// Consumers declare narrower interfaces; this one exists for the storage
// switch in the app package and for test doubles.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error)

	FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error)

	GetSongs(ctx context.Context) ([]music.Song, error)

	InsertSongIfAbsent(ctx context.Context, song music.Song) error

	DeleteSong(ctx context.Context, songID int64) error

	CreatePlaylist(ctx context.Context, name string, ownerID int64) (int64, error)

	GetUserPlaylists(ctx context.Context, userID int64) ([]music.Playlist, error)

	GetPlaylistSongs(ctx context.Context, playlistID int64) ([]music.Song, error)

	IsPlaylistOwnedBy(
		ctx context.Context,
		playlistID,
		userID int64,
		transaction *sql.Tx,
	) (bool, error)

	AddPlaylistSong(
		ctx context.Context,
		playlistID,
		songID int64,
		transaction *sql.Tx,
	) error

	AddFavorite(ctx context.Context, userID, songID int64) (int64, error)

	GetUserFavorites(ctx context.Context, userID int64) ([]music.Song, error)

	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}

// SeedSongs is the fixed catalog inserted at startup when missing.
// Matching is done by title+artist so repeated restarts stay idempotent.
func SeedSongs() []music.Song {
	return []music.Song{
		{
			Title:    "Espresso",
			Artist:   "Sabrina Carpenter",
			FilePath: "/songs/Sabrina Carpenter - Espresso (Official Video).mp3",
		},
		{
			Title:    "Blank Space",
			Artist:   "Taylor Swift",
			FilePath: "/songs/Taylor Swift - Blank Space.mp3",
		},
		{
			Title:    "Baby",
			Artist:   "Justin Bieber",
			FilePath: "/songs/Justin Bieber - Baby (Lyrics) Feat. Ludacris.mp3",
		},
	}
}
