// Package mockstorage provides a testify-based mock implementation
// of the internal storage interfaces used by the service and router
// packages. It is used for unit testing error paths by simulating
// storage behavior.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/musicbox/internal/music"
	"github.com/patric-chuzhbe/musicbox/internal/user"
)

// StorageMock is a testify mock that implements the full storage contract.
//
// Use it in service and router tests to simulate database behavior.
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks user creation and returns a generated ID.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, tx *sql.Tx) (int64, error) {
	args := m.Called(ctx, usr, tx)
	return args.Get(0).(int64), args.Error(1)
}

// FindUserByUsername mocks looking up a user by username.
func (m *StorageMock) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	args := m.Called(ctx, username)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// GetSongs mocks listing the catalog.
func (m *StorageMock) GetSongs(ctx context.Context) ([]music.Song, error) {
	args := m.Called(ctx)
	songs, _ := args.Get(0).([]music.Song)
	return songs, args.Error(1)
}

// InsertSongIfAbsent mocks the idempotent seed insert.
func (m *StorageMock) InsertSongIfAbsent(ctx context.Context, song music.Song) error {
	args := m.Called(ctx, song)
	return args.Error(0)
}

// DeleteSong mocks deleting a catalog row.
func (m *StorageMock) DeleteSong(ctx context.Context, songID int64) error {
	args := m.Called(ctx, songID)
	return args.Error(0)
}

// CreatePlaylist mocks playlist creation.
func (m *StorageMock) CreatePlaylist(ctx context.Context, name string, ownerID int64) (int64, error) {
	args := m.Called(ctx, name, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// GetUserPlaylists mocks listing a user's playlists.
func (m *StorageMock) GetUserPlaylists(ctx context.Context, userID int64) ([]music.Playlist, error) {
	args := m.Called(ctx, userID)
	playlists, _ := args.Get(0).([]music.Playlist)
	return playlists, args.Error(1)
}

// GetPlaylistSongs mocks listing a playlist's member songs.
func (m *StorageMock) GetPlaylistSongs(ctx context.Context, playlistID int64) ([]music.Song, error) {
	args := m.Called(ctx, playlistID)
	songs, _ := args.Get(0).([]music.Song)
	return songs, args.Error(1)
}

// IsPlaylistOwnedBy mocks the ownership check.
func (m *StorageMock) IsPlaylistOwnedBy(ctx context.Context, playlistID, userID int64, tx *sql.Tx) (bool, error) {
	args := m.Called(ctx, playlistID, userID, tx)
	return args.Bool(0), args.Error(1)
}

// AddPlaylistSong mocks inserting a playlist membership row.
func (m *StorageMock) AddPlaylistSong(ctx context.Context, playlistID, songID int64, tx *sql.Tx) error {
	args := m.Called(ctx, playlistID, songID, tx)
	return args.Error(0)
}

// AddFavorite mocks inserting a favorites row.
func (m *StorageMock) AddFavorite(ctx context.Context, userID, songID int64) (int64, error) {
	args := m.Called(ctx, userID, songID)
	return args.Get(0).(int64), args.Error(1)
}

// GetUserFavorites mocks listing a user's favorited songs.
func (m *StorageMock) GetUserFavorites(ctx context.Context, userID int64) ([]music.Song, error) {
	args := m.Called(ctx, userID)
	songs, _ := args.Get(0).([]music.Song)
	return songs, args.Error(1)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
