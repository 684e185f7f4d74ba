// Package service implements the business operations of the music
// library: registration and login, catalog listing and admin deletion,
// playlists and favorites. It talks to a storage backend through small
// per-concern interfaces and maps storage errors to domain errors.
package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/musicbox/internal/auth"
	"github.com/patric-chuzhbe/musicbox/internal/db/storage"
	"github.com/patric-chuzhbe/musicbox/internal/models"
	"github.com/patric-chuzhbe/musicbox/internal/music"
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

type serviceStorage interface {
	userKeeper
	catalogKeeper
	playlistKeeper
	favoritesKeeper
	transactioner
	pinger
}

// Service carries the music library business logic over an injected
// storage backend.
type Service struct {
	db serviceStorage
}

func New(db serviceStorage) *Service {
	return &Service{db: db}
}

// RegisterUser creates an account with a bcrypt-hashed password and
// returns the new user's identifier.
func (s *Service) RegisterUser(ctx context.Context, username, password string) (int64, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return 0, models.ErrMissingFields
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return 0, err
	}

	userID, err := s.db.CreateUser(
		ctx,
		&user.User{Username: username, PasswordHash: passwordHash},
		nil,
	)
	if errors.Is(err, storage.ErrUniqueViolation) {
		return 0, models.ErrUsernameTaken
	}
	if err != nil {
		return 0, err
	}

	return userID, nil
}

// AuthenticateUser verifies the credentials and returns the matching
// user. An unknown username and a wrong password are indistinguishable
// to the caller.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*user.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, models.ErrMissingFields
	}

	usr, found, err := s.db.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !found || !auth.CheckPassword(usr.PasswordHash, password) {
		return nil, models.ErrInvalidCredentials
	}

	return usr, nil
}

// Songs returns the whole catalog in insertion order.
func (s *Service) Songs(ctx context.Context) ([]music.Song, error) {
	return s.db.GetSongs(ctx)
}

// DeleteSong removes a song from the catalog. The admin check happens in
// the router middleware; the service only reports unknown ids.
func (s *Service) DeleteSong(ctx context.Context, songID int64) error {
	err := s.db.DeleteSong(ctx, songID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.ErrSongNotFound
	}

	return err
}

// SeedCatalog inserts the fixed seed songs, matching by title+artist so
// repeated startups never duplicate them.
func (s *Service) SeedCatalog(ctx context.Context) error {
	for _, song := range storage.SeedSongs() {
		if err := s.db.InsertSongIfAbsent(ctx, song); err != nil {
			return err
		}
	}

	return nil
}

// CreatePlaylist creates a playlist owned by the given user. Duplicate
// names are allowed.
func (s *Service) CreatePlaylist(ctx context.Context, name string, ownerID int64) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, models.ErrMissingFields
	}

	return s.db.CreatePlaylist(ctx, name, ownerID)
}

// UserPlaylists returns every playlist owned by the user with its member
// songs joined in. A playlist with no songs yields an empty songs list.
func (s *Service) UserPlaylists(ctx context.Context, userID int64) ([]models.PlaylistResponse, error) {
	playlists, err := s.db.GetUserPlaylists(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := funk.Map(playlists, func(playlist music.Playlist) models.PlaylistResponse {
		return models.PlaylistResponse{
			ID:     playlist.ID,
			Name:   playlist.Name,
			UserID: playlist.UserID,
			Songs:  []music.Song{},
		}
	}).([]models.PlaylistResponse)

	for i := range result {
		songs, err := s.db.GetPlaylistSongs(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Songs = songs
	}

	return result, nil
}

// AddSongToPlaylist adds a song to a playlist owned by the requester.
// The ownership check and the insert run in one transaction so the
// playlist cannot change hands between them.
func (s *Service) AddSongToPlaylist(ctx context.Context, playlistID, songID, requesterID int64) error {
	if songID == 0 {
		return models.ErrMissingFields
	}

	tx, err := s.db.BeginTransaction()
	if err != nil {
		return err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	owned, err := s.db.IsPlaylistOwnedBy(ctx, playlistID, requesterID, tx)
	if err != nil {
		return err
	}
	if !owned {
		// Deliberately conflated so non-owners cannot probe for
		// playlist existence.
		return models.ErrPlaylistNotOwned
	}

	err = s.db.AddPlaylistSong(ctx, playlistID, songID, tx)
	if errors.Is(err, storage.ErrUniqueViolation) {
		return models.ErrSongAlreadyInPlaylist
	}
	if errors.Is(err, storage.ErrNotFound) {
		return models.ErrSongNotFound
	}
	if err != nil {
		return err
	}

	return s.db.CommitTransaction(tx)
}

// AddFavorite marks a song as a favorite of the user and returns the
// favorite row's identifier. Duplicate pairs are rejected.
func (s *Service) AddFavorite(ctx context.Context, songID, userID int64) (int64, error) {
	if songID == 0 {
		return 0, models.ErrMissingFields
	}

	favoriteID, err := s.db.AddFavorite(ctx, userID, songID)
	if errors.Is(err, storage.ErrUniqueViolation) {
		return 0, models.ErrAlreadyFavorite
	}
	if errors.Is(err, storage.ErrNotFound) {
		return 0, models.ErrSongNotFound
	}
	if err != nil {
		return 0, err
	}

	return favoriteID, nil
}

// UserFavorites returns every song the user has favorited.
func (s *Service) UserFavorites(ctx context.Context, userID int64) ([]music.Song, error) {
	return s.db.GetUserFavorites(ctx, userID)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
