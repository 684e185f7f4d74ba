package models

import (
	"errors"

	"github.com/patric-chuzhbe/musicbox/internal/music"
)

type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SignupResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token   string `json:"token"`
	UserID  int64  `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

type CreatePlaylistRequest struct {
	Name string `json:"name" validate:"required"`
}

type CreatePlaylistResponse struct {
	Message    string `json:"message"`
	PlaylistID int64  `json:"playlistId"`
}

type AddPlaylistSongRequest struct {
	SongID int64 `json:"songId" validate:"required"`
}

type AddFavoriteRequest struct {
	SongID int64 `json:"songId" validate:"required"`
}

type AddFavoriteResponse struct {
	Message    string `json:"message"`
	FavoriteID int64  `json:"favoriteId"`
}

// PlaylistResponse is a playlist with its member songs joined in.
// Songs is always non-nil so an empty playlist serializes as [].
type PlaylistResponse struct {
	ID     int64        `json:"id"`
	Name   string       `json:"name"`
	UserID int64        `json:"userId"`
	Songs  []music.Song `json:"songs"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeMemory
)

// Domain errors returned by the service layer. The router maps each of
// them to an HTTP status and an ErrorResponse body.
var (
	ErrMissingFields         = errors.New("missing fields")
	ErrUsernameTaken         = errors.New("username already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrSongNotFound          = errors.New("song not found")
	ErrPlaylistNotOwned      = errors.New("playlist not found or unauthorized")
	ErrSongAlreadyInPlaylist = errors.New("song already in playlist")
	ErrAlreadyFavorite       = errors.New("song already in favorites")
)
