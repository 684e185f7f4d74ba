// Package router wires the HTTP API: request decoding, validation, and the
// mapping of domain errors to HTTP statuses.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/musicbox/internal/auth"
	"github.com/patric-chuzhbe/musicbox/internal/gzippedhttp"
	"github.com/patric-chuzhbe/musicbox/internal/logger"
	"github.com/patric-chuzhbe/musicbox/internal/models"
	"github.com/patric-chuzhbe/musicbox/internal/music"
	"github.com/patric-chuzhbe/musicbox/internal/user"
)

type musicService interface {
	RegisterUser(ctx context.Context, username, password string) (int64, error)
	AuthenticateUser(ctx context.Context, username, password string) (*user.User, error)
	Songs(ctx context.Context) ([]music.Song, error)
	DeleteSong(ctx context.Context, songID int64) error
	CreatePlaylist(ctx context.Context, name string, ownerID int64) (int64, error)
	UserPlaylists(ctx context.Context, userID int64) ([]models.PlaylistResponse, error)
	AddSongToPlaylist(ctx context.Context, playlistID, songID, requesterID int64) error
	AddFavorite(ctx context.Context, songID, userID int64) (int64, error)
	UserFavorites(ctx context.Context, userID int64) ([]music.Song, error)
	Ping(ctx context.Context) error
}

type authenticator interface {
	BuildToken(identity auth.Identity) (string, error)
	Authenticate(h http.Handler) http.Handler
	RequireAdmin(h http.Handler) http.Handler
}

// Router holds the handler dependencies.
type Router struct {
	service  musicService
	auth     authenticator
	validate *validator.Validate
}

func writeJSON(response http.ResponseWriter, statusCode int, payload any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("cannot encode response JSON body:", err)
	}
}

func writeError(response http.ResponseWriter, statusCode int, message string) {
	writeJSON(response, statusCode, models.ErrorResponse{Error: message})
}

// writeDomainError maps service sentinels to HTTP statuses. The error text of
// the sentinel is the response message.
func writeDomainError(response http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	for sentinel, code := range map[error]int{
		models.ErrUsernameTaken:         http.StatusBadRequest,
		models.ErrInvalidCredentials:    http.StatusUnauthorized,
		models.ErrSongNotFound:          http.StatusNotFound,
		models.ErrPlaylistNotOwned:      http.StatusForbidden,
		models.ErrSongAlreadyInPlaylist: http.StatusConflict,
		models.ErrAlreadyFavorite:       http.StatusConflict,
	} {
		if errors.Is(err, sentinel) {
			statusCode = code
			message = sentinel.Error()
			break
		}
	}

	if statusCode == http.StatusInternalServerError {
		logger.Log.Errorln("request failed:", err)
	}

	writeError(response, statusCode, message)
}

func (rt *Router) decodeJSONBody(request *http.Request, target any) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return err
	}
	return rt.validate.Struct(target)
}

func identityOrUnauthorized(response http.ResponseWriter, request *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, "Invalid token")
	}
	return identity, ok
}

// PostSignup registers a new account.
func (rt *Router) PostSignup(response http.ResponseWriter, request *http.Request) {
	var signupRequest models.SignupRequest
	if err := rt.decodeJSONBody(request, &signupRequest); err != nil {
		writeError(response, http.StatusBadRequest, "Missing fields")
		return
	}

	userID, err := rt.service.RegisterUser(request.Context(), signupRequest.Username, signupRequest.Password)
	if errors.Is(err, models.ErrMissingFields) {
		writeError(response, http.StatusBadRequest, "Missing fields")
		return
	}
	if errors.Is(err, models.ErrUsernameTaken) {
		writeError(response, http.StatusBadRequest, "Username already exists")
		return
	}
	if err != nil {
		writeDomainError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.SignupResponse{
		Message: "User registered successfully",
		UserID:  userID,
	})
}

// PostLogin verifies the credentials and issues a signed token.
func (rt *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	var loginRequest models.LoginRequest
	if err := rt.decodeJSONBody(request, &loginRequest); err != nil {
		writeError(response, http.StatusBadRequest, "Missing fields")
		return
	}

	usr, err := rt.service.AuthenticateUser(request.Context(), loginRequest.Username, loginRequest.Password)
	if errors.Is(err, models.ErrMissingFields) {
		writeError(response, http.StatusBadRequest, "Missing fields")
		return
	}
	if errors.Is(err, models.ErrInvalidCredentials) {
		writeError(response, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeDomainError(response, err)
		return
	}

	token, err := rt.auth.BuildToken(auth.Identity{UserID: usr.ID, IsAdmin: usr.IsAdmin})
	if err != nil {
		writeDomainError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.LoginResponse{
		Token:   token,
		UserID:  usr.ID,
		IsAdmin: usr.IsAdmin,
	})
}

// PostLogout confirms that the presented token was valid. Tokens are stateless
// and simply expire, so there is nothing to revoke server-side.
func (rt *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	writeJSON(response, http.StatusOK, models.MessageResponse{Message: "Logout successful"})
}

// GetSongs returns the whole catalog.
func (rt *Router) GetSongs(response http.ResponseWriter, request *http.Request) {
	songs, err := rt.service.Songs(request.Context())
	if err != nil {
		writeDomainError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, songs)
}

// DeleteSongsSongid removes a song from the catalog. Admin-only.
func (rt *Router) DeleteSongsSongid(response http.ResponseWriter, request *http.Request) {
	songID, err := strconv.ParseInt(chi.URLParam(request, "songID"), 10, 64)
	if err != nil {
		writeError(response, http.StatusNotFound, "Song not found")
		return
	}

	err = rt.service.DeleteSong(request.Context(), songID)
	if errors.Is(err, models.ErrSongNotFound) {
		writeError(response, http.StatusNotFound, "Song not found")
		return
	}
	if err != nil {
		writeDomainError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: "Song deleted successfully"})
}

// GetPlaylists lists the caller's playlists, each with its songs.
func (rt *Router) GetPlaylists(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityOrUnauthorized(response, request)
	if !ok {
		return
	}

	playlists, err := rt.service.UserPlaylists(request.Context(), identity.UserID)
	if err != nil {
		writeDomainError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, playlists)
}

// PostPlaylists creates an empty playlist owned by the caller.
func (rt *Router) PostPlaylists(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityOrUnauthorized(response, request)
	if !ok {
		return
	}

	var createRequest models.CreatePlaylistRequest
	if err := rt.decodeJSONBody(request, &createRequest); err != nil {
		writeError(response, http.StatusBadRequest, "Missing playlist name")
		return
	}

	playlistID, err := rt.service.CreatePlaylist(request.Context(), createRequest.Name, identity.UserID)
	if errors.Is(err, models.ErrMissingFields) {
		writeError(response, http.StatusBadRequest, "Missing playlist name")
		return
	}
	if err != nil {
		writeDomainError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.CreatePlaylistResponse{
		Message:    "Playlist created successfully",
		PlaylistID: playlistID,
	})
}

// PostPlaylistsSongs adds a song to one of the caller's playlists.
func (rt *Router) PostPlaylistsSongs(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityOrUnauthorized(response, request)
	if !ok {
		return
	}

	playlistID, err := strconv.ParseInt(chi.URLParam(request, "playlistID"), 10, 64)
	if err != nil {
		writeError(response, http.StatusForbidden, "Playlist not found or unauthorized")
		return
	}

	var addRequest models.AddPlaylistSongRequest
	if err := rt.decodeJSONBody(request, &addRequest); err != nil {
		writeError(response, http.StatusBadRequest, "Missing song ID")
		return
	}

	err = rt.service.AddSongToPlaylist(request.Context(), playlistID, addRequest.SongID, identity.UserID)
	if errors.Is(err, models.ErrMissingFields) {
		writeError(response, http.StatusBadRequest, "Missing song ID")
		return
	}
	if err != nil {
		writeDomainError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: "Song added to playlist successfully"})
}

// PostFavorites marks a song as one of the caller's favorites.
func (rt *Router) PostFavorites(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityOrUnauthorized(response, request)
	if !ok {
		return
	}

	var addRequest models.AddFavoriteRequest
	if err := rt.decodeJSONBody(request, &addRequest); err != nil {
		writeError(response, http.StatusBadRequest, "Missing song ID")
		return
	}

	favoriteID, err := rt.service.AddFavorite(request.Context(), addRequest.SongID, identity.UserID)
	if errors.Is(err, models.ErrMissingFields) {
		writeError(response, http.StatusBadRequest, "Missing song ID")
		return
	}
	if err != nil {
		writeDomainError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.AddFavoriteResponse{
		Message:    "Added to favorites",
		FavoriteID: favoriteID,
	})
}

// GetFavorites lists the caller's favorite songs.
func (rt *Router) GetFavorites(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityOrUnauthorized(response, request)
	if !ok {
		return
	}

	favorites, err := rt.service.UserFavorites(request.Context(), identity.UserID)
	if err != nil {
		writeDomainError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, favorites)
}

// GetPing checks the storage connection.
func (rt *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.service.Ping(request.Context()); err != nil {
		logger.Log.Errorln("storage ping failed:", err)
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// New assembles the chi mux with the full middleware chain and all routes.
// staticDir is served at the root for everything the API does not claim, the
// seeded song files included.
func New(
	svc musicService,
	theAuth authenticator,
	staticDir string,
) *chi.Mux {
	myRouter := Router{
		service:  svc,
		auth:     theAuth,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}),
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.Post(`/signup`, myRouter.PostSignup)
	router.Post(`/login`, myRouter.PostLogin)
	router.With(theAuth.Authenticate).Post(`/logout`, myRouter.PostLogout)

	router.Get(`/songs`, myRouter.GetSongs)
	router.With(theAuth.Authenticate, theAuth.RequireAdmin).
		Delete(`/songs/{songID}`, myRouter.DeleteSongsSongid)

	router.With(theAuth.Authenticate).Get(`/playlists`, myRouter.GetPlaylists)
	router.With(theAuth.Authenticate).Post(`/playlists`, myRouter.PostPlaylists)
	router.With(theAuth.Authenticate).Post(`/playlists/{playlistID}/songs`, myRouter.PostPlaylistsSongs)

	router.With(theAuth.Authenticate).Post(`/favorites`, myRouter.PostFavorites)
	router.With(theAuth.Authenticate).Get(`/favorites`, myRouter.GetFavorites)

	router.Get(`/ping`, myRouter.GetPing)

	router.Handle(`/*`, http.FileServer(http.Dir(staticDir)))

	return router
}
