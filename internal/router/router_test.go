package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/musicbox/internal/auth"
	"github.com/patric-chuzhbe/musicbox/internal/db/memorystorage"
	"github.com/patric-chuzhbe/musicbox/internal/db/postgresdb"
	"github.com/patric-chuzhbe/musicbox/internal/logger"
	"github.com/patric-chuzhbe/musicbox/internal/mockstorage"
	"github.com/patric-chuzhbe/musicbox/internal/models"
	"github.com/patric-chuzhbe/musicbox/internal/music"
	"github.com/patric-chuzhbe/musicbox/internal/service"
	"github.com/patric-chuzhbe/musicbox/internal/user"
)

const (
	databaseDSN     = "" // host=localhost user=musicbox password=x7lKzhrpL8E9LsZ4rQfXnk3pJutOQV dbname=musicbox sslmode=disable
	migrationsDir   = `../../cmd/musicbox/migrations`
	testSigningKey  = "test-signing-key"
	testTokenTTL    = 2 * time.Hour
	connTimeout     = 10 * time.Second
	testStaticDir   = "testdata"
	defaultUsername = "alice"
	defaultPassword = "correct horse"
)

type testStorage interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error)
	FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error)
	GetSongs(ctx context.Context) ([]music.Song, error)
	InsertSongIfAbsent(ctx context.Context, song music.Song) error
	DeleteSong(ctx context.Context, songID int64) error
	CreatePlaylist(ctx context.Context, name string, ownerID int64) (int64, error)
	GetUserPlaylists(ctx context.Context, userID int64) ([]music.Playlist, error)
	GetPlaylistSongs(ctx context.Context, playlistID int64) ([]music.Song, error)
	IsPlaylistOwnedBy(ctx context.Context, playlistID, userID int64, transaction *sql.Tx) (bool, error)
	AddPlaylistSong(ctx context.Context, playlistID, songID int64, transaction *sql.Tx) error
	AddFavorite(ctx context.Context, userID, songID int64) (int64, error)
	GetUserFavorites(ctx context.Context, userID int64) ([]music.Song, error)
	BeginTransaction() (*sql.Tx, error)
	RollbackTransaction(transaction *sql.Tx) error
	CommitTransaction(transaction *sql.Tx) error
	Ping(ctx context.Context) error
	Close() error
}

type initOption func(*initOptions)

type initOptions struct {
	mockStorage *mockstorage.StorageMock
}

func withMockStorage(db *mockstorage.StorageMock) initOption {
	return func(options *initOptions) {
		options.mockStorage = db
	}
}

type testEnv struct {
	server *httptest.Server
	db     testStorage
	auth   *auth.Auth
}

func setupTestRouter(t *testing.T, optionsProto ...initOption) *testEnv {
	t.Helper()

	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	var db testStorage
	var err error
	switch {
	case options.mockStorage != nil:
		db = options.mockStorage
	case databaseDSN != "":
		db, err = postgresdb.New(
			context.Background(),
			databaseDSN,
			connTimeout,
			migrationsDir,
			postgresdb.WithDBPreReset(true),
		)
	default:
		db, err = memorystorage.New()
	}
	require.NoError(t, err)

	svc := service.New(db)
	if options.mockStorage == nil {
		require.NoError(t, svc.SeedCatalog(context.Background()))
		t.Cleanup(func() { _ = db.Close() })
	}

	theAuth := auth.New(testSigningKey, testTokenTTL)

	require.NoError(t, logger.Init("debug"))

	server := httptest.NewServer(New(svc, theAuth, testStaticDir))
	t.Cleanup(server.Close)

	return &testEnv{server: server, db: db, auth: theAuth}
}

// signupAndLogin registers a fresh user through the API and returns its token
// and ID.
func (e *testEnv) signupAndLogin(t *testing.T, username, password string) (string, int64) {
	t.Helper()

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.SignupRequest{Username: username, Password: password}).
		Post(e.server.URL + "/signup")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var loginResponse models.LoginResponse
	resp, err = resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Username: username, Password: password}).
		SetResult(&loginResponse).
		Post(e.server.URL + "/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.NotEmpty(t, loginResponse.Token)

	return loginResponse.Token, loginResponse.UserID
}

// adminToken mints a token for an admin account created directly in storage.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	passwordHash, err := auth.HashPassword(defaultPassword)
	require.NoError(t, err)

	adminID, err := e.db.CreateUser(context.Background(), &user.User{
		Username:     "admin",
		PasswordHash: passwordHash,
		IsAdmin:      true,
	}, nil)
	require.NoError(t, err)

	token, err := e.auth.BuildToken(auth.Identity{UserID: adminID, IsAdmin: true})
	require.NoError(t, err)

	return token
}

func TestPostSignup(t *testing.T) {
	env := setupTestRouter(t)

	testCases := []struct {
		name          string
		body          string
		expectedCode  int
		expectedError string
	}{
		{
			name:         "positive",
			body:         `{"username":"alice","password":"pw"}`,
			expectedCode: http.StatusOK,
		},
		{
			name:          "duplicate_username",
			body:          `{"username":"alice","password":"other"}`,
			expectedCode:  http.StatusBadRequest,
			expectedError: "Username already exists",
		},
		{
			name:          "missing_password",
			body:          `{"username":"bob"}`,
			expectedCode:  http.StatusBadRequest,
			expectedError: "Missing fields",
		},
		{
			name:          "empty_body",
			body:          ``,
			expectedCode:  http.StatusBadRequest,
			expectedError: "Missing fields",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var errorResponse models.ErrorResponse
			var signupResponse models.SignupResponse

			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				SetResult(&signupResponse).
				SetError(&errorResponse).
				Post(env.server.URL + "/signup")
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode(), "Response code didn't match expected value")

			if testCase.expectedError != "" {
				assert.Equal(t, testCase.expectedError, errorResponse.Error)
				return
			}
			assert.Equal(t, "User registered successfully", signupResponse.Message)
			assert.NotZero(t, signupResponse.UserID)
		})
	}
}

func TestPostLogin(t *testing.T) {
	env := setupTestRouter(t)
	env.signupAndLogin(t, defaultUsername, defaultPassword)

	testCases := []struct {
		name          string
		body          string
		expectedCode  int
		expectedError string
	}{
		{
			name:         "positive",
			body:         fmt.Sprintf(`{"username":%q,"password":%q}`, defaultUsername, defaultPassword),
			expectedCode: http.StatusOK,
		},
		{
			name:          "wrong_password",
			body:          fmt.Sprintf(`{"username":%q,"password":"nope"}`, defaultUsername),
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Invalid credentials",
		},
		{
			name:          "unknown_user",
			body:          `{"username":"ghost","password":"pw"}`,
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Invalid credentials",
		},
		{
			name:          "missing_fields",
			body:          `{"username":"alice"}`,
			expectedCode:  http.StatusBadRequest,
			expectedError: "Missing fields",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var errorResponse models.ErrorResponse
			var loginResponse models.LoginResponse

			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				SetResult(&loginResponse).
				SetError(&errorResponse).
				Post(env.server.URL + "/login")
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode(), "Response code didn't match expected value")

			if testCase.expectedError != "" {
				assert.Equal(t, testCase.expectedError, errorResponse.Error)
				return
			}
			assert.NotEmpty(t, loginResponse.Token)
			assert.False(t, loginResponse.IsAdmin)
		})
	}
}

func TestTokenMiddleware(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signupAndLogin(t, defaultUsername, defaultPassword)

	testCases := []struct {
		name          string
		authHeader    string
		expectedCode  int
		expectedError string
	}{
		{
			name:          "no_token",
			expectedCode:  http.StatusForbidden,
			expectedError: "Access denied. No token provided.",
		},
		{
			name:          "garbage_token",
			authHeader:    "Bearer not.a.jwt",
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Invalid token",
		},
		{
			name:         "valid_token",
			authHeader:   "Bearer " + token,
			expectedCode: http.StatusOK,
		},
		{
			name:         "valid_token_without_bearer_prefix",
			authHeader:   token,
			expectedCode: http.StatusOK,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var errorResponse models.ErrorResponse

			req := resty.New().R().SetError(&errorResponse)
			if testCase.authHeader != "" {
				req.SetHeader("Authorization", testCase.authHeader)
			}
			resp, err := req.Get(env.server.URL + "/playlists")
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode(), "Response code didn't match expected value")

			if testCase.expectedError != "" {
				assert.Equal(t, testCase.expectedError, errorResponse.Error)
			}
		})
	}
}

func TestPostLogout(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signupAndLogin(t, defaultUsername, defaultPassword)

	var messageResponse models.MessageResponse
	resp, err := resty.New().R().
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&messageResponse).
		Post(env.server.URL + "/logout")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Logout successful", messageResponse.Message)

	resp, err = resty.New().R().Post(env.server.URL + "/logout")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func TestGetSongsReturnsSeededCatalog(t *testing.T) {
	env := setupTestRouter(t)

	var songs []music.Song
	resp, err := resty.New().R().
		SetResult(&songs).
		Get(env.server.URL + "/songs")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, songs, 3)
	assert.Equal(t, "Espresso", songs[0].Title)
	assert.Equal(t, "Sabrina Carpenter", songs[0].Artist)
	assert.Equal(t, "/songs/Sabrina Carpenter - Espresso (Official Video).mp3", songs[0].FilePath)
}

func TestDeleteSongsSongid(t *testing.T) {
	env := setupTestRouter(t)
	userToken, _ := env.signupAndLogin(t, defaultUsername, defaultPassword)
	adminToken := env.adminToken(t)

	t.Run("non-admin is rejected", func(t *testing.T) {
		var errorResponse models.ErrorResponse
		resp, err := resty.New().R().
			SetHeader("Authorization", "Bearer "+userToken).
			SetError(&errorResponse).
			Delete(env.server.URL + "/songs/1")
		require.NoError(t, err)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
		assert.Equal(t, "Unauthorized access", errorResponse.Error)
	})

	t.Run("admin deletes a song", func(t *testing.T) {
		var messageResponse models.MessageResponse
		resp, err := resty.New().R().
			SetHeader("Authorization", "Bearer "+adminToken).
			SetResult(&messageResponse).
			Delete(env.server.URL + "/songs/1")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, "Song deleted successfully", messageResponse.Message)

		var songs []music.Song
		resp, err = resty.New().R().SetResult(&songs).Get(env.server.URL + "/songs")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Len(t, songs, 2)
	})

	t.Run("deleting a missing song yields 404", func(t *testing.T) {
		var errorResponse models.ErrorResponse
		resp, err := resty.New().R().
			SetHeader("Authorization", "Bearer "+adminToken).
			SetError(&errorResponse).
			Delete(env.server.URL + "/songs/1")
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode())
		assert.Equal(t, "Song not found", errorResponse.Error)
	})
}

func TestPlaylistFlow(t *testing.T) {
	env := setupTestRouter(t)
	aliceToken, aliceID := env.signupAndLogin(t, defaultUsername, defaultPassword)
	bobToken, _ := env.signupAndLogin(t, "bob", "pw2")

	var createResponse models.CreatePlaylistResponse
	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+aliceToken).
		SetBody(models.CreatePlaylistRequest{Name: "Morning"}).
		SetResult(&createResponse).
		Post(env.server.URL + "/playlists")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Playlist created successfully", createResponse.Message)
	require.NotZero(t, createResponse.PlaylistID)

	playlistURL := fmt.Sprintf("%s/playlists/%d/songs", env.server.URL, createResponse.PlaylistID)

	t.Run("empty playlist serializes with an empty songs array", func(t *testing.T) {
		resp, err := resty.New().R().
			SetHeader("Authorization", "Bearer "+aliceToken).
			Get(env.server.URL + "/playlists")
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Contains(t, string(resp.Body()), `"songs":[]`)
	})

	t.Run("owner adds a song", func(t *testing.T) {
		var messageResponse models.MessageResponse
		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+aliceToken).
			SetBody(models.AddPlaylistSongRequest{SongID: 1}).
			SetResult(&messageResponse).
			Post(playlistURL)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, "Song added to playlist successfully", messageResponse.Message)
	})

	t.Run("adding the same song twice yields 409", func(t *testing.T) {
		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+aliceToken).
			SetBody(models.AddPlaylistSongRequest{SongID: 1}).
			Post(playlistURL)
		require.NoError(t, err)

		assert.Equal(t, http.StatusConflict, resp.StatusCode())
	})

	t.Run("missing songId yields 400", func(t *testing.T) {
		var errorResponse models.ErrorResponse
		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+aliceToken).
			SetBody(`{}`).
			SetError(&errorResponse).
			Post(playlistURL)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.Equal(t, "Missing song ID", errorResponse.Error)
	})

	t.Run("non-owner cannot add songs", func(t *testing.T) {
		var errorResponse models.ErrorResponse
		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+bobToken).
			SetBody(models.AddPlaylistSongRequest{SongID: 2}).
			SetError(&errorResponse).
			Post(playlistURL)
		require.NoError(t, err)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
		assert.Equal(t, "Playlist not found or unauthorized", errorResponse.Error)
	})

	t.Run("missing playlist name yields 400", func(t *testing.T) {
		var errorResponse models.ErrorResponse
		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+aliceToken).
			SetBody(`{}`).
			SetError(&errorResponse).
			Post(env.server.URL + "/playlists")
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.Equal(t, "Missing playlist name", errorResponse.Error)
	})

	t.Run("each user sees only their playlists", func(t *testing.T) {
		var alicePlaylists []models.PlaylistResponse
		resp, err := resty.New().R().
			SetHeader("Authorization", "Bearer "+aliceToken).
			SetResult(&alicePlaylists).
			Get(env.server.URL + "/playlists")
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, resp.StatusCode())
		require.Len(t, alicePlaylists, 1)
		assert.Equal(t, aliceID, alicePlaylists[0].UserID)
		require.Len(t, alicePlaylists[0].Songs, 1)
		assert.Equal(t, int64(1), alicePlaylists[0].Songs[0].ID)

		var bobPlaylists []models.PlaylistResponse
		resp, err = resty.New().R().
			SetHeader("Authorization", "Bearer "+bobToken).
			SetResult(&bobPlaylists).
			Get(env.server.URL + "/playlists")
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Empty(t, bobPlaylists)
	})
}

func TestFavorites(t *testing.T) {
	env := setupTestRouter(t)
	token, _ := env.signupAndLogin(t, defaultUsername, defaultPassword)

	var addResponse models.AddFavoriteResponse
	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+token).
		SetBody(models.AddFavoriteRequest{SongID: 2}).
		SetResult(&addResponse).
		Post(env.server.URL + "/favorites")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Added to favorites", addResponse.Message)
	assert.NotZero(t, addResponse.FavoriteID)

	t.Run("duplicate favorite yields 409", func(t *testing.T) {
		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+token).
			SetBody(models.AddFavoriteRequest{SongID: 2}).
			Post(env.server.URL + "/favorites")
		require.NoError(t, err)

		assert.Equal(t, http.StatusConflict, resp.StatusCode())
	})

	t.Run("missing songId yields 400", func(t *testing.T) {
		var errorResponse models.ErrorResponse
		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+token).
			SetBody(`{}`).
			SetError(&errorResponse).
			Post(env.server.URL + "/favorites")
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.Equal(t, "Missing song ID", errorResponse.Error)
	})

	t.Run("listing returns the favorite songs", func(t *testing.T) {
		var favorites []music.Song
		resp, err := resty.New().R().
			SetHeader("Authorization", "Bearer "+token).
			SetResult(&favorites).
			Get(env.server.URL + "/favorites")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())
		require.Len(t, favorites, 1)
		assert.Equal(t, "Blank Space", favorites[0].Title)
	})
}

func TestGetSongsForGzip(t *testing.T) {
	env := setupTestRouter(t)

	request, err := http.NewRequest(http.MethodGet, env.server.URL+"/songs", nil)
	require.NoError(t, err)
	request.Header.Set("Accept-Encoding", "gzip")

	// The default transport would decompress transparently and hide the
	// Content-Encoding header; disable that to inspect the encoding.
	transport := &http.Transport{DisableCompression: true}
	resp, err := (&http.Client{Transport: transport}).Do(request)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	var songs []music.Song
	require.NoError(t, json.NewDecoder(zr).Decode(&songs))
	assert.Len(t, songs, 3)
}

func TestPostSignupForGzippedBody(t *testing.T) {
	env := setupTestRouter(t)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"username":"carol","password":"pw"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Content-Encoding", "gzip").
		SetBody(buf.Bytes()).
		Post(env.server.URL + "/signup")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.True(t, strings.Contains(string(resp.Body()), "User registered successfully"))
}

func TestStaticFiles(t *testing.T) {
	env := setupTestRouter(t)

	resp, err := resty.New().R().Get(env.server.URL + "/hello.txt")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "hello from the static dir\n", string(resp.Body()))
}

func TestGetPing(t *testing.T) {
	env := setupTestRouter(t)

	resp, err := resty.New().R().Get(env.server.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestStorageFailureYieldsInternalError(t *testing.T) {
	db := new(mockstorage.StorageMock)
	env := setupTestRouter(t, withMockStorage(db))

	db.On("GetSongs", mock.Anything).
		Return([]music.Song(nil), errors.New("db error"))

	var errorResponse models.ErrorResponse
	resp, err := resty.New().R().
		SetError(&errorResponse).
		Get(env.server.URL + "/songs")
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Equal(t, "Internal server error", errorResponse.Error)
}
