// Package memorystorage implements the storage interface with plain maps
// and slices. It backs handler tests and database-less development runs.
package memorystorage

import (
	"context"
	"database/sql"
	"sync"

	"github.com/patric-chuzhbe/musicbox/internal/db/storage"
	"github.com/patric-chuzhbe/musicbox/internal/music"
	"github.com/patric-chuzhbe/musicbox/internal/user"
)

type favorite struct {
	id     int64
	userID int64
	songID int64
}

// MemoryStorage keeps the whole dataset in memory. All methods are safe
// for concurrent use. Transactions are no-ops: every operation is applied
// immediately, which is acceptable for tests and single-user dev runs.
type MemoryStorage struct {
	mu sync.Mutex

	users          []*user.User
	songs          []music.Song
	playlists      []music.Playlist
	playlistSongs  map[int64][]int64
	favorites      []favorite
	nextUserID     int64
	nextSongID     int64
	nextPlaylistID int64
	nextFavoriteID int64
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		playlistSongs:  map[int64][]int64{},
		nextUserID:     1,
		nextSongID:     1,
		nextPlaylistID: 1,
		nextFavoriteID: 1,
	}, nil
}

func (theStorage *MemoryStorage) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int64, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	for _, existing := range theStorage.users {
		if existing.Username == usr.Username {
			return 0, storage.ErrUniqueViolation
		}
	}

	stored := *usr
	stored.ID = theStorage.nextUserID
	theStorage.nextUserID++
	theStorage.users = append(theStorage.users, &stored)

	return stored.ID, nil
}

func (theStorage *MemoryStorage) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	for _, existing := range theStorage.users {
		if existing.Username == username {
			found := *existing
			return &found, true, nil
		}
	}

	return nil, false, nil
}

func (theStorage *MemoryStorage) GetSongs(ctx context.Context) ([]music.Song, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	result := make([]music.Song, len(theStorage.songs))
	copy(result, theStorage.songs)

	return result, nil
}

func (theStorage *MemoryStorage) InsertSongIfAbsent(ctx context.Context, song music.Song) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	for _, existing := range theStorage.songs {
		if existing.Title == song.Title && existing.Artist == song.Artist {
			return nil
		}
	}

	song.ID = theStorage.nextSongID
	theStorage.nextSongID++
	theStorage.songs = append(theStorage.songs, song)

	return nil
}

func (theStorage *MemoryStorage) DeleteSong(ctx context.Context, songID int64) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	index := -1
	for i, existing := range theStorage.songs {
		if existing.ID == songID {
			index = i
			break
		}
	}
	if index < 0 {
		return storage.ErrNotFound
	}

	theStorage.songs = append(theStorage.songs[:index], theStorage.songs[index+1:]...)

	// Cascade, mirroring the SQL backends' ON DELETE CASCADE.
	for playlistID, songIDs := range theStorage.playlistSongs {
		kept := songIDs[:0]
		for _, id := range songIDs {
			if id != songID {
				kept = append(kept, id)
			}
		}
		theStorage.playlistSongs[playlistID] = kept
	}
	keptFavorites := theStorage.favorites[:0]
	for _, fav := range theStorage.favorites {
		if fav.songID != songID {
			keptFavorites = append(keptFavorites, fav)
		}
	}
	theStorage.favorites = keptFavorites

	return nil
}

func (theStorage *MemoryStorage) CreatePlaylist(ctx context.Context, name string, ownerID int64) (int64, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	playlist := music.Playlist{
		ID:     theStorage.nextPlaylistID,
		Name:   name,
		UserID: ownerID,
	}
	theStorage.nextPlaylistID++
	theStorage.playlists = append(theStorage.playlists, playlist)

	return playlist.ID, nil
}

func (theStorage *MemoryStorage) GetUserPlaylists(ctx context.Context, userID int64) ([]music.Playlist, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	result := []music.Playlist{}
	for _, playlist := range theStorage.playlists {
		if playlist.UserID == userID {
			result = append(result, playlist)
		}
	}

	return result, nil
}

func (theStorage *MemoryStorage) GetPlaylistSongs(ctx context.Context, playlistID int64) ([]music.Song, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	result := []music.Song{}
	for _, songID := range theStorage.playlistSongs[playlistID] {
		for _, song := range theStorage.songs {
			if song.ID == songID {
				result = append(result, song)
				break
			}
		}
	}

	return result, nil
}

func (theStorage *MemoryStorage) IsPlaylistOwnedBy(
	ctx context.Context,
	playlistID,
	userID int64,
	transaction *sql.Tx,
) (bool, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	for _, playlist := range theStorage.playlists {
		if playlist.ID == playlistID && playlist.UserID == userID {
			return true, nil
		}
	}

	return false, nil
}

func (theStorage *MemoryStorage) AddPlaylistSong(
	ctx context.Context,
	playlistID,
	songID int64,
	transaction *sql.Tx,
) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	songExists := false
	for _, song := range theStorage.songs {
		if song.ID == songID {
			songExists = true
			break
		}
	}
	if !songExists {
		return storage.ErrNotFound
	}

	for _, existing := range theStorage.playlistSongs[playlistID] {
		if existing == songID {
			return storage.ErrUniqueViolation
		}
	}

	theStorage.playlistSongs[playlistID] = append(theStorage.playlistSongs[playlistID], songID)

	return nil
}

func (theStorage *MemoryStorage) AddFavorite(ctx context.Context, userID, songID int64) (int64, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	songExists := false
	for _, song := range theStorage.songs {
		if song.ID == songID {
			songExists = true
			break
		}
	}
	if !songExists {
		return 0, storage.ErrNotFound
	}

	for _, existing := range theStorage.favorites {
		if existing.userID == userID && existing.songID == songID {
			return 0, storage.ErrUniqueViolation
		}
	}

	fav := favorite{
		id:     theStorage.nextFavoriteID,
		userID: userID,
		songID: songID,
	}
	theStorage.nextFavoriteID++
	theStorage.favorites = append(theStorage.favorites, fav)

	return fav.id, nil
}

func (theStorage *MemoryStorage) GetUserFavorites(ctx context.Context, userID int64) ([]music.Song, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	result := []music.Song{}
	for _, fav := range theStorage.favorites {
		if fav.userID != userID {
			continue
		}
		for _, song := range theStorage.songs {
			if song.ID == fav.songID {
				result = append(result, song)
				break
			}
		}
	}

	return result, nil
}

// BeginTransaction is a no-op: the memory backend applies every write
// immediately under the storage mutex.
func (theStorage *MemoryStorage) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

func (theStorage *MemoryStorage) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (theStorage *MemoryStorage) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}
