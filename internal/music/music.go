// Package music defines the catalog entities shared by the storage
// backends, the service layer, and the HTTP API.
package music

// Song is a playable catalog entry. FilePath points at the media file
// under the public static directory and is not validated for existence.
type Song struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	FilePath string `json:"filePath"`
}

// Playlist is a named collection of songs owned by exactly one user.
type Playlist struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"userId"`
}
