package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/patric-chuzhbe/musicbox/internal/auth"
	"github.com/patric-chuzhbe/musicbox/internal/db/memorystorage"
	"github.com/patric-chuzhbe/musicbox/internal/logger"
	"github.com/patric-chuzhbe/musicbox/internal/music"
	"github.com/patric-chuzhbe/musicbox/internal/service"
)

func newExampleServer() *httptest.Server {
	db, err := memorystorage.New()
	if err != nil {
		panic(err)
	}

	svc := service.New(db)
	if err := svc.SeedCatalog(context.Background()); err != nil {
		panic(err)
	}

	if err := logger.Init("error"); err != nil {
		panic(err)
	}

	theAuth := auth.New("example-signing-key", 2*time.Hour)

	return httptest.NewServer(New(svc, theAuth, "testdata"))
}

func ExampleRouter_GetPing() {
	server := newExampleServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/ping")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 200
}

func ExampleRouter_GetSongs() {
	server := newExampleServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/songs")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var songs []music.Song
	if err := json.NewDecoder(resp.Body).Decode(&songs); err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	for _, song := range songs {
		fmt.Printf("%s - %s\n", song.Artist, song.Title)
	}

	// Output:
	// Status Code: 200
	// Sabrina Carpenter - Espresso
	// Taylor Swift - Blank Space
	// Justin Bieber - Baby
}
