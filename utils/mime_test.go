package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var pngHead = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func TestGuessMimeFromURIByExtension(t *testing.T) {
	tt := []struct {
		uri  string
		want string
	}{
		{uri: "http://example.com/movie.mp4", want: "video/mp4"},
		{uri: "http://example.com/movie.mkv", want: "video/x-matroska"},
		{uri: "http://example.com/song.mp3", want: "audio/mpeg"},
		{uri: "http://example.com/MOVIE.MP4?token=abc", want: "video/mp4"},
	}

	for _, tc := range tt {
		if got := GuessMimeFromURI(tc.uri); got != tc.want {
			t.Errorf("GuessMimeFromURI(%q) = %q, want %q", tc.uri, got, tc.want)
		}
	}
}

func TestGuessMimeFromURIUsesContentTypeHeader(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/webm")
		_, _ = w.Write([]byte("stream-body"))
	}))
	defer s.Close()

	if got := GuessMimeFromURI(s.URL + "/stream"); got != "video/webm" {
		t.Fatalf("got %q, want %q", got, "video/webm")
	}
}

func TestGuessMimeFromURISniffsMagicBytes(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pngHead)
	}))
	defer s.Close()

	if got := GuessMimeFromURI(s.URL + "/art"); got != "image/png" {
		t.Fatalf("got %q, want %q", got, "image/png")
	}
}

func TestGuessMimeFromURIKeepsHeaderWhenSniffFails(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("just some words"))
	}))
	defer s.Close()

	if got := GuessMimeFromURI(s.URL + "/notes"); got != "text/plain" {
		t.Fatalf("got %q, want %q", got, "text/plain")
	}
}

func TestGuessMimeFromURIFallsBackToDefault(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer s.Close()

	if got := GuessMimeFromURI(s.URL + "/gone"); got != DefaultMimeType {
		t.Fatalf("got %q, want %q", got, DefaultMimeType)
	}

	if got := GuessMimeFromURI("not a url"); got != DefaultMimeType {
		t.Fatalf("got %q, want %q", got, DefaultMimeType)
	}
}

func TestGetMimeDetailsFromBytes(t *testing.T) {
	got, err := GetMimeDetailsFromBytes(pngHead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "image/png" {
		t.Fatalf("got %q, want %q", got, "image/png")
	}
}
