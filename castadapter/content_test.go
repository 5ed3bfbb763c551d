package castadapter

import (
	"errors"
	"testing"
)

func TestVideoID(t *testing.T) {
	tt := []struct {
		name string
		uri  string
		want string
	}{
		{
			name: "long form",
			uri:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "long form without subdomain",
			uri:  "https://youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "long form mixed case host",
			uri:  "https://WWW.YouTube.COM/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "short form",
			uri:  "https://youtu.be/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "other host",
			uri:  "https://example.com/watch?v=dQw4w9WgXcQ",
			want: "",
		},
		{
			name: "not a url",
			uri:  "just some text",
			want: "",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VideoID(tc.uri)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestVideoIDMalformedWatchURL(t *testing.T) {
	tt := []struct {
		name string
		uri  string
	}{
		{
			name: "missing id",
			uri:  "https://youtube.com/watch",
		},
		{
			name: "blank id",
			uri:  "https://youtube.com/watch?v=",
		},
		{
			name: "several ids",
			uri:  "https://youtube.com/watch?v=one&v=two",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VideoID(tc.uri)
			if !errors.Is(err, ErrBadWatchURL) {
				t.Fatalf("got error %v, want ErrBadWatchURL", err)
			}
			if got != "" {
				t.Fatalf("got id %q, want empty", got)
			}
		})
	}
}

func TestIsVideoServiceURL(t *testing.T) {
	tt := []struct {
		uri  string
		want bool
	}{
		{uri: "https://www.youtube.com/watch?v=x", want: true},
		{uri: "https://music.youtube.com/watch?v=x", want: true},
		{uri: "https://YOUTU.BE/x", want: true},
		{uri: "https://example.com/video", want: false},
		{uri: "https://notyoutube.company/watch", want: false},
		{uri: "", want: false},
	}

	for _, tc := range tt {
		if got := IsVideoServiceURL(tc.uri); got != tc.want {
			t.Errorf("IsVideoServiceURL(%q) = %v, want %v", tc.uri, got, tc.want)
		}
	}
}

func TestWatchURL(t *testing.T) {
	if got, want := WatchURL("abc123"), "https://youtube.com/watch?v=abc123"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := WatchURL(""); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
