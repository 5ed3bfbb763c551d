package castadapter

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const (
	// The MPRIS namespace is reserved, so track paths live under the
	// product's own prefix.
	trackIDPrefix = "/com/castpilot/track/"

	defaultDiscNumber = 1
)

// Metadata is the track description desktop controllers render.
type Metadata struct {
	TrackID      string
	Length       int64
	ArtURL       string
	URL          string
	Title        string
	Artists      []string
	Album        string
	AlbumArtists []string
	DiscNumber   int
	TrackNumber  int
	Comments     []string
}

// TrackID derives a stable object path from a title. The device exposes
// no queue identifiers, so controllers detect track changes through the
// title digest instead.
func TrackID(title string) string {
	sum := md5.Sum([]byte(title))
	return trackIDPrefix + hex.EncodeToString(sum[:])
}

// Metadata assembles the track description for the current media.
func (a *Adapter) Metadata() Metadata {
	titles := a.Titles()

	var artists []string
	if titles.Artist != "" {
		artists = []string{titles.Artist}
	}

	var trackNumber int
	if status := a.dev.MediaStatus(); status != nil {
		trackNumber = status.Metadata.TrackNumber
	}

	return Metadata{
		TrackID:      TrackID(titles.Title),
		Length:       a.Duration(),
		ArtURL:       a.ArtURL(),
		URL:          a.currentURL(),
		Title:        titles.Title,
		Artists:      artists,
		Album:        titles.Album,
		AlbumArtists: artists,
		DiscNumber:   defaultDiscNumber,
		TrackNumber:  trackNumber,
		Comments:     []string{},
	}
}

// currentURL resolves the public URL of the current media. A bare video
// id reported while the video application runs expands to a shareable
// watch URL.
func (a *Adapter) currentURL() string {
	status := a.dev.MediaStatus()
	if status == nil || status.Media == nil {
		return ""
	}

	id := status.Media.ContentID
	if id == "" {
		id = status.Media.ContentURL
	}

	if a.isVideoID(id) {
		return WatchURL(id)
	}
	return id
}

func (a *Adapter) isVideoID(contentID string) bool {
	if contentID == "" || !a.dev.VideoAppActive() {
		return false
	}
	return !strings.HasPrefix(contentID, "http")
}
