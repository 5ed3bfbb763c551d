package castadapter

import (
	"testing"

	"go2tv.app/castpilot/castprotocol"
)

func mediaWithImage(title, imageURL string) *castprotocol.MediaStatus {
	return &castprotocol.MediaStatus{
		Metadata: castprotocol.MediaMetadata{
			Title:  title,
			Images: []castprotocol.MediaImage{{URL: imageURL}},
		},
	}
}

func TestArtURLPrefersMediaImageOverAppIcon(t *testing.T) {
	dev := &fakeDevice{appID: "APP1"}
	dev.cast = &castprotocol.CastStatus{
		App: &castprotocol.AppStatus{AppID: "APP1", IconURL: "http://device/app.png"},
	}
	dev.media = mediaWithImage("Song", "http://device/art.png")
	a := New(dev, Options{})

	if got, want := a.ArtURL(), "http://device/art.png"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestArtURLFallsBackToAppIcon(t *testing.T) {
	dev := &fakeDevice{appID: "APP1"}
	dev.cast = &castprotocol.CastStatus{
		App: &castprotocol.AppStatus{AppID: "APP1", IconURL: "http://device/app.png"},
	}
	a := New(dev, Options{})

	if got, want := a.ArtURL(), "http://device/app.png"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestArtURLServesCacheWhileAppAndTitleMatch(t *testing.T) {
	dev := &fakeDevice{appID: "APP1"}
	dev.media = mediaWithImage("Song", "http://device/art.png")
	a := New(dev, Options{DarkIconPath: "/icons/dark.svg"})

	if got, want := a.ArtURL(), "http://device/art.png"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// The device stops reporting artwork but keeps playing the same title.
	dev.media = &castprotocol.MediaStatus{
		Metadata: castprotocol.MediaMetadata{Title: "Song"},
	}

	if got, want := a.ArtURL(), "http://device/art.png"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestArtURLCacheRejectsApplicationChange(t *testing.T) {
	dev := &fakeDevice{appID: "APP1"}
	dev.media = mediaWithImage("Song", "http://device/art.png")
	a := New(dev, Options{DarkIconPath: "/icons/dark.svg"})

	if got, want := a.ArtURL(), "http://device/art.png"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	dev.appID = "APP2"
	dev.media = &castprotocol.MediaStatus{
		Metadata: castprotocol.MediaMetadata{Title: "Song"},
	}

	if got, want := a.ArtURL(), "/icons/dark.svg"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestArtURLCacheRejectsTitleChange(t *testing.T) {
	dev := &fakeDevice{appID: "APP1"}
	dev.media = mediaWithImage("Song", "http://device/art.png")
	a := New(dev, Options{DarkIconPath: "/icons/dark.svg"})

	a.ArtURL()

	dev.media = &castprotocol.MediaStatus{
		Metadata: castprotocol.MediaMetadata{Title: "Another Song"},
	}

	if got, want := a.ArtURL(), "/icons/dark.svg"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestArtURLEmptyImageURLDropsCache(t *testing.T) {
	dev := &fakeDevice{appID: "APP1"}
	dev.media = mediaWithImage("Song", "http://device/art.png")
	a := New(dev, Options{DarkIconPath: "/icons/dark.svg"})

	a.ArtURL()

	dev.media = mediaWithImage("Song", "")
	if got, want := a.ArtURL(), "/icons/dark.svg"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// Same title again without artwork. The cache entry is gone.
	dev.media = &castprotocol.MediaStatus{
		Metadata: castprotocol.MediaMetadata{Title: "Song"},
	}
	if got, want := a.ArtURL(), "/icons/dark.svg"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestArtURLDefaultIconFollowsPreference(t *testing.T) {
	a := New(&fakeDevice{}, Options{
		LightIcon:     true,
		LightIconPath: "/icons/light.svg",
		DarkIconPath:  "/icons/dark.svg",
	})

	if got, want := a.ArtURL(), "/icons/light.svg"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	a.SetLightIcon(false)

	if got, want := a.ArtURL(), "/icons/dark.svg"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
