package castadapter

import (
	"testing"
)

func stubMime(t *testing.T, contentType string) {
	t.Helper()
	oldGuess := guessMime
	guessMime = func(string) string { return contentType }
	t.Cleanup(func() { guessMime = oldGuess })
}

func TestOpenURILaunchesAndPlaysVideoServiceContent(t *testing.T) {
	dev := &fakeDevice{}
	a := New(dev, Options{})

	a.OpenURI("https://www.youtube.com/watch?v=dQw4w9WgXcQ")

	if len(dev.calls) != 1 || dev.calls[0] != "launch-video" {
		t.Fatalf("got calls %v, want [launch-video]", dev.calls)
	}
	if len(dev.playedIDs) != 1 || dev.playedIDs[0] != "dQw4w9WgXcQ" {
		t.Fatalf("got played ids %v, want [dQw4w9WgXcQ]", dev.playedIDs)
	}
	if len(dev.played) != 0 {
		t.Fatalf("got generic playback %v, want none", dev.played)
	}
}

func TestOpenURISkipsLaunchWhenVideoAppActive(t *testing.T) {
	dev := &fakeDevice{videoActive: true}
	a := New(dev, Options{})

	a.OpenURI("https://youtu.be/dQw4w9WgXcQ")

	if len(dev.calls) != 0 {
		t.Fatalf("got calls %v, want none", dev.calls)
	}
	if len(dev.playedIDs) != 1 || dev.playedIDs[0] != "dQw4w9WgXcQ" {
		t.Fatalf("got played ids %v, want [dQw4w9WgXcQ]", dev.playedIDs)
	}
}

func TestOpenURIPlaysGenericMediaWithGuessedMime(t *testing.T) {
	dev := &fakeDevice{}
	a := New(dev, Options{})

	a.OpenURI("http://example.com/movie.mp4")

	if len(dev.played) != 1 {
		t.Fatalf("got %d generic playbacks, want 1", len(dev.played))
	}
	got := dev.played[0]
	if got[0] != "http://example.com/movie.mp4" || got[1] != "video/mp4" {
		t.Fatalf("got %v, want [http://example.com/movie.mp4 video/mp4]", got)
	}
}

func TestOpenURIMalformedWatchURLFallsBackToGenericPlayback(t *testing.T) {
	stubMime(t, "application/octet-stream")

	dev := &fakeDevice{}
	a := New(dev, Options{})

	a.OpenURI("https://youtube.com/watch?v=one&v=two")

	if len(dev.playedIDs) != 0 || len(dev.queuedIDs) != 0 {
		t.Fatalf("got video calls %v %v, want none", dev.playedIDs, dev.queuedIDs)
	}
	if len(dev.played) != 1 {
		t.Fatalf("got %d generic playbacks, want 1", len(dev.played))
	}
}

func TestAddTrackQueuesVideo(t *testing.T) {
	dev := &fakeDevice{videoActive: true}
	a := New(dev, Options{})

	a.AddTrack("https://youtu.be/abc123", "", false)

	if len(dev.queuedIDs) != 1 || dev.queuedIDs[0] != "abc123" {
		t.Fatalf("got queued ids %v, want [abc123]", dev.queuedIDs)
	}
	if len(dev.playedIDs) != 0 {
		t.Fatalf("got played ids %v, want none", dev.playedIDs)
	}
}

func TestAddTrackQueuesAndPlaysWhenSetAsCurrent(t *testing.T) {
	dev := &fakeDevice{videoActive: true}
	a := New(dev, Options{})

	a.AddTrack("https://youtu.be/abc123", "", true)

	if len(dev.queuedIDs) != 1 || dev.queuedIDs[0] != "abc123" {
		t.Fatalf("got queued ids %v, want [abc123]", dev.queuedIDs)
	}
	if len(dev.playedIDs) != 1 || dev.playedIDs[0] != "abc123" {
		t.Fatalf("got played ids %v, want [abc123]", dev.playedIDs)
	}
}

func TestAddTrackFallsBackToOpenURIWhenSetAsCurrent(t *testing.T) {
	stubMime(t, "video/mp4")

	dev := &fakeDevice{}
	a := New(dev, Options{})

	a.AddTrack("http://example.com/movie.mp4", "", true)

	if len(dev.played) != 1 {
		t.Fatalf("got %d generic playbacks, want 1", len(dev.played))
	}
	if len(dev.queuedIDs) != 0 {
		t.Fatalf("got queued ids %v, want none", dev.queuedIDs)
	}
}

func TestAddTrackDropsUnqueueableURI(t *testing.T) {
	dev := &fakeDevice{}
	a := New(dev, Options{})

	a.AddTrack("http://example.com/movie.mp4", "", false)

	if len(dev.played) != 0 || len(dev.queuedIDs) != 0 || len(dev.playedIDs) != 0 {
		t.Fatal("got device activity, want none")
	}
}
