package castadapter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"go2tv.app/castpilot/castprotocol"
)

type fakeDevice struct {
	name        string
	appID       string
	appName     string
	cast        *castprotocol.CastStatus
	media       *castprotocol.MediaStatus
	videoActive bool

	statusFns []func()

	calls       []string
	seeks       []int
	played      [][2]string
	queuedIDs   []string
	playedIDs   []string
	volumeUps   []decimal.Decimal
	volumeDowns []decimal.Decimal
	mutes       []bool
}

var _ Device = (*fakeDevice)(nil)

func (d *fakeDevice) DeviceName() string { return d.name }

func (d *fakeDevice) AppID() string { return d.appID }

func (d *fakeDevice) AppDisplayName() string { return d.appName }

func (d *fakeDevice) CastStatus() *castprotocol.CastStatus { return d.cast }

func (d *fakeDevice) MediaStatus() *castprotocol.MediaStatus { return d.media }

func (d *fakeDevice) OnStatusUpdate(fn func()) { d.statusFns = append(d.statusFns, fn) }

func (d *fakeDevice) RequestStatusRefresh() { d.calls = append(d.calls, "refresh") }

func (d *fakeDevice) Play() error { d.calls = append(d.calls, "play"); return nil }

func (d *fakeDevice) Pause() error { d.calls = append(d.calls, "pause"); return nil }

func (d *fakeDevice) StopMedia() error { d.calls = append(d.calls, "stop"); return nil }

func (d *fakeDevice) QueueNext() error { d.calls = append(d.calls, "next"); return nil }

func (d *fakeDevice) QueuePrev() error { d.calls = append(d.calls, "prev"); return nil }

func (d *fakeDevice) QuitApp() error { d.calls = append(d.calls, "quit"); return nil }

func (d *fakeDevice) Seek(seconds int) error {
	d.seeks = append(d.seeks, seconds)
	return nil
}

func (d *fakeDevice) PlayMedia(contentURL, contentType string) error {
	d.played = append(d.played, [2]string{contentURL, contentType})
	return nil
}

func (d *fakeDevice) VolumeUp(delta decimal.Decimal) error {
	d.volumeUps = append(d.volumeUps, delta)
	return nil
}

func (d *fakeDevice) VolumeDown(delta decimal.Decimal) error {
	d.volumeDowns = append(d.volumeDowns, delta)
	return nil
}

func (d *fakeDevice) SetVolumeMuted(muted bool) error {
	d.mutes = append(d.mutes, muted)
	return nil
}

func (d *fakeDevice) VideoAppActive() bool { return d.videoActive }

func (d *fakeDevice) LaunchVideoApp() error {
	d.calls = append(d.calls, "launch-video")
	d.videoActive = true
	return nil
}

func (d *fakeDevice) PlayVideo(videoID string) error {
	d.playedIDs = append(d.playedIDs, videoID)
	return nil
}

func (d *fakeDevice) QueueVideo(videoID string) error {
	d.queuedIDs = append(d.queuedIDs, videoID)
	return nil
}

func (d *fakeDevice) notify() {
	for _, fn := range d.statusFns {
		fn()
	}
}

func pausedStatus(seconds float64) *castprotocol.MediaStatus {
	return &castprotocol.MediaStatus{
		PlayerState: castprotocol.PlayerStatePaused,
		CurrentTime: seconds,
		ReceivedAt:  time.Now(),
	}
}

func TestNamePrefersDeviceName(t *testing.T) {
	a := New(&fakeDevice{name: "Living Room TV"}, Options{})

	if got := a.Name(); got != "Living Room TV" {
		t.Fatalf("got %q, want %q", got, "Living Room TV")
	}
}

func TestNameFallsBackToProductName(t *testing.T) {
	a := New(&fakeDevice{}, Options{})

	if got := a.Name(); got != ProductName {
		t.Fatalf("got %q, want %q", got, ProductName)
	}
}

func TestTitlesFillSlotsInPriorityOrder(t *testing.T) {
	dev := &fakeDevice{appName: "Media App"}
	dev.media = &castprotocol.MediaStatus{
		Metadata: castprotocol.MediaMetadata{
			Title:       "Episode One",
			SeriesTitle: "Some Show",
			Artist:      "Some Artist",
		},
	}
	a := New(dev, Options{})

	got := a.Titles()
	want := Titles{Title: "Episode One", Artist: "Some Show", Album: "Some Artist"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTitlesIncludeSubtitleAndAlbum(t *testing.T) {
	dev := &fakeDevice{appName: "Media App"}
	dev.media = &castprotocol.MediaStatus{
		Metadata: castprotocol.MediaMetadata{
			Title:     "Track",
			Subtitle:  "A Subtitle",
			AlbumName: "An Album",
		},
	}
	a := New(dev, Options{})

	got := a.Titles()
	want := Titles{Title: "Track", Artist: "A Subtitle", Album: "An Album"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTitlesFallBackToApplicationName(t *testing.T) {
	dev := &fakeDevice{appName: "Media App"}
	a := New(dev, Options{})

	got := a.Titles()
	want := Titles{Title: "Media App"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTitlesFallBackToProductName(t *testing.T) {
	a := New(&fakeDevice{}, Options{})

	got := a.Titles()
	want := Titles{Title: ProductName}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestStatusListenersRunAfterEstimatorReset(t *testing.T) {
	dev := &fakeDevice{}
	a := New(dev, Options{})

	dev.media = pausedStatus(30)
	if got := a.Duration(); got != 30*microsPerSecond {
		t.Fatalf("got %d, want %d", got, 30*microsPerSecond)
	}

	var seen int64 = -1
	a.OnUpdate(func() {
		seen = a.Duration()
	})

	dev.media = nil
	dev.notify()

	if seen != 0 {
		t.Fatalf("listener saw duration %d, want 0", seen)
	}
}

func TestRefreshAsksDeviceForStatus(t *testing.T) {
	dev := &fakeDevice{}
	a := New(dev, Options{})

	a.Refresh()

	if len(dev.calls) != 1 || dev.calls[0] != "refresh" {
		t.Fatalf("got calls %v, want [refresh]", dev.calls)
	}
}
