package castadapter

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"go2tv.app/castpilot/castprotocol"
)

// ProductName is announced to desktop controllers when the device
// reports nothing better.
const ProductName = "Castpilot"

// Device is the cast-side surface the adapter projects from. Bind wraps
// a cast client and its video-app controller into one.
type Device interface {
	DeviceName() string
	AppID() string
	AppDisplayName() string
	CastStatus() *castprotocol.CastStatus
	MediaStatus() *castprotocol.MediaStatus
	OnStatusUpdate(fn func())
	RequestStatusRefresh()

	Play() error
	Pause() error
	StopMedia() error
	Seek(seconds int) error
	QueueNext() error
	QueuePrev() error
	PlayMedia(contentURL, contentType string) error
	VolumeUp(delta decimal.Decimal) error
	VolumeDown(delta decimal.Decimal) error
	SetVolumeMuted(muted bool) error
	QuitApp() error

	VideoAppActive() bool
	LaunchVideoApp() error
	PlayVideo(videoID string) error
	QueueVideo(videoID string) error
}

type castDevice struct {
	*castprotocol.CastClient
	video *castprotocol.YouTubeController
}

func (d *castDevice) VideoAppActive() bool { return d.video.IsActive() }

func (d *castDevice) LaunchVideoApp() error { return d.video.Launch() }

func (d *castDevice) PlayVideo(videoID string) error { return d.video.PlayVideo(videoID) }

func (d *castDevice) QueueVideo(videoID string) error { return d.video.AddToQueue(videoID) }

// Bind attaches a video-app controller to the client and exposes both
// behind the Device surface.
func Bind(client *castprotocol.CastClient) Device {
	return &castDevice{
		CastClient: client,
		video:      castprotocol.NewYouTubeController(client),
	}
}

type cachedIcon struct {
	url   string
	appID string
	title string
}

// Options configures a new Adapter.
type Options struct {
	// LightIcon selects the light fallback artwork variant.
	LightIcon bool
	// LightIconPath and DarkIconPath point at the installed fallback
	// artwork files. Either may be empty.
	LightIconPath string
	DarkIconPath  string
}

// Adapter projects the state of one cast device onto a local media
// player surface. Status notifications arrive on the cast client's
// receive goroutine, so the icon cache, the duration estimator and the
// icon preference share one mutex.
type Adapter struct {
	dev Device

	mu              sync.Mutex
	cached          *cachedIcon
	longestDuration int64
	lightIcon       bool
	lightIconPath   string
	darkIconPath    string
	listeners       []func()

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (a *Adapter) Log() *zerolog.Logger {
	if a.LogOutput != nil {
		a.initLogOnce.Do(func() {
			a.Logger = zerolog.New(a.LogOutput).With().Timestamp().Logger()
		})
	}
	return &a.Logger
}

// New builds an adapter over dev and subscribes to its status
// notifications.
func New(dev Device, opts Options) *Adapter {
	a := &Adapter{
		dev:           dev,
		lightIcon:     opts.LightIcon,
		lightIconPath: opts.LightIconPath,
		darkIconPath:  opts.DarkIconPath,
	}
	dev.OnStatusUpdate(a.onNewStatus)

	return a
}

// Name is the player name shown by desktop controllers.
func (a *Adapter) Name() string {
	if name := a.dev.DeviceName(); name != "" {
		return name
	}
	return ProductName
}

// OnUpdate registers fn to run after each device status notification has
// been folded into the adapter. fn runs on the cast client's receive
// goroutine and must not block.
func (a *Adapter) OnUpdate(fn func()) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

// Refresh asks the device for fresh receiver and media status. The
// client rate-limits the request on the wire.
func (a *Adapter) Refresh() {
	a.dev.RequestStatusRefresh()
}

// onNewStatus runs on every status notification. A notification without
// a usable playback position invalidates the longest-duration estimate
// before downstream listeners observe the new state.
func (a *Adapter) onNewStatus() {
	hasTime := a.hasCurrentTime()

	a.mu.Lock()
	if !hasTime {
		a.longestDuration = 0
	}
	listeners := make([]func(), len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
