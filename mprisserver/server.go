// Package mprisserver publishes a cast device adapter on the session
// bus under the org.mpris.MediaPlayer2 player interfaces, so regular
// desktop media controllers can drive the device.
package mprisserver

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"go2tv.app/castpilot/castadapter"
)

const (
	busNamePrefix = "org.mpris.MediaPlayer2."
	objectPath    = "/org/mpris/MediaPlayer2"

	rootInterface      = "org.mpris.MediaPlayer2"
	playerInterface    = "org.mpris.MediaPlayer2.Player"
	trackListInterface = "org.mpris.MediaPlayer2.TrackList"

	seekedSignal = playerInterface + ".Seeked"

	positionUpdateInterval = time.Second
)

// ErrNameTaken signals that another process already owns the bus name.
var ErrNameTaken = errors.New("Start: Bus name already taken")

var supportedURISchemes = []string{"http", "https"}

var supportedMimeTypes = []string{
	"video/mp4",
	"video/webm",
	"video/x-matroska",
	"audio/mpeg",
	"audio/mp4",
	"audio/ogg",
	"audio/flac",
	"audio/wav",
	"image/jpeg",
	"image/png",
	"image/webp",
}

// Server owns the bus connection and the exported player objects.
type Server struct {
	adapter *castadapter.Adapter
	busName string

	conn  *dbus.Conn
	props *prop.Properties

	mu     sync.Mutex
	closed bool

	done      chan struct{}
	closeOnce sync.Once

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (s *Server) Log() *zerolog.Logger {
	if s.LogOutput != nil {
		s.initLogOnce.Do(func() {
			s.Logger = zerolog.New(s.LogOutput).With().Timestamp().Logger()
		})
	}
	return &s.Logger
}

// NewServer builds a server for the adapter. The bus name carries the
// sanitized player name so several devices can coexist on one bus.
func NewServer(adapter *castadapter.Adapter) *Server {
	return &Server{
		adapter: adapter,
		busName: busNamePrefix + SanitizeBusName(adapter.Name()),
		done:    make(chan struct{}),
	}
}

// BusName returns the well-known name the server claims on the bus.
func (s *Server) BusName() string {
	return s.busName
}

// SanitizeBusName maps an arbitrary device name onto a valid D-Bus name
// element. Runs of invalid characters collapse to underscores and a
// leading digit gets an underscore prefix.
func SanitizeBusName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	if out == "" || strings.Trim(out, "_") == "" {
		return "castpilot"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}

	return out
}

// Start connects to the session bus, claims the player name and exports
// the root, player and track list interfaces. It returns once the
// surface is live; property updates then follow device notifications.
func (s *Server) Start() error {
	s.Log().Debug().Str("Method", "Start").Str("BusName", s.busName).Msg("Publishing player")

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		s.Log().Error().Err(err).Msg("Failed to connect to the session bus")
		return errors.Wrap(err, "Start error")
	}
	s.conn = conn

	reply, err := conn.RequestName(s.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		s.Log().Error().Err(err).Msg("Failed to request the bus name")
		return errors.Wrap(err, "Start error")
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return errors.Wrap(ErrNameTaken, s.busName)
	}

	root := &rootObject{s: s}
	player := &playerObject{s: s}
	trackList := &trackListObject{s: s}

	if err := conn.Export(root, objectPath, rootInterface); err != nil {
		conn.Close()
		return errors.Wrap(err, "Start error")
	}
	if err := conn.Export(player, objectPath, playerInterface); err != nil {
		conn.Close()
		return errors.Wrap(err, "Start error")
	}
	if err := conn.Export(trackList, objectPath, trackListInterface); err != nil {
		conn.Close()
		return errors.Wrap(err, "Start error")
	}

	props, err := prop.Export(conn, objectPath, s.propsSpec())
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "Start error")
	}
	s.props = props

	node := &introspect.Node{
		Name: objectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       rootInterface,
				Methods:    introspect.Methods(root),
				Properties: props.Introspection(rootInterface),
			},
			{
				Name:       playerInterface,
				Methods:    introspect.Methods(player),
				Properties: props.Introspection(playerInterface),
				Signals: []introspect.Signal{
					{Name: "Seeked", Args: []introspect.Arg{{Name: "Position", Type: "x", Direction: "out"}}},
				},
			},
			{
				Name:       trackListInterface,
				Methods:    introspect.Methods(trackList),
				Properties: props.Introspection(trackListInterface),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return errors.Wrap(err, "Start error")
	}

	s.adapter.OnUpdate(s.onUpdate)
	go s.positionLoop()

	return nil
}

// Close releases the bus name and drops the connection. Property
// updates stop before the connection goes away.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.done)
		if s.conn != nil {
			_, _ = s.conn.ReleaseName(s.busName)
			err = s.conn.Close()
		}
	})
	return err
}

// positionLoop keeps the polled Position property current and nudges
// the device for status. Position changes carry no PropertiesChanged
// signal, controllers poll it.
func (s *Server) positionLoop() {
	ticker := time.NewTicker(positionUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.adapter.Refresh()
			s.setProp(playerInterface, "Position", s.adapter.Position())
		}
	}
}

// onUpdate pushes the adapter's projections onto the property surface.
// It runs on the cast client's receive goroutine.
func (s *Server) onUpdate() {
	a := s.adapter

	s.setProp(playerInterface, "PlaybackStatus", string(a.PlaybackStatus()))
	s.setProp(playerInterface, "Metadata", metadataToMap(a.Metadata()))
	s.setProp(playerInterface, "Rate", a.Rate())
	s.setProp(playerInterface, "Volume", s.volume())
	s.setProp(playerInterface, "Position", a.Position())
	s.setProp(playerInterface, "CanGoNext", a.CanGoNext())
	s.setProp(playerInterface, "CanGoPrevious", a.CanGoPrevious())
	s.setProp(playerInterface, "CanPlay", a.CanPlay())
	s.setProp(playerInterface, "CanPause", a.CanPause())
	s.setProp(playerInterface, "CanSeek", a.CanSeek())
	s.setProp(trackListInterface, "Tracks", currentTracks(a))
}

// setProp stores a property owner-side. Properties.Set is the bus
// facing setter and rejects read-only properties, so updates go
// through SetMust behind the teardown guard.
func (s *Server) setProp(iface, name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.props.SetMust(iface, name, value)
}

func (s *Server) volume() float64 {
	vol, ok := s.adapter.Volume()
	if !ok {
		return 0
	}

	f, _ := vol.Float64()
	return f
}

func (s *Server) emitSeeked(position int64) {
	if err := s.conn.Emit(objectPath, seekedSignal, position); err != nil {
		s.Log().Error().Err(err).Msg("Failed to emit the seeked signal")
	}
}

func currentTracks(a *castadapter.Adapter) []dbus.ObjectPath {
	return []dbus.ObjectPath{dbus.ObjectPath(a.Metadata().TrackID)}
}
