package mprisserver

import (
	"github.com/godbus/dbus/v5"
)

// rootObject implements org.mpris.MediaPlayer2. There is no window to
// raise, so Raise is accepted and ignored.
type rootObject struct {
	s *Server
}

func (o *rootObject) Raise() *dbus.Error {
	return nil
}

func (o *rootObject) Quit() *dbus.Error {
	o.s.adapter.Quit()
	return nil
}

// playerObject implements org.mpris.MediaPlayer2.Player.
type playerObject struct {
	s *Server
}

func (o *playerObject) Next() *dbus.Error {
	o.s.adapter.Next()
	return nil
}

func (o *playerObject) Previous() *dbus.Error {
	o.s.adapter.Previous()
	return nil
}

func (o *playerObject) Pause() *dbus.Error {
	o.s.adapter.Pause()
	return nil
}

func (o *playerObject) PlayPause() *dbus.Error {
	o.s.adapter.PlayPause()
	return nil
}

func (o *playerObject) Stop() *dbus.Error {
	o.s.adapter.Stop()
	return nil
}

func (o *playerObject) Play() *dbus.Error {
	o.s.adapter.Play()
	return nil
}

// Seek moves playback by a relative offset in microseconds. Seeking
// before the start of the track clamps to the start.
func (o *playerObject) Seek(offset int64) *dbus.Error {
	if !o.s.adapter.CanSeek() {
		return nil
	}

	position := o.s.adapter.Position() + offset
	if position < 0 {
		position = 0
	}

	o.s.adapter.Seek(position)
	o.s.emitSeeked(position)
	return nil
}

// SetPosition jumps to an absolute position in microseconds. Writes
// for a stale track id or outside the track bounds are dropped.
func (o *playerObject) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	meta := o.s.adapter.Metadata()
	if string(trackID) != meta.TrackID {
		return nil
	}
	if position < 0 || (meta.Length > 0 && position > meta.Length) {
		return nil
	}

	o.s.adapter.Seek(position)
	o.s.emitSeeked(position)
	return nil
}

func (o *playerObject) OpenUri(uri string) *dbus.Error {
	o.s.adapter.OpenURI(uri)
	return nil
}

// trackListObject implements org.mpris.MediaPlayer2.TrackList. The
// receiver exposes no queue contents, only the current track is
// visible and the queue only grows through AddTrack.
type trackListObject struct {
	s *Server
}

func (o *trackListObject) GetTracksMetadata(trackIDs []dbus.ObjectPath) ([]map[string]dbus.Variant, *dbus.Error) {
	meta := o.s.adapter.Metadata()

	out := make([]map[string]dbus.Variant, 0, len(trackIDs))
	for _, id := range trackIDs {
		if string(id) == meta.TrackID {
			out = append(out, metadataToMap(meta))
		}
	}

	return out, nil
}

func (o *trackListObject) AddTrack(uri string, afterTrack dbus.ObjectPath, setAsCurrent bool) *dbus.Error {
	o.s.adapter.AddTrack(uri, string(afterTrack), setAsCurrent)
	return nil
}

func (o *trackListObject) RemoveTrack(trackID dbus.ObjectPath) *dbus.Error {
	return nil
}

func (o *trackListObject) GoTo(trackID dbus.ObjectPath) *dbus.Error {
	return nil
}
