package mprisserver

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var errInvalidPropertyValue = errors.New("Set: Unexpected property value type")

// propsSpec declares every property the three interfaces expose,
// seeded from the adapter's current state. Writable entries forward
// controller writes to the adapter through their callbacks.
func (s *Server) propsSpec() prop.Map {
	a := s.adapter

	return prop.Map{
		rootInterface: {
			"CanQuit":             {Value: a.CanQuit(), Emit: prop.EmitTrue},
			"CanRaise":            {Value: false, Emit: prop.EmitTrue},
			"CanSetFullscreen":    {Value: false, Emit: prop.EmitTrue},
			"Fullscreen":          {Value: false, Writable: true, Emit: prop.EmitTrue, Callback: s.onFullscreen},
			"HasTrackList":        {Value: true, Emit: prop.EmitTrue},
			"Identity":            {Value: a.Name(), Emit: prop.EmitTrue},
			"DesktopEntry":        {Value: "castpilot", Emit: prop.EmitTrue},
			"SupportedUriSchemes": {Value: supportedURISchemes, Emit: prop.EmitTrue},
			"SupportedMimeTypes":  {Value: supportedMimeTypes, Emit: prop.EmitTrue},
		},
		playerInterface: {
			"PlaybackStatus": {Value: string(a.PlaybackStatus()), Emit: prop.EmitTrue},
			"LoopStatus":     {Value: a.LoopStatus(), Writable: true, Emit: prop.EmitTrue, Callback: s.onLoopStatus},
			"Rate":           {Value: a.Rate(), Writable: true, Emit: prop.EmitTrue, Callback: s.onRate},
			"Shuffle":        {Value: a.Shuffle(), Writable: true, Emit: prop.EmitTrue, Callback: s.onShuffle},
			"Metadata":       {Value: metadataToMap(a.Metadata()), Emit: prop.EmitTrue},
			"Volume":         {Value: s.volume(), Writable: true, Emit: prop.EmitTrue, Callback: s.onVolume},
			"Position":       {Value: a.Position(), Emit: prop.EmitFalse},
			"MinimumRate":    {Value: 1.0, Emit: prop.EmitTrue},
			"MaximumRate":    {Value: 1.0, Emit: prop.EmitTrue},
			"CanGoNext":      {Value: a.CanGoNext(), Emit: prop.EmitTrue},
			"CanGoPrevious":  {Value: a.CanGoPrevious(), Emit: prop.EmitTrue},
			"CanPlay":        {Value: a.CanPlay(), Emit: prop.EmitTrue},
			"CanPause":       {Value: a.CanPause(), Emit: prop.EmitTrue},
			"CanSeek":        {Value: a.CanSeek(), Emit: prop.EmitTrue},
			"CanControl":     {Value: a.CanControl(), Emit: prop.EmitFalse},
		},
		trackListInterface: {
			"Tracks":        {Value: currentTracks(a), Emit: prop.EmitTrue},
			"CanEditTracks": {Value: a.CanEditTracks(), Emit: prop.EmitTrue},
		},
	}
}

// The receiver has no fullscreen notion, the write is accepted and
// dropped.
func (s *Server) onFullscreen(c *prop.Change) *dbus.Error {
	return nil
}

func (s *Server) onLoopStatus(c *prop.Change) *dbus.Error {
	status, ok := c.Value.(string)
	if !ok {
		return dbus.MakeFailedError(errInvalidPropertyValue)
	}

	s.adapter.SetLoopStatus(status)
	return nil
}

func (s *Server) onRate(c *prop.Change) *dbus.Error {
	rate, ok := c.Value.(float64)
	if !ok {
		return dbus.MakeFailedError(errInvalidPropertyValue)
	}

	s.adapter.SetRate(rate)
	return nil
}

func (s *Server) onShuffle(c *prop.Change) *dbus.Error {
	shuffle, ok := c.Value.(bool)
	if !ok {
		return dbus.MakeFailedError(errInvalidPropertyValue)
	}

	s.adapter.SetShuffle(shuffle)
	return nil
}

func (s *Server) onVolume(c *prop.Change) *dbus.Error {
	level, ok := c.Value.(float64)
	if !ok {
		return dbus.MakeFailedError(errInvalidPropertyValue)
	}

	s.adapter.SetVolume(decimal.NewFromFloat(level))
	return nil
}
