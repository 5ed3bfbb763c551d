package castadapter

import (
	"go2tv.app/castpilot/castprotocol"
)

// PlayState values match the strings desktop controllers understand.
type PlayState string

const (
	StatePlaying PlayState = "Playing"
	StatePaused  PlayState = "Paused"
	StateStopped PlayState = "Stopped"
)

// LoopStatusNone is the only loop status the device can honor.
const LoopStatusNone = "None"

// PlaybackStatus maps the device player state onto the three states
// desktop controllers understand. Buffering counts as playing.
func (a *Adapter) PlaybackStatus() PlayState {
	status := a.dev.MediaStatus()
	if status == nil {
		return StateStopped
	}

	switch status.PlayerState {
	case castprotocol.PlayerStatePlaying, castprotocol.PlayerStateBuffering:
		return StatePlaying
	case castprotocol.PlayerStatePaused:
		return StatePaused
	}

	return StateStopped
}

// Play resumes playback of the loaded media.
func (a *Adapter) Play() {
	if err := a.dev.Play(); err != nil {
		a.Log().Error().Err(err).Msg("Failed to play")
	}
}

// Pause pauses the loaded media.
func (a *Adapter) Pause() {
	if err := a.dev.Pause(); err != nil {
		a.Log().Error().Err(err).Msg("Failed to pause")
	}
}

// PlayPause toggles between playing and paused.
func (a *Adapter) PlayPause() {
	if a.PlaybackStatus() == StatePlaying {
		a.Pause()
		return
	}
	a.Play()
}

// Stop stops the loaded media.
func (a *Adapter) Stop() {
	if err := a.dev.StopMedia(); err != nil {
		a.Log().Error().Err(err).Msg("Failed to stop")
	}
}

// Next jumps to the next item in the receiver queue.
func (a *Adapter) Next() {
	if err := a.dev.QueueNext(); err != nil {
		a.Log().Error().Err(err).Msg("Failed to jump to next track")
	}
}

// Previous jumps to the previous item in the receiver queue.
func (a *Adapter) Previous() {
	if err := a.dev.QueuePrev(); err != nil {
		a.Log().Error().Err(err).Msg("Failed to jump to previous track")
	}
}

// Quit closes the running receiver application.
func (a *Adapter) Quit() {
	if err := a.dev.QuitApp(); err != nil {
		a.Log().Error().Err(err).Msg("Failed to quit receiver application")
	}
}

// IsPlaylist reports whether the device exposes queue navigation for
// the loaded media.
func (a *Adapter) IsPlaylist() bool {
	return a.CanGoNext() || a.CanGoPrevious()
}

// Shuffle always reports false. The device has no shuffle concept.
func (a *Adapter) Shuffle() bool { return false }

// SetShuffle is accepted and ignored.
func (a *Adapter) SetShuffle(bool) {}

// LoopStatus always reports no looping.
func (a *Adapter) LoopStatus() string { return LoopStatusNone }

// SetLoopStatus is accepted and ignored.
func (a *Adapter) SetLoopStatus(string) {}
