package castadapter

import (
	"math"
)

const (
	microsPerSecond = 1_000_000

	defaultPlaybackRate = 1.0
)

func secondsToMicros(seconds float64) int64 {
	return int64(math.Round(seconds * microsPerSecond))
}

// Position returns the playback position in microseconds, extrapolated
// from the last media status while the device plays. Zero when the
// device has not reported media status.
func (a *Adapter) Position() int64 {
	status := a.dev.MediaStatus()
	if status == nil {
		return 0
	}
	return secondsToMicros(status.PositionSeconds())
}

// Duration returns the media duration in microseconds. A nonzero
// device-reported duration wins outright. Without one the longest
// position observed since the estimator was last invalidated stands in,
// so a stream whose length the device never discloses still gets a
// monotonically growing length estimate.
func (a *Adapter) Duration() int64 {
	status := a.dev.MediaStatus()
	if status != nil && status.Media != nil && status.Media.Duration > 0 {
		return secondsToMicros(status.Media.Duration)
	}

	var current int64
	if status != nil {
		current = secondsToMicros(status.PositionSeconds())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.longestDuration > 0 && a.longestDuration > current:
		return a.longestDuration
	case current > 0:
		a.longestDuration = current
		return current
	}

	return 0
}

// hasCurrentTime reports whether the device reports a playback position
// that is still positive after rounding to one decimal place.
func (a *Adapter) hasCurrentTime() bool {
	status := a.dev.MediaStatus()
	if status == nil {
		return false
	}
	return math.Round(status.PositionSeconds()*10)/10 > 0
}

// Seek moves playback to the absolute position in microseconds. The
// device seeks with second granularity.
func (a *Adapter) Seek(position int64) {
	seconds := int(math.Round(float64(position) / microsPerSecond))

	if err := a.dev.Seek(seconds); err != nil {
		a.Log().Error().Err(err).Int("Seconds", seconds).Msg("Failed to seek")
	}
}

// Rate returns the playback rate the device reports, or 1.0 when the
// device reports none.
func (a *Adapter) Rate() float64 {
	status := a.dev.MediaStatus()
	if status == nil || status.PlaybackRate == 0 {
		return defaultPlaybackRate
	}
	return status.PlaybackRate
}

// SetRate is accepted and ignored. The device offers no rate control.
func (a *Adapter) SetRate(rate float64) {}
