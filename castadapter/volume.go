package castadapter

import (
	"github.com/shopspring/decimal"
)

// Volume returns the receiver volume level as an exact decimal. ok is
// false until the device reports cast status.
func (a *Adapter) Volume() (decimal.Decimal, bool) {
	status := a.dev.CastStatus()
	if status == nil {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(status.Volume.Level), true
}

// SetVolume steers the receiver toward target with a single up or down
// command carrying the exact decimal delta. The device cannot adjust by
// zero, so equal volumes issue nothing.
func (a *Adapter) SetVolume(target decimal.Decimal) {
	current, ok := a.Volume()
	if !ok {
		return
	}

	delta := target.Sub(current)

	var err error
	switch {
	case delta.IsPositive():
		err = a.dev.VolumeUp(delta)
	case delta.IsNegative():
		err = a.dev.VolumeDown(delta.Abs())
	default:
		return
	}

	if err != nil {
		a.Log().Error().Err(err).Str("Delta", delta.String()).Msg("Failed to change volume")
	}
}

// Muted reports the receiver mute flag, false when unreported.
func (a *Adapter) Muted() bool {
	if status := a.dev.CastStatus(); status != nil {
		return status.Volume.Muted
	}
	return false
}

// SetMuted passes the mute flag through to the receiver.
func (a *Adapter) SetMuted(muted bool) {
	if err := a.dev.SetVolumeMuted(muted); err != nil {
		a.Log().Error().Err(err).Msg("Failed to set mute")
	}
}
