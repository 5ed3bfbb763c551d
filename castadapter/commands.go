package castadapter

import (
	"go2tv.app/castpilot/utils"
)

var guessMime = utils.GuessMimeFromURI

// OpenURI starts playback of uri on the device. Video-service URLs ride
// the dedicated queue-and-play controller, launching its receiver
// application first when inactive. Everything else plays as generic
// media with a guessed MIME type.
func (a *Adapter) OpenURI(uri string) {
	videoID, err := VideoID(uri)
	if err != nil {
		a.Log().Error().Err(err).Msg("Ignoring malformed video URL")
	}
	if videoID != "" {
		a.playVideo(videoID)
		return
	}

	contentType := guessMime(uri)
	if err := a.dev.PlayMedia(uri, contentType); err != nil {
		a.Log().Error().Err(err).Str("URI", uri).Msg("Failed to play media")
	}
}

// AddTrack enqueues uri. Video-service URLs land in the receiver-side
// queue and optionally start playing right away. Other URIs cannot be
// queued, so setAsCurrent falls back to OpenURI and anything else is
// dropped. afterTrack is accepted for interface compatibility, the
// receiver queue only appends.
func (a *Adapter) AddTrack(uri, afterTrack string, setAsCurrent bool) {
	videoID, err := VideoID(uri)
	if err != nil && !setAsCurrent {
		a.Log().Error().Err(err).Msg("Ignoring malformed video URL")
	}

	if videoID != "" {
		if err := a.dev.QueueVideo(videoID); err != nil {
			a.Log().Error().Err(err).Str("VideoID", videoID).Msg("Failed to queue video")
		}
		if setAsCurrent {
			a.playVideo(videoID)
		}
		return
	}

	if setAsCurrent {
		a.OpenURI(uri)
	}
}

func (a *Adapter) playVideo(videoID string) {
	if !a.dev.VideoAppActive() {
		if err := a.dev.LaunchVideoApp(); err != nil {
			a.Log().Error().Err(err).Msg("Failed to launch video application")
			return
		}
	}

	if err := a.dev.PlayVideo(videoID); err != nil {
		a.Log().Error().Err(err).Str("VideoID", videoID).Msg("Failed to play video")
	}
}
