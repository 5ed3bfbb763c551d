package castadapter

// CanQuit always reports true. Quitting closes the receiver application.
func (a *Adapter) CanQuit() bool { return true }

// CanControl always reports true.
func (a *Adapter) CanControl() bool { return true }

// CanEditTracks always reports false. The receiver queue accepts
// additions through AddTrack but cannot be edited in place.
func (a *Adapter) CanEditTracks() bool { return false }

// CanPlay reports true while the device is playing or paused.
func (a *Adapter) CanPlay() bool {
	return a.PlaybackStatus() != StateStopped
}

// CanPause mirrors the pause capability of the loaded media.
func (a *Adapter) CanPause() bool {
	if status := a.dev.MediaStatus(); status != nil {
		return status.SupportsPause()
	}
	return false
}

// CanSeek mirrors the seek capability of the loaded media.
func (a *Adapter) CanSeek() bool {
	if status := a.dev.MediaStatus(); status != nil {
		return status.SupportsSeek()
	}
	return false
}

// CanGoNext mirrors the queue-next capability of the loaded media.
func (a *Adapter) CanGoNext() bool {
	if status := a.dev.MediaStatus(); status != nil {
		return status.SupportsQueueNext()
	}
	return false
}

// CanGoPrevious mirrors the queue-previous capability of the loaded
// media.
func (a *Adapter) CanGoPrevious() bool {
	if status := a.dev.MediaStatus(); status != nil {
		return status.SupportsQueuePrev()
	}
	return false
}
