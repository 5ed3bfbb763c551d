package castprotocol

import (
	"sync/atomic"

	"github.com/vishen/go-chromecast/cast"
)

// Request ID counter for cast channel messages
var requestIDCounter int32

func nextRequestID() int {
	return int(atomic.AddInt32(&requestIDCounter, 1))
}

// The receiver treats absent volume fields as unchanged, so each
// SET_VOLUME payload carries exactly the one field it sets. The stock
// cast.Volume type cannot express that: level is omitempty and muted is
// always emitted.

type volumeLevel struct {
	Level float64 `json:"level"`
}

// setVolumeLevelPayload is a SET_VOLUME command that only touches the level.
type setVolumeLevelPayload struct {
	Type      string      `json:"type"`
	RequestId int         `json:"requestId"`
	Volume    volumeLevel `json:"volume"`
}

// SetRequestId implements cast.Payload interface
func (p *setVolumeLevelPayload) SetRequestId(id int) {
	p.RequestId = id
}

func newSetVolumeLevel(level float64) *setVolumeLevelPayload {
	return &setVolumeLevelPayload{
		Type:   "SET_VOLUME",
		Volume: volumeLevel{Level: level},
	}
}

type volumeMuted struct {
	Muted bool `json:"muted"`
}

// setVolumeMutedPayload is a SET_VOLUME command that only touches the mute flag.
type setVolumeMutedPayload struct {
	Type      string      `json:"type"`
	RequestId int         `json:"requestId"`
	Volume    volumeMuted `json:"volume"`
}

// SetRequestId implements cast.Payload interface
func (p *setVolumeMutedPayload) SetRequestId(id int) {
	p.RequestId = id
}

func newSetVolumeMuted(muted bool) *setVolumeMutedPayload {
	return &setVolumeMutedPayload{
		Type:   "SET_VOLUME",
		Volume: volumeMuted{Muted: muted},
	}
}

// mdxStatusPayload asks a YouTube receiver for its lounge screen id on
// the mdx namespace.
type mdxStatusPayload struct {
	Type      string `json:"type"`
	RequestId int    `json:"requestId,omitempty"`
}

// SetRequestId implements cast.Payload interface
func (p *mdxStatusPayload) SetRequestId(id int) {
	p.RequestId = id
}

var (
	_ cast.Payload = (*setVolumeLevelPayload)(nil)
	_ cast.Payload = (*setVolumeMutedPayload)(nil)
	_ cast.Payload = (*mdxStatusPayload)(nil)
)
