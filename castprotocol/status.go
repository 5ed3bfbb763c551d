package castprotocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Player states reported by the media channel.
const (
	PlayerStateIdle      = "IDLE"
	PlayerStateBuffering = "BUFFERING"
	PlayerStatePlaying   = "PLAYING"
	PlayerStatePaused    = "PAUSED"
)

// Bits of the supportedMediaCommands mask in a media status.
const (
	CommandPause        = 1
	CommandSeek         = 2
	CommandStreamVolume = 4
	CommandStreamMute   = 8
	CommandSkipForward  = 16
	CommandSkipBackward = 32
	CommandQueueNext    = 64
	CommandQueuePrev    = 128
)

// ReceiverVolume is the level/muted pair carried by both receiver and
// media statuses.
type ReceiverVolume struct {
	Level float64
	Muted bool
}

// AppStatus describes the application currently running on the device,
// taken from a RECEIVER_STATUS message.
type AppStatus struct {
	AppID        string
	DisplayName  string
	IconURL      string
	SessionID    string
	StatusText   string
	TransportID  string
	IsIdleScreen bool
	Namespaces   []string
}

// HasNamespace reports whether the running application exposes the given
// channel namespace.
func (a *AppStatus) HasNamespace(ns string) bool {
	for _, n := range a.Namespaces {
		if n == ns {
			return true
		}
	}
	return false
}

// CastStatus is the device-level status. App is nil while nothing runs,
// including right after connecting before the first RECEIVER_STATUS lands.
type CastStatus struct {
	App        *AppStatus
	Volume     ReceiverVolume
	ReceivedAt time.Time
}

// MediaImage is one artwork entry from media metadata.
type MediaImage struct {
	URL    string `mapstructure:"url"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// MediaMetadata is the decoded metadata block of a media status. Fields
// are populated per metadataType, everything not sent stays zero.
type MediaMetadata struct {
	MetadataType int          `mapstructure:"metadataType"`
	Title        string       `mapstructure:"title"`
	SeriesTitle  string       `mapstructure:"seriesTitle"`
	Subtitle     string       `mapstructure:"subtitle"`
	Artist       string       `mapstructure:"artist"`
	AlbumName    string       `mapstructure:"albumName"`
	AlbumArtist  string       `mapstructure:"albumArtist"`
	TrackNumber  int          `mapstructure:"trackNumber"`
	ReleaseDate  string       `mapstructure:"releaseDate"`
	Images       []MediaImage `mapstructure:"images"`
}

// MediaInfo describes the loaded media item. Metadata holds the raw
// metadata object as sent by the device.
type MediaInfo struct {
	ContentID   string
	ContentURL  string
	ContentType string
	StreamType  string
	Duration    float64
	Metadata    map[string]any
}

// MediaStatus is the playback status of the current media session.
type MediaStatus struct {
	MediaSessionID         int
	PlayerState            string
	IdleReason             string
	CurrentTime            float64
	PlaybackRate           float64
	SupportedMediaCommands int
	Volume                 ReceiverVolume
	Media                  *MediaInfo
	Metadata               MediaMetadata
	ReceivedAt             time.Time
}

func (s *MediaStatus) SupportsPause() bool {
	return s.SupportedMediaCommands&CommandPause != 0
}

func (s *MediaStatus) SupportsSeek() bool {
	return s.SupportedMediaCommands&CommandSeek != 0
}

func (s *MediaStatus) SupportsQueueNext() bool {
	return s.SupportedMediaCommands&CommandQueueNext != 0
}

func (s *MediaStatus) SupportsQueuePrev() bool {
	return s.SupportedMediaCommands&CommandQueuePrev != 0
}

// PositionSeconds returns the playback position, extrapolated from the
// time the status was received while the player is playing. The device
// only pushes a new currentTime on state changes, so without the
// extrapolation the position would stick between notifications.
func (s *MediaStatus) PositionSeconds() float64 {
	if s.PlayerState != PlayerStatePlaying {
		return s.CurrentTime
	}
	rate := s.PlaybackRate
	if rate == 0 {
		rate = 1
	}
	return s.CurrentTime + time.Since(s.ReceivedAt).Seconds()*rate
}

type receiverStatusResponse struct {
	Type      string `json:"type"`
	RequestID int    `json:"requestId"`
	Status    struct {
		Applications []struct {
			AppID        string `json:"appId"`
			DisplayName  string `json:"displayName"`
			IconURL      string `json:"iconUrl"`
			IsIdleScreen bool   `json:"isIdleScreen"`
			Namespaces   []struct {
				Name string `json:"name"`
			} `json:"namespaces"`
			SessionID   string `json:"sessionId"`
			StatusText  string `json:"statusText"`
			TransportID string `json:"transportId"`
		} `json:"applications"`
		Volume struct {
			Level float64 `json:"level"`
			Muted bool    `json:"muted"`
		} `json:"volume"`
	} `json:"status"`
}

func parseReceiverStatus(payload []byte) (*CastStatus, error) {
	var resp receiverStatusResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("parseReceiverStatus: %w", err)
	}

	status := &CastStatus{
		Volume: ReceiverVolume{
			Level: resp.Status.Volume.Level,
			Muted: resp.Status.Volume.Muted,
		},
		ReceivedAt: time.Now(),
	}
	for _, app := range resp.Status.Applications {
		namespaces := make([]string, 0, len(app.Namespaces))
		for _, ns := range app.Namespaces {
			namespaces = append(namespaces, ns.Name)
		}
		status.App = &AppStatus{
			AppID:        app.AppID,
			DisplayName:  app.DisplayName,
			IconURL:      app.IconURL,
			SessionID:    app.SessionID,
			StatusText:   app.StatusText,
			TransportID:  app.TransportID,
			IsIdleScreen: app.IsIdleScreen,
			Namespaces:   namespaces,
		}
		break
	}
	return status, nil
}

type mediaStatusResponse struct {
	Type      string `json:"type"`
	RequestID int    `json:"requestId"`
	Status    []struct {
		MediaSessionID         int     `json:"mediaSessionId"`
		PlaybackRate           float64 `json:"playbackRate"`
		PlayerState            string  `json:"playerState"`
		IdleReason             string  `json:"idleReason"`
		CurrentTime            float64 `json:"currentTime"`
		SupportedMediaCommands int     `json:"supportedMediaCommands"`
		Volume                 struct {
			Level float64 `json:"level"`
			Muted bool    `json:"muted"`
		} `json:"volume"`
		Media *struct {
			ContentID   string         `json:"contentId"`
			ContentURL  string         `json:"contentUrl"`
			ContentType string         `json:"contentType"`
			StreamType  string         `json:"streamType"`
			Duration    float64        `json:"duration"`
			Metadata    map[string]any `json:"metadata"`
		} `json:"media"`
	} `json:"status"`
}

// parseMediaStatus returns nil when the status list is empty, which is
// what the device sends once the media session goes away.
func parseMediaStatus(payload []byte) (*MediaStatus, error) {
	var resp mediaStatusResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("parseMediaStatus: %w", err)
	}
	if len(resp.Status) == 0 {
		return nil, nil
	}

	s := resp.Status[0]
	status := &MediaStatus{
		MediaSessionID:         s.MediaSessionID,
		PlayerState:            s.PlayerState,
		IdleReason:             s.IdleReason,
		CurrentTime:            s.CurrentTime,
		PlaybackRate:           s.PlaybackRate,
		SupportedMediaCommands: s.SupportedMediaCommands,
		Volume: ReceiverVolume{
			Level: s.Volume.Level,
			Muted: s.Volume.Muted,
		},
		ReceivedAt: time.Now(),
	}
	if s.Media != nil {
		status.Media = &MediaInfo{
			ContentID:   s.Media.ContentID,
			ContentURL:  s.Media.ContentURL,
			ContentType: s.Media.ContentType,
			StreamType:  s.Media.StreamType,
			Duration:    s.Media.Duration,
			Metadata:    s.Media.Metadata,
		}
		if s.Media.Metadata != nil {
			if err := mapstructure.Decode(s.Media.Metadata, &status.Metadata); err != nil {
				return nil, fmt.Errorf("parseMediaStatus: decode metadata: %w", err)
			}
		}
	}
	return status, nil
}
