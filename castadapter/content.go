package castadapter

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const (
	videoServiceHostLong  = "youtube.com"
	videoServiceHostShort = "youtu.be"

	watchURLPrefix = "https://youtube.com/watch?v="
)

// ErrBadWatchURL flags a long-form video URL whose query carries zero or
// several video ids.
var ErrBadWatchURL = errors.New("VideoID: watch URL must carry exactly one video id")

// WatchURL rebuilds a shareable long-form URL for a bare video id.
func WatchURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return watchURLPrefix + videoID
}

// IsVideoServiceURL reports whether uri points at the video service,
// matching the host case-insensitively and accepting subdomains.
func IsVideoServiceURL(uri string) bool {
	if uri == "" {
		return false
	}
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())

	return matchesHost(host, videoServiceHostLong) || matchesHost(host, videoServiceHostShort)
}

func matchesHost(host, service string) bool {
	return host == service || strings.HasSuffix(host, "."+service)
}

// VideoID extracts the video id from a video-service URL. URLs for any
// other service yield an empty id and no error. A long-form URL with
// zero or several non-blank v parameters is malformed and yields
// ErrBadWatchURL.
func VideoID(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", nil
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case matchesHost(host, videoServiceHostLong):
		var ids []string
		for _, v := range u.Query()["v"] {
			if v != "" {
				ids = append(ids, v)
			}
		}
		if len(ids) != 1 {
			return "", errors.Wrap(ErrBadWatchURL, uri)
		}
		return ids[0], nil
	case matchesHost(host, videoServiceHostShort):
		return strings.TrimPrefix(u.Path, "/"), nil
	}

	return "", nil
}
