package utils

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultMimeType is reported when no detection method recognizes the
// content.
const DefaultMimeType = "application/octet-stream"

const (
	probeHTTPClientTimeout         = 20 * time.Second
	probeHTTPDialTimeout           = 5 * time.Second
	probeHTTPKeepAlive             = 30 * time.Second
	probeHTTPTLSHandshakeTimeout   = 5 * time.Second
	probeHTTPResponseHeaderTimeout = 10 * time.Second
	probeHTTPExpectContinueTimeout = 1 * time.Second
	probeHTTPIdleConnTimeout       = 90 * time.Second
)

const probeHTTPRetryMax = 2

var probeHTTPClient = newProbeHTTPClient()

func newProbeHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = probeHTTPRetryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = &http.Client{
		Timeout: probeHTTPClientTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   probeHTTPDialTimeout,
				KeepAlive: probeHTTPKeepAlive,
			}).DialContext,
			TLSHandshakeTimeout:   probeHTTPTLSHandshakeTimeout,
			ResponseHeaderTimeout: probeHTTPResponseHeaderTimeout,
			ExpectContinueTimeout: probeHTTPExpectContinueTimeout,
			IdleConnTimeout:       probeHTTPIdleConnTimeout,
		},
	}

	return retryClient.StandardClient()
}

// GetMimeDetailsFromBytes returns the media type detected from a
// content head.
func GetMimeDetailsFromBytes(head []byte) (string, error) {
	kind, err := filetype.Match(head)
	if err != nil {
		return "", fmt.Errorf("getMimeDetailsFromBytes error: %w", err)
	}

	return fmt.Sprintf("%s/%s", kind.MIME.Type, kind.MIME.Subtype), nil
}

// GetMimeDetailsFromFile returns the media type detected from the head
// of a stream.
func GetMimeDetailsFromFile(f io.ReadCloser) (string, error) {
	defer f.Close()
	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("getMimeDetailsFromFile error: %w", err)
	}

	return GetMimeDetailsFromBytes(head[:n])
}

func normalizeContentType(v string) string {
	if v == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(v)
	if err == nil {
		return strings.ToLower(strings.TrimSpace(mt))
	}

	parts := strings.Split(v, ";")
	return strings.ToLower(strings.TrimSpace(parts[0]))
}

func shouldSniffContentType(mediaType string) bool {
	switch mediaType {
	case "", "/", "application/octet-stream", "binary/octet-stream", "text/plain":
		return true
	default:
		return false
	}
}

// GuessMimeFromURI resolves a media type for a remote URI: known file
// extensions first, then the Content-Type header of the URL, then magic
// bytes from the response head, and DefaultMimeType when everything
// else fails.
func GuessMimeFromURI(uri string) string {
	if byExt := mimeFromExtension(uri); byExt != "" {
		return byExt
	}
	if byProbe := mimeFromProbe(uri); byProbe != "" {
		return byProbe
	}
	return DefaultMimeType
}

func mimeFromExtension(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}

	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return ""
	}

	kind := filetype.GetType(strings.ToLower(ext))
	if kind == filetype.Unknown {
		return ""
	}

	return fmt.Sprintf("%s/%s", kind.MIME.Type, kind.MIME.Subtype)
}

func mimeFromProbe(uri string) string {
	if _, err := url.ParseRequestURI(uri); err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeHTTPClientTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return ""
	}

	resp, err := probeHTTPClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}

	mediaType := normalizeContentType(resp.Header.Get("Content-Type"))
	if !shouldSniffContentType(mediaType) {
		return mediaType
	}

	head := make([]byte, 261)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return mediaType
	}

	if n > 0 {
		sniffed, err := GetMimeDetailsFromBytes(head[:n])
		if err == nil && sniffed != "" && sniffed != "/" {
			mediaType = sniffed
		}
	}

	return mediaType
}
