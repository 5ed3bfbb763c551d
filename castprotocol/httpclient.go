package castprotocol

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	loungeHTTPClientTimeout         = 20 * time.Second
	loungeHTTPDialTimeout           = 5 * time.Second
	loungeHTTPKeepAlive             = 30 * time.Second
	loungeHTTPTLSHandshakeTimeout   = 5 * time.Second
	loungeHTTPResponseHeaderTimeout = 10 * time.Second
	loungeHTTPExpectContinueTimeout = 1 * time.Second
	loungeHTTPIdleConnTimeout       = 90 * time.Second
)

var loungeHTTPTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   loungeHTTPDialTimeout,
		KeepAlive: loungeHTTPKeepAlive,
	}).DialContext,
	TLSHandshakeTimeout:   loungeHTTPTLSHandshakeTimeout,
	ResponseHeaderTimeout: loungeHTTPResponseHeaderTimeout,
	ExpectContinueTimeout: loungeHTTPExpectContinueTimeout,
	IdleConnTimeout:       loungeHTTPIdleConnTimeout,
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   loungeHTTPClientTimeout,
		Transport: loungeHTTPTransport,
	}
}

func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = newHTTPClient()

	return retryClient.StandardClient()
}
