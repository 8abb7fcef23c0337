package resolver

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient builds the shared transport. MaxIdleConnsPerHost is raised
// so repeated scans against the same server reuse connections; the client
// itself carries no timeout, each attempt sets its own.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 100, // default is 2
		},
	}
}
