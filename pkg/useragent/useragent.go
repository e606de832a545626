// Package useragent builds the User-Agent string playlist2csv sends with every
// HTTP request and provides a RoundTripper that applies it.
package useragent

import (
	"fmt"
	"net/http"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/toozej/playlist2csv/pkg/version"
)

// ProductName is the product token at the start of the User-Agent header.
const ProductName = "playlist2csv"

// String returns the User-Agent for the running binary.
//
// Example:
//
//	useragent.String()
//	// Returns: "playlist2csv/v1.2.3 (linux/amd64)"
func String() string {
	return WithVersion(version.Version)
}

// WithVersion constructs a User-Agent string with a specific version while
// keeping the platform suffix of the running binary.
func WithVersion(v string) string {
	if v == "" {
		v = "local"
	}
	return fmt.Sprintf("%s/%s (%s/%s)", ProductName, v, runtime.GOOS, runtime.GOARCH)
}

// Transport is an http.RoundTripper that sets the User-Agent header on
// requests that do not already carry one.
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
}

// NewTransport wraps base (http.DefaultTransport when nil) with the
// playlist2csv User-Agent.
func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, UserAgent: String()}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.Base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.UserAgent)

	log.WithFields(log.Fields{
		"user_agent": t.UserAgent,
		"method":     clone.Method,
		"host":       clone.URL.Host,
	}).Trace("Sending request")

	return t.Base.RoundTrip(clone)
}
