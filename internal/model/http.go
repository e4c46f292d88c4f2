package model

import (
	"net/http"
	"time"
)

// HTTPRequest is the transport-neutral request passed to a WebClient.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// HTTPResponse is the transport-neutral response returned by a WebClient.
type HTTPResponse struct {
	Request    *HTTPRequest
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}
