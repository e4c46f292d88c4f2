// Package webclient provides the outbound HTTP transport used by the remote
// detection tier. The interface lives in internal/interfaces so callers can
// inject test doubles; this package holds the real backend.
package webclient

import (
	"github.com/raysh454/shiro/internal/interfaces"
	"github.com/raysh454/shiro/internal/model"
)

// WebClient, Request and Response alias the shared contracts for callers that
// only import this package.
type (
	WebClient = interfaces.WebClient
	Request   = model.HTTPRequest
	Response  = model.HTTPResponse
)
