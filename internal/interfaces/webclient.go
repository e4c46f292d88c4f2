package interfaces

import (
	"context"

	"github.com/raysh454/shiro/internal/model"
)

// WebClient abstracts outbound HTTP so callers (currently the remote
// detection tier) can be exercised in tests without real network I/O.
type WebClient interface {
	Do(ctx context.Context, req *model.HTTPRequest) (*model.HTTPResponse, error)

	// Get is a convenience method for simple GET requests.
	Get(ctx context.Context, url string) (*model.HTTPResponse, error)

	Close() error
}
