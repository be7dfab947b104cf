package ports

import "context"

// ProxyPublisher writes rendered proxy configuration and asks the proxy to
// pick it up.
type ProxyPublisher interface {
	Write(ctx context.Context, path, text string) error
	Reload(ctx context.Context) error
}
