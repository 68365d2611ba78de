package tsserver

import (
	"github.com/wagiedev/tsserver-go/internal/client"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	*client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates the internal client implementation.
func newClientImpl(opts []Option) Client {
	return &clientWrapper{Client: client.New(applyOptions(opts))}
}

// OnEvent subscribes fn to server events named name.
func (c *clientWrapper) OnEvent(name string, fn func(payload any)) func() {
	return c.On(name, fn)
}
