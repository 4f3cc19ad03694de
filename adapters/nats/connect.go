package nats

import (
	"os"
	"sync"

	natsgo "github.com/nats-io/nats.go"
)

type closeFunc = func()

// Connector opens a connection and returns the function releasing it.
type Connector func() (nc *natsgo.Conn, close closeFunc, err error)

// ReuseConnection shares one connection between all callers; it is closed
// once every caller released it.
func ReuseConnection(connect Connector) Connector {
	var (
		mu     sync.Mutex
		nc     *natsgo.Conn
		closer closeFunc
		leased int
	)
	release := func() {
		mu.Lock()
		defer mu.Unlock()
		if leased--; leased == 0 {
			closer()
			nc = nil
		}
	}
	return func() (*natsgo.Conn, closeFunc, error) {
		mu.Lock()
		defer mu.Unlock()
		if nc == nil {
			var err error
			if nc, closer, err = connect(); err != nil {
				return nil, nil, err
			}
		}
		leased++
		return nc, sync.OnceFunc(release), nil
	}
}

func ConnectURL(natsURL string, opts ...natsgo.Option) Connector {
	return func() (*natsgo.Conn, closeFunc, error) {
		nc, err := natsgo.Connect(natsURL, append([]natsgo.Option{natsgo.MaxReconnects(3)}, opts...)...)
		if err != nil {
			return nil, nil, err
		}
		return nc, func() {
			if err := nc.Drain(); err != nil {
				nc.Close()
			}
		}, nil
	}
}

// ConnectDefault connects to $NATS_URL, or the default local server.
func ConnectDefault() Connector {
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		return ConnectURL(natsURL)
	}
	return ConnectURL(natsgo.DefaultURL)
}
