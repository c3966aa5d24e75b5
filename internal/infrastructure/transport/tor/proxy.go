package tor

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net"

	"golang.org/x/net/proxy"
)

type dialContextFn func(ctx context.Context, network, address string) (net.Conn, error)

// newSocks5Dialer returns a dial func that goes through the SOCKS5 proxy at
// the given address. If isolationTag is not empty, it's used to derive the
// proxy credentials so that Tor routes the requests on a dedicated circuit.
func newSocks5Dialer(addr, isolationTag string) (dialContextFn, error) {
	var auth *proxy.Auth
	if len(isolationTag) > 0 {
		sum := sha512.Sum512_256([]byte(isolationTag))
		auth = &proxy.Auth{
			User:     hex.EncodeToString(sum[:16]),
			Password: string([]byte{0x00}),
		}
	}

	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
	}
	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 dialer does not support context")
	}
	return contextDialer.DialContext, nil
}
