package dispatcher

import (
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

// applyProxy points every connection of t at the proxy in raw.
func applyProxy(t *http.Transport, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidProxy, raw)
	}

	switch u.Scheme {
	case "http", "https":
		t.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProxy, err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("%w: %s dialer does not support contexts", ErrInvalidProxy, u.Scheme)
		}
		t.Proxy = nil
		t.DialContext = cd.DialContext
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	return nil
}
