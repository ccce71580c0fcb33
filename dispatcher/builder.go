package dispatcher

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpguts"
)

// Builder collects dispatcher settings. Its methods return a modified copy,
// so a Builder can be shared as a template.
type Builder struct {
	url        string
	auth       Auth
	proxy      string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// NewBuilder starts a dispatcher for the server at rawURL, e.g. "https://ntfy.sh".
func NewBuilder(rawURL string) Builder {
	return Builder{url: rawURL}
}

// WithAuth sets the credential sent with every request.
func (b Builder) WithAuth(auth Auth) Builder {
	b.auth = auth
	return b
}

// WithProxy routes all traffic through proxyURL. Supported schemes are
// http, https, socks5 and socks5h.
func (b Builder) WithProxy(proxyURL string) Builder {
	b.proxy = proxyURL
	return b
}

// WithHTTPClient uses c as the base client (timeouts, TLS, transport). c is
// copied, never modified.
func (b Builder) WithHTTPClient(c *http.Client) Builder {
	b.httpClient = c
	return b
}

// WithLogger enables debug tracing of outgoing messages.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithUserAgent sets the User-Agent header of every request.
func (b Builder) WithUserAgent(ua string) Builder {
	b.userAgent = ua
	return b
}

// Build returns a dispatcher whose Send blocks until the response is classified.
func (b Builder) Build() (*Dispatcher, error) {
	c, err := b.newClient()
	if err != nil {
		return nil, err
	}
	return &Dispatcher{client: c}, nil
}

// BuildAsync returns a dispatcher whose Send returns a Future immediately.
func (b Builder) BuildAsync() (*AsyncDispatcher, error) {
	c, err := b.newClient()
	if err != nil {
		return nil, err
	}
	return &AsyncDispatcher{client: c}, nil
}

func (b Builder) newClient() (*client, error) {
	target, err := parseBaseURL(b.url)
	if err != nil {
		return nil, err
	}

	c := &client{url: target.String(), logger: b.logger}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	if b.userAgent != "" {
		if !httpguts.ValidHeaderFieldValue(b.userAgent) {
			return nil, fmt.Errorf("%w: User-Agent %q", ErrInvalidHeader, b.userAgent)
		}
		c.userAgent = b.userAgent
	}

	if !b.auth.IsZero() {
		value := b.auth.HeaderValue()
		if !httpguts.ValidHeaderFieldValue(value) {
			// The value holds the secret; report only which credential failed.
			return nil, fmt.Errorf("%w: Authorization from %s", ErrInvalidHeader, b.auth)
		}
		c.authHeader = value
	}

	hc, err := b.buildHTTPClient()
	if err != nil {
		return nil, err
	}
	c.http = hc
	return c, nil
}

func (b Builder) buildHTTPClient() (*http.Client, error) {
	var hc http.Client
	if b.httpClient != nil {
		hc = *b.httpClient
	}
	if b.proxy == "" {
		return &hc, nil
	}

	var base *http.Transport
	switch t := hc.Transport.(type) {
	case nil:
		base = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		base = t.Clone()
	default:
		return nil, fmt.Errorf("%w: proxy needs an *http.Transport, client has %T", ErrInvalidProxy, t)
	}
	if err := applyProxy(base, b.proxy); err != nil {
		return nil, err
	}
	hc.Transport = base
	return &hc, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q needs an http or https scheme", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return u, nil
}
