package dispatcher

import (
	"encoding/base64"
	"log/slog"
)

const redacted = "[REDACTED]"

type authKind uint8

const (
	authBasic authKind = iota + 1
	authBearer
)

// Auth is a credential for the server: either a username/password pair or an
// access token. Its printed and logged forms never contain the secret.
type Auth struct {
	kind     authKind
	username string
	password string
	token    string
}

// Credentials authenticates with HTTP basic auth.
func Credentials(username, password string) Auth {
	return Auth{kind: authBasic, username: username, password: password}
}

// Token authenticates with a bearer access token (tk_...).
func Token(token string) Auth {
	return Auth{kind: authBearer, token: token}
}

// IsZero reports whether a is the zero value.
func (a Auth) IsZero() bool { return a.kind == 0 }

// HeaderValue returns the Authorization header value.
func (a Auth) HeaderValue() string {
	switch a.kind {
	case authBasic:
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(a.username+":"+a.password))
	case authBearer:
		return "Bearer " + a.token
	}
	return ""
}

func (a Auth) String() string {
	switch a.kind {
	case authBasic:
		return "Credentials(" + a.username + ", " + redacted + ")"
	case authBearer:
		return "Token(" + redacted + ")"
	}
	return "Auth(none)"
}

// GoString keeps %#v from printing the secret.
func (a Auth) GoString() string { return a.String() }

// LogValue implements slog.LogValuer.
func (a Auth) LogValue() slog.Value { return slog.StringValue(a.String()) }
