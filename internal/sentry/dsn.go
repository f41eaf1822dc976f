package sentry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidDSN is returned for DSNs that cannot address a project.
var ErrInvalidDSN = errors.New("sentry: invalid dsn")

// DSN addresses one project: {scheme}://{public}[:{secret}]@{host}[/{path}]/{project}.
type DSN struct {
	Scheme    string
	Host      string
	Path      string // prefix before the project id, without trailing slash
	ProjectID string
	PublicKey string
	SecretKey string
}

// ParseDSN validates and splits raw.
func ParseDSN(raw string) (*DSN, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidDSN, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidDSN)
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("%w: missing public key", ErrInvalidDSN)
	}

	path := strings.TrimRight(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 || idx == len(path)-1 {
		return nil, fmt.Errorf("%w: missing project id", ErrInvalidDSN)
	}

	secret, _ := u.User.Password()
	return &DSN{
		Scheme:    u.Scheme,
		Host:      u.Host,
		Path:      path[:idx],
		ProjectID: path[idx+1:],
		PublicKey: u.User.Username(),
		SecretKey: secret,
	}, nil
}

// StoreURL is the event submission endpoint.
func (d *DSN) StoreURL() string {
	return fmt.Sprintf("%s://%s%s/api/%s/store/", d.Scheme, d.Host, d.Path, d.ProjectID)
}

// AuthHeader builds the X-Sentry-Auth value.
func (d *DSN) AuthHeader(client string) string {
	var b strings.Builder
	b.WriteString("Sentry sentry_version=7, sentry_client=")
	b.WriteString(client)
	b.WriteString(", sentry_key=")
	b.WriteString(d.PublicKey)
	if d.SecretKey != "" {
		b.WriteString(", sentry_secret=")
		b.WriteString(d.SecretKey)
	}
	return b.String()
}

// String returns the DSN without its secret.
func (d *DSN) String() string {
	return fmt.Sprintf("%s://%s@%s%s/%s", d.Scheme, d.PublicKey, d.Host, d.Path, d.ProjectID)
}
