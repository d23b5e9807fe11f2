package model

import (
	"fmt"
	"net/url"
)

// Proxy is one entry of a proxy catalog group.
type Proxy struct {
	Host     string
	Port     int
	Username string
	Password string
	Group    string
}

// Key returns the claim key for the proxy. Two catalog entries with the same
// host and port are the same network identity.
func (p Proxy) Key() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// URL returns the proxy as an HTTP proxy URL.
func (p Proxy) URL() string {
	u := url.URL{
		Scheme: "http",
		Host:   p.Key(),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u.String()
}
