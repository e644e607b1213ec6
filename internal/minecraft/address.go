package minecraft

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Cache key prefixes per lookup
const (
	JavaKeyPrefix    = "server_"
	BedrockKeyPrefix = "bserver_"
	StatusKey        = "status"
)

var ErrEmptyAddress = errors.New("server address is empty")

// Address is a normalized server host with an optional port (0 = default)
type Address struct {
	Host string
	Port int
}

// ParseServerAddress normalizes a user supplied address. A port embedded in
// addr ("host:port") takes precedence over the separate port argument.
func ParseServerAddress(addr string, port int) (Address, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return Address{}, ErrEmptyAddress
	}

	host := addr
	if strings.Contains(addr, ":") {
		h, p, err := net.SplitHostPort(addr)
		if err != nil {
			return Address{}, fmt.Errorf("invalid server address %q: %w", addr, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Address{}, fmt.Errorf("invalid port %q", p)
		}
		host, port = h, n
	}

	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return Address{}, ErrEmptyAddress
	}
	if port < 0 || port > 65535 {
		return Address{}, fmt.Errorf("port %d out of range", port)
	}
	return Address{Host: host, Port: port}, nil
}

// String renders host or host:port
func (a Address) String() string {
	if a.Port == 0 {
		return a.Host
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// CacheKey derives the response cache key, e.g. server_play.example.com:25565
func (a Address) CacheKey(prefix string) string {
	return prefix + a.String()
}

// Params are the query parameters understood by the server status API
func (a Address) Params() url.Values {
	v := url.Values{"server": {a.Host}}
	if a.Port != 0 {
		v.Set("port", strconv.Itoa(a.Port))
	}
	return v
}
