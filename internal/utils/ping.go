package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// AuthorizerPingTimeout bounds the Authorizer reachability check
const AuthorizerPingTimeout = 1500 * time.Millisecond

// defaultPorts by URL scheme
var defaultPorts = map[string]string{
	"https":      "443",
	"http":       "80",
	"mysql":      "3306",
	"postgres":   "5432",
	"postgresql": "5432",
	"sqlserver":  "1433",
}

// HostPort resolves the dial address of a service URL
func HostPort(serviceURL string) (string, error) {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		return "", fmt.Errorf("invalid URL: no host in %q", serviceURL)
	}

	port := parsedURL.Port()
	if port == "" {
		port = defaultPorts[parsedURL.Scheme]
		if port == "" {
			port = "80"
		}
	}

	return net.JoinHostPort(host, port), nil
}

// PingService checks if a service is reachable at the given URL
func PingService(ctx context.Context, serviceURL string, timeout time.Duration) error {
	address, err := HostPort(serviceURL)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	return nil
}

// PingAuthorizer checks if the Authorizer service is reachable
func PingAuthorizer(authzURL string) error {
	return PingService(context.Background(), authzURL, AuthorizerPingTimeout)
}
