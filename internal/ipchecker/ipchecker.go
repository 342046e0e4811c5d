// Package ipchecker validates that a request originates from a trusted
// subnet. The stats endpoint uses it to stay unreachable from the outside.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker extracts a client's IP address from an HTTP request and
// validates whether it belongs to a trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates an IPChecker for the given subnet in CIDR notation
// (e.g., "192.168.1.0/24"). An empty string yields a disabled checker:
// IsTrustedSubnetEmpty reports true and Check denies everything.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{trustedSubnet: nil}, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("error while `net.ParseCIDR()` calling: %w", err)
	}

	return &IPChecker{trustedSubnet: allowedNet}, nil
}

// Check reports whether the request's client IP belongs to the trusted
// subnet. The IP is taken from "X-Real-IP", then "X-Forwarded-For", then
// the request's RemoteAddr.
func (checker *IPChecker) Check(request *http.Request) (bool, error) {
	clientIP, err := checker.getClientIP(request)
	if err != nil {
		return false, err
	}

	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP), nil
}

// IsTrustedSubnetEmpty returns true if the IPChecker was initialized
// without a trusted subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

func (checker *IPChecker) getClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
		return ip, nil
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		return net.ParseIP(first), nil
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("error while `net.SplitHostPort()` calling: %w", err)
	}

	return net.ParseIP(host), nil
}
