package scheduler

import (
	"context"
	"net"
	"time"
)

// TCPProbe treats the provider as reachable when a TCP connection to Address
// can be opened within Timeout.
type TCPProbe struct {
	Address string
	Timeout time.Duration
}

// NewTCPProbe probes host, on port 443 unless host carries its own port.
func NewTCPProbe(host string, timeout time.Duration) *TCPProbe {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "443")
	}
	return &TCPProbe{Address: addr, Timeout: timeout}
}

func (p *TCPProbe) Online(ctx context.Context) bool {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
