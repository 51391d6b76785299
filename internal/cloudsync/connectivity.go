package cloudsync

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// DialProbe considers the network online when a TCP connection to Address
// succeeds within Timeout.
type DialProbe struct {
	Address string
	Timeout time.Duration
}

func (p DialProbe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Switch is a Connectivity whose state is set by the caller.
type Switch struct {
	online atomic.Bool
}

func NewSwitch(online bool) *Switch {
	s := &Switch{}
	s.online.Store(online)
	return s
}

func (s *Switch) Set(online bool) { s.online.Store(online) }

func (s *Switch) Online(context.Context) bool { return s.online.Load() }
