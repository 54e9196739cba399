package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ping/ping"

	"github.com/znetops/netmon/internal/config"
)

// icmpProber sends echo requests in-process instead of shelling out to the
// system ping binary. It uses unprivileged UDP sockets, so it works without
// CAP_NET_RAW on Linux (net.ipv4.ping_group_range must allow it).
type icmpProber struct {
	target config.Target
}

func newICMPProber(target config.Target) *icmpProber {
	return &icmpProber{target: target}
}

func (p *icmpProber) Probe(ctx context.Context) Outcome {
	start := time.Now()
	out := Outcome{
		Name:      p.target.Name,
		Host:      p.target.Host,
		Timestamp: start,
	}

	pinger, err := ping.NewPinger(p.target.Host)
	if err != nil {
		// DNS resolution failure is an expected outcome, not an error.
		out.Latency = time.Since(start)
		out.Reason = fmt.Sprintf("resolving %s: %v", p.target.Host, err)
		return out
	}
	pinger.Count = 1
	pinger.Timeout = p.target.Timeout.Duration
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < pinger.Timeout {
			pinger.Timeout = remaining
		}
	}
	pinger.SetPrivileged(false)

	if err := pinger.Run(); err != nil {
		out.Latency = time.Since(start)
		out.Reason = fmt.Sprintf("icmp %s: %v", p.target.Host, err)
		return out
	}

	stats := pinger.Statistics()
	out.Latency = time.Since(start)
	if stats.PacketsRecv == 0 {
		out.Reason = "no echo reply before timeout"
		return out
	}

	out.Latency = stats.AvgRtt
	out.Success = true
	return out
}
