package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/znetops/netmon/internal/config"
)

type tcpProber struct {
	target config.Target
}

func newTCPProber(target config.Target) *tcpProber {
	return &tcpProber{target: target}
}

func (p *tcpProber) Probe(ctx context.Context) Outcome {
	start := time.Now()
	out := Outcome{
		Name:      p.target.Name,
		Host:      p.target.Host,
		Timestamp: start,
	}

	dialer := &net.Dialer{Timeout: p.target.Timeout.Duration}
	conn, err := dialer.DialContext(ctx, "tcp", p.target.Address())
	out.Latency = time.Since(start)
	if err != nil {
		out.Reason = fmt.Sprintf("dial tcp %s: %v", p.target.Address(), err)
		return out
	}
	conn.Close()
	out.Success = true
	return out
}
