package probe

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/znetops/netmon/internal/config"
)

type pingProber struct {
	target   config.Target
	executor CommandExecutor
}

func newPingProber(target config.Target) *pingProber {
	return &pingProber{target: target, executor: systemExecutor{}}
}

// NewPingProberWithExecutor creates a ping prober with a custom executor (for testing).
func NewPingProberWithExecutor(target config.Target, exec CommandExecutor) Prober {
	return &pingProber{target: target, executor: exec}
}

var rttRegex = regexp.MustCompile(`time[=<](\d+\.?\d*)\s*ms`)

func (p *pingProber) Probe(ctx context.Context) Outcome {
	start := time.Now()
	out := Outcome{
		Name:      p.target.Name,
		Host:      p.target.Host,
		Timestamp: start,
	}

	timeoutSec := int(math.Ceil(p.target.Timeout.Duration.Seconds()))
	if timeoutSec < 1 {
		timeoutSec = 1
	}

	var args []string
	if runtime.GOOS == "darwin" {
		args = []string{"-c", "1", "-t", strconv.Itoa(timeoutSec), p.target.Host}
	} else {
		args = []string{"-c", "1", "-W", strconv.Itoa(timeoutSec), p.target.Host}
	}

	stdout, _, err := p.executor.Run(ctx, "ping", args...)
	out.Latency = time.Since(start)

	if err != nil {
		out.Reason = fmt.Sprintf("ping %s: %v", p.target.Host, err)
		return out
	}

	// Exit 0 means the host answered. Prefer the RTT ping reports; if the
	// output can't be parsed, fall back to the wall-clock round trip.
	if matches := rttRegex.FindSubmatch(stdout); matches != nil {
		ms, _ := strconv.ParseFloat(string(matches[1]), 64)
		out.Latency = time.Duration(ms * float64(time.Millisecond))
	}
	out.Success = true
	return out
}
