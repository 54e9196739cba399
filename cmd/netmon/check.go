package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/znetops/netmon/internal/config"
	"github.com/znetops/netmon/internal/probe"
)

// executeCheck probes every configured target once, concurrently, and
// prints a table of the results. It returns an error if any target failed
// so `netmon check` is usable as a scriptable health gate.
func executeCheck(cmd *cobra.Command, cfg *config.Config) error {
	outcomes := make([]probe.Outcome, len(cfg.Targets))

	var wg sync.WaitGroup
	for i, tgt := range cfg.Targets {
		prober, err := probe.New(tgt)
		if err != nil {
			return fmt.Errorf("building prober for %s: %w", tgt.Name, err)
		}

		wg.Add(1)
		go func(i int, tgt config.Target, prober probe.Prober) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), tgt.Timeout.Duration)
			defer cancel()
			outcomes[i] = prober.Probe(ctx)
		}(i, tgt, prober)
	}
	wg.Wait()

	printOutcomes(cmd.OutOrStdout(), cfg.Targets, outcomes)

	for _, out := range outcomes {
		if !out.Success {
			return fmt.Errorf("one or more targets are unreachable")
		}
	}
	return nil
}

func printOutcomes(out io.Writer, targets []config.Target, outcomes []probe.Outcome) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tHOST\tPROBE\tRESULT\tLATENCY\tREASON")

	for i, tgt := range targets {
		o := outcomes[i]
		result := "OK"
		latency := fmt.Sprintf("%dms", o.Latency.Milliseconds())
		reason := "-"
		if !o.Success {
			result = "FAIL"
			latency = "-"
			reason = o.Reason
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", tgt.Name, tgt.Host, tgt.Probe, result, latency, reason)
	}

	w.Flush()
}
