package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/znetops/netmon/internal/status"
)

// snapshotReader is the slice of the state store that the status command
// needs, kept narrow so tests can substitute a fake.
type snapshotReader interface {
	Read() (map[string]status.TargetStatus, error)
}

func executeStatus(cmd *cobra.Command, state snapshotReader) error {
	snapshot, err := state.Read()
	if err != nil {
		return fmt.Errorf("reading status snapshot: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(snapshot) == 0 {
		fmt.Fprintln(out, "no status recorded yet; is `netmon serve` running?")
		return nil
	}

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tHOST\tSTATUS\tLATENCY\tFAILURES\tLAST SEEN")

	for _, name := range names {
		ts := snapshot[name]
		latency := "-"
		if ts.LastLatencyMS != nil {
			latency = fmt.Sprintf("%dms", *ts.LastLatencyMS)
		}
		lastSeen := "never"
		if ts.LastSeen != nil {
			lastSeen = ts.LastSeen.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", ts.Name, ts.Host, ts.Status, latency, ts.Failures, lastSeen)
	}

	return w.Flush()
}
