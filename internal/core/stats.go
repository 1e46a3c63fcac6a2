package core

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/giantswarm/procpool/internal/statsdb"
)

// InstanceStats counts lifecycle events of one instance name.
type InstanceStats struct {
	Name       string
	Started    int
	LRUStopped int
}

// Stats is a snapshot of the pool counters.
type Stats struct {
	MaxRunning int
	Instances  []InstanceStats // ordered by name
}

// TotalStarts sums Started over all instances.
func (s Stats) TotalStarts() int {
	total := 0
	for _, st := range s.Instances {
		total += st.Started
	}
	return total
}

// TotalLRUStops sums LRUStopped over all instances.
func (s Stats) TotalLRUStops() int {
	total := 0
	for _, st := range s.Instances {
		total += st.LRUStopped
	}
	return total
}

// ExtraLRUStops counts eviction stops beyond the first per instance. The
// first stop of an instance is expected once it goes out of use; repeated
// ones mean it was started again and evicted again, so the kept window is
// too small for the workload.
func (s Stats) ExtraLRUStops() int {
	total := 0
	for _, st := range s.Instances {
		if extra := st.LRUStopped - 1; extra > 0 {
			total += extra
		}
	}
	return total
}

// stat returns the counters for name, creating them on first use.
// Called with mu held.
func (p *Pool) stat(name string) *InstanceStats {
	st, ok := p.stats[name]
	if !ok {
		st = &InstanceStats{Name: name}
		p.stats[name] = st
	}
	return st
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := Stats{MaxRunning: p.cfg.MaxRunning, Instances: make([]InstanceStats, 0, len(p.stats))}
	for _, st := range p.stats {
		out.Instances = append(out.Instances, *st)
	}
	slices.SortFunc(out.Instances, func(a, b InstanceStats) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// ReportStats writes a human readable summary of the counters to w and
// returns the snapshot it printed.
func (p *Pool) ReportStats(w io.Writer) (Stats, error) {
	s := p.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "\nProcess pool stats (max running: %d):\n", s.MaxRunning)
	for _, st := range s.Instances {
		fmt.Fprintf(&b, "  %s: started: %d lru_stopped: %d\n", st.Name, st.Started, st.LRUStopped)
	}
	fmt.Fprintf(&b, "Total instances: %d\n", len(s.Instances))
	fmt.Fprintf(&b, "Total starts: %d\n", s.TotalStarts())
	fmt.Fprintf(&b, "Total LRU stops: %d\n", s.TotalLRUStops())
	fmt.Fprintf(&b, "Total extra LRU stops: %d\n", s.ExtraLRUStops())

	if _, err := io.WriteString(w, b.String()); err != nil {
		return s, fmt.Errorf("write stats: %w", err)
	}
	return s, nil
}

// SaveStats appends the current counters to the configured stats database
// under this pool's run ID. It is a no-op when no database is configured.
func (p *Pool) SaveStats(ctx context.Context) error {
	if p.cfg.StatsDB == "" {
		return nil
	}
	s := p.Stats()

	db, err := statsdb.Open(ctx, p.cfg.StatsDB, p.log)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	defer db.Close()

	rows := make([]statsdb.Row, 0, len(s.Instances))
	for _, st := range s.Instances {
		rows = append(rows, statsdb.Row{Name: st.Name, Started: st.Started, LRUStopped: st.LRUStopped})
	}
	run := statsdb.Run{ID: p.runID, RecordedAt: time.Now(), MaxRunning: s.MaxRunning, Rows: rows}
	if err := db.Record(ctx, run); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}
