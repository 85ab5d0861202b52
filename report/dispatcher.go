package report

import (
	"context"
	"log/slog"
	"strings"
)

// Sink receives findings during dispatch. Configuration is validated in the
// sink constructor, before any item is processed.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, f *Finding) error
}

// Prefix applied to the joined detector list of a merged finding, to signal
// multi-detector agreement.
const CollaboratedPrefix = "collaborated:"

// Dispatcher buffers findings during a monitoring cycle and fans them out to
// every registered sink on Flush. Sinks are called in registration order and
// a failing sink never blocks delivery to the others.
type Dispatcher struct {
	logger *slog.Logger
	sinks  []Sink
	// when set, findings sharing a subject are merged into one record before
	// fan-out (disabled by default; see NewDispatcher)
	unify   bool
	pending []*Finding
}

func NewDispatcher(logger *slog.Logger, unify bool, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		logger: logger.With("system", "dispatcher"),
		sinks:  sinks,
		unify:  unify,
	}
}

// Submit buffers a finding for the current cycle.
func (d *Dispatcher) Submit(f *Finding) {
	d.pending = append(d.pending, f)
}

func (d *Dispatcher) Pending() int {
	return len(d.pending)
}

// Flush delivers every buffered finding to every sink, exactly once per
// finding, then clears the buffer. When unification is enabled the merge
// pass runs once, before fan-out.
func (d *Dispatcher) Flush(ctx context.Context) {
	batch := d.pending
	d.pending = nil
	if d.unify {
		batch = unifyFindings(batch)
	}
	for _, f := range batch {
		for _, s := range d.sinks {
			if err := s.Deliver(ctx, f); err != nil {
				sinkErrorCount.WithLabelValues(s.Name()).Inc()
				d.logger.Error("sink delivery failed", "sink", s.Name(), "subject", f.Subject(), "err", err)
				continue
			}
			sinkDeliveredCount.WithLabelValues(s.Name()).Inc()
		}
	}
}

// unifyFindings merges findings sharing the same subject: severity becomes
// the maximum, descriptions are concatenated in arrival order, detector ids
// are comma-joined. Source findings are never mutated.
func unifyFindings(in []*Finding) []*Finding {
	var order []string
	bySubject := make(map[string]*Finding)

	for _, f := range in {
		subject := f.Subject()
		base, ok := bySubject[subject]
		if !ok {
			bySubject[subject] = f.clone()
			order = append(order, subject)
			continue
		}
		if f.Severity > base.Severity {
			base.Severity = f.Severity
		}
		base.Description = base.Description + "\n" + f.Description
		base.Detector = base.Detector + ", " + f.Detector
		for k, v := range f.Meta {
			base.WithMeta(k, v)
		}
	}

	out := make([]*Finding, 0, len(order))
	for _, subject := range order {
		f := bySubject[subject]
		if strings.Contains(f.Detector, ",") {
			f.Detector = CollaboratedPrefix + f.Detector
		}
		out = append(out, f)
	}
	return out
}
