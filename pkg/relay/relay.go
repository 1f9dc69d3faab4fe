// Package relay handles flush cycles: it transforms each snapshot, hands the datapoints to
// the backend and keeps the self-stats.
package relay

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tilinna/clock"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/pkg/healthcheck"
	"github.com/atlassian/kairosrelay/pkg/selfstats"
	"github.com/atlassian/kairosrelay/pkg/transform"
	"github.com/atlassian/kairosrelay/pkg/util"
)

// Relay connects the transformer to a backend.
type Relay struct {
	logger      logrus.FieldLogger
	backend     kairosrelay.Backend
	transformer *transform.Transformer
	stats       *selfstats.Reporter
}

// New creates a Relay.
func New(logger logrus.FieldLogger, backend kairosrelay.Backend, transformer *transform.Transformer, stats *selfstats.Reporter) *Relay {
	return &Relay{
		logger:      logger,
		backend:     backend,
		transformer: transformer,
		stats:       stats,
	}
}

// NewFromViper creates a Relay with the transformer configured by the kairosdb sub-tree of v.
func NewFromViper(v *viper.Viper, logger logrus.FieldLogger, backend kairosrelay.Backend) *Relay {
	transformer := transform.NewFromViper(util.GetSubViper(v, "kairosdb"))
	fields := logrus.Fields(transformer.Namespaces().Fields())
	fields["tags"] = transformer.Tags().String()
	logger.WithFields(fields).Info("created relay")
	return New(logger, backend, transformer, selfstats.NewReporter())
}

// Stats returns the self-stats reporter.
func (r *Relay) Stats() *selfstats.Reporter {
	return r.stats
}

// Transformer returns the transformer used for snapshots.
func (r *Relay) Transformer() *transform.Transformer {
	return r.transformer
}

// Run runs the backend when it needs to.
func (r *Relay) Run(ctx context.Context) {
	if runner, ok := r.backend.(kairosrelay.Runner); ok {
		runner.Run(ctx)
	}
}

// OnFlush delivers one flush cycle. Transport failures are logged and never returned, the
// call does not wait for the network. Calls must not overlap.
func (r *Relay) OnFlush(ctx context.Context, ts time.Time, snap *kairosrelay.Snapshot) {
	start := clock.FromContext(ctx).Now()
	flush := r.backend.NewFlush(ctx, ts)
	res := r.transformer.Transform(ctx, ts, snap, r.stats.Record(), flush.Add)
	flush.CloseAsync(r.sendCallback(ts, res.NumStats))
	r.stats.Flushed(start, res.StatsTime)
}

// Forward delivers datapoints which were built outside of a snapshot.
func (r *Relay) Forward(ctx context.Context, ts time.Time, dps []*kairosrelay.Datapoint) {
	if len(dps) == 0 {
		return
	}
	flush := r.backend.NewFlush(ctx, ts)
	for _, dp := range dps {
		flush.Add(dp)
	}
	flush.CloseAsync(r.sendCallback(ts, len(dps)))
}

// Status writes the self-stats through write.
func (r *Relay) Status(write kairosrelay.StatusWriter) {
	r.stats.Status(write)
}

// HealthChecks reports the relay ready to accept flushes.
func (r *Relay) HealthChecks() []healthcheck.HealthcheckFunc {
	return []healthcheck.HealthcheckFunc{
		func() (string, healthcheck.HealthyStatus) {
			return "relay using " + r.backend.Name() + " backend", healthcheck.Healthy
		},
	}
}

func (r *Relay) sendCallback(ts time.Time, count int) kairosrelay.SendCallback {
	return func(errs []error) {
		for _, err := range errs {
			if err != nil {
				r.logger.WithError(err).WithFields(logrus.Fields{
					"backend":   r.backend.Name(),
					"timestamp": ts.Unix(),
					"count":     count,
				}).Warn("failed to send datapoints")
			}
		}
	}
}
