package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dataset is the complete output of one run
type Dataset struct {
	Params Params

	Customers    []*model.Customer
	Merchants    []*model.Merchant
	ATOCustomers []int64

	AuthLogs  []model.AuthEvent
	Payments  []model.Transaction
	Disputes  []model.Dispute
	KYCEvents []model.KYCEvent

	// CompromisedTimes maps each takeover target to the attacker's login time
	CompromisedTimes map[int64]time.Time
	// ScenarioTxIDs are the fraudulent transactions injected after takeovers
	ScenarioTxIDs []int64
	// IdentityClusters groups customers presenting the same identity document
	IdentityClusters [][]int64
}

// Records returns the rows of one collection in dataset order
func (d *Dataset) Records(c model.Collection) []model.Record {
	var out []model.Record
	switch c {
	case model.CollectionPayments:
		out = make([]model.Record, 0, len(d.Payments))
		for _, r := range d.Payments {
			out = append(out, r)
		}
	case model.CollectionAuthLogs:
		out = make([]model.Record, 0, len(d.AuthLogs))
		for _, r := range d.AuthLogs {
			out = append(out, r)
		}
	case model.CollectionDisputes:
		out = make([]model.Record, 0, len(d.Disputes))
		for _, r := range d.Disputes {
			out = append(out, r)
		}
	case model.CollectionKYCEvents:
		out = make([]model.Record, 0, len(d.KYCEvents))
		for _, r := range d.KYCEvents {
			out = append(out, r)
		}
	}
	return out
}

// Counts returns the number of rows per collection
func (d *Dataset) Counts() map[model.Collection]int {
	return map[model.Collection]int{
		model.CollectionPayments:  len(d.Payments),
		model.CollectionAuthLogs:  len(d.AuthLogs),
		model.CollectionDisputes:  len(d.Disputes),
		model.CollectionKYCEvents: len(d.KYCEvents),
	}
}

// Option configures a Generator
type Option func(*Generator)

// WithMetrics records generation metrics on c
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Generator) {
		g.metrics = c
	}
}

// Generator produces a Dataset from validated parameters
type Generator struct {
	params  Params
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New validates params and creates a generator
func New(params Params, logger *zap.Logger, opts ...Option) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{
		params: params,
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Params returns the parameters of the generator
func (g *Generator) Params() Params {
	return g.params
}

// Run executes population, then authentication and KYC concurrently, then
// payments and disputes. Each component draws from its own stream, so the
// result depends only on the parameters.
func (g *Generator) Run(ctx context.Context) (*Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "generate",
		attribute.Int64("seed", g.params.Seed),
		attribute.Int("customers", g.params.Customers),
		attribute.Int("merchants", g.params.Merchants),
	)
	defer span.End()

	started := time.Now()
	d, err := g.run(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		g.countRun("failure")
		return nil, err
	}
	g.countRun("success")

	g.logger.Info("Generation complete",
		zap.Int("payments", len(d.Payments)),
		zap.Int("auth_logs", len(d.AuthLogs)),
		zap.Int("disputes", len(d.Disputes)),
		zap.Int("kyc_events", len(d.KYCEvents)),
		zap.Int("ato_customers", len(d.ATOCustomers)),
		zap.Duration("duration", time.Since(started)))

	return d, nil
}

func (g *Generator) run(ctx context.Context) (*Dataset, error) {
	p := g.params
	w := p.Window()
	d := &Dataset{Params: p}

	var pop *Population
	g.component(ctx, "population", streamPopulation, func(s *Stream) {
		pop = BuildPopulation(p, s)
	})
	d.Customers, d.Merchants, d.ATOCustomers = pop.Customers, pop.Merchants, pop.ATOCustomers
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var auth *AuthResult
	var kyc *KYCResult
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		g.component(gctx, "auth", streamAuth, func(s *Stream) {
			auth = SynthesizeAuth(pop, w, s)
		})
		return gctx.Err()
	})
	group.Go(func() error {
		g.component(gctx, "kyc", streamKYC, func(s *Stream) {
			kyc = SynthesizeKYC(pop, p, w, s)
		})
		return gctx.Err()
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	d.AuthLogs, d.CompromisedTimes = auth.Events, auth.CompromisedTimes
	d.KYCEvents, d.IdentityClusters = kyc.Events, kyc.Clusters

	var payments *PaymentResult
	g.component(ctx, "payments", streamPayments, func(s *Stream) {
		payments = SynthesizePayments(pop, auth.CompromisedTimes, w, s)
	})
	d.Payments, d.ScenarioTxIDs = payments.Transactions, payments.ScenarioTxIDs
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var disputeErr error
	g.component(ctx, "disputes", streamDisputes, func(s *Stream) {
		d.Disputes, disputeErr = SynthesizeDisputes(d.Payments, d.ScenarioTxIDs, pop, w, s)
	})
	if disputeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvariantViolation, disputeErr)
	}

	if err := CheckInvariants(d); err != nil {
		if g.metrics != nil {
			g.metrics.InvariantFailures.Inc()
		}
		return nil, err
	}

	g.observeDataset(d)
	return d, nil
}

// component runs one synthesizer on its own stream inside a span
func (g *Generator) component(ctx context.Context, name string, offset int64, fn func(*Stream)) {
	seed := g.params.Seed + offset
	_, span := tracing.TraceComponent(ctx, name, seed)
	defer span.End()

	started := time.Now()
	fn(NewStream(seed))

	if g.metrics != nil {
		g.metrics.ObserveComponent(name, started)
	}
	g.logger.Debug("Component finished",
		zap.String("component", name),
		zap.Int64("seed", seed),
		zap.Duration("duration", time.Since(started)))
}

func (g *Generator) observeDataset(d *Dataset) {
	if g.metrics == nil {
		return
	}
	for c, n := range d.Counts() {
		g.metrics.RecordsGenerated.WithLabelValues(string(c)).Add(float64(n))
	}
	g.metrics.ScenarioEntities.WithLabelValues("account_takeover").Set(float64(len(d.ATOCustomers)))
	g.metrics.ScenarioEntities.WithLabelValues("synthetic_identity").Set(float64(len(d.IdentityClusters)))

	friendly := 0
	for _, dispute := range d.Disputes {
		if dispute.ReasonCode == model.ReasonFriendlyFraud {
			friendly++
		}
	}
	g.metrics.ScenarioEntities.WithLabelValues("friendly_fraud").Set(float64(friendly))
}

func (g *Generator) countRun(result string) {
	if g.metrics != nil {
		g.metrics.GenerationRuns.WithLabelValues(result).Inc()
	}
}
