package main

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/delivery"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/generator"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/tracing"
)

func paramsFromConfig(g config.GeneratorConfig) (generator.Params, error) {
	start, end, err := g.Window()
	if err != nil {
		return generator.Params{}, fmt.Errorf("invalid generator window: %w", err)
	}

	return generator.Params{
		Customers:           g.Customers,
		Merchants:           g.Merchants,
		MultipleDeviceRatio: g.MultipleDeviceRatio,
		ATORatio:            g.ATORatio,
		TwoFactorRatio:      g.TwoFactorRatio,
		ATOCustomers:        append([]int64(nil), g.ATOCustomers...),
		Start:               start,
		End:                 end,
		DuplicatePairs:      g.DuplicatePairs,
		DuplicateTriples:    g.DuplicateTriples,
		KYCFailCount:        g.KYCFailCount,
		Seed:                g.Seed,
	}, nil
}

func deliveryFromConfig(d config.DeliveryConfig) (delivery.Config, error) {
	cfg := delivery.Config{
		BatchSize:     d.BatchSize,
		RatePerSecond: d.RatePerSecond,
		Burst:         d.Burst,
	}
	for _, name := range d.Collections {
		c, err := model.ParseCollection(name)
		if err != nil {
			return delivery.Config{}, err
		}
		cfg.Collections = append(cfg.Collections, c)
	}
	return cfg, nil
}

func tracingFromConfig(cfg *config.Config) *tracing.Config {
	return &tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Application.Environment,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
	}
}
