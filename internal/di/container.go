// Package di wires the engine together.
package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/adapters/qrdecode"
	"github.com/mailtriage/mailtriage/internal/adapters/whois"
	"github.com/mailtriage/mailtriage/internal/agents"
	"github.com/mailtriage/mailtriage/internal/config"
	"github.com/mailtriage/mailtriage/internal/core"
	"github.com/mailtriage/mailtriage/internal/factory"
	"github.com/mailtriage/mailtriage/internal/heuristics"
	"github.com/mailtriage/mailtriage/internal/logging"
	"github.com/mailtriage/mailtriage/internal/metrics"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(func() *metrics.Metrics {
		return metrics.New(prometheus.DefaultRegisterer)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(m *metrics.Metrics) core.Metrics {
		return m
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewScorerFactory); err != nil {
		return nil, err
	}

	// Register reputation store
	if err := container.Provide(func(f *factory.StoreFactory) (core.ReputationStore, error) {
		return f.CreateReputationStore()
	}); err != nil {
		return nil, err
	}

	// Register content scorer
	if err := container.Provide(func(f *factory.ScorerFactory) (core.ContentScorer, error) {
		return f.CreateContentScorer()
	}); err != nil {
		return nil, err
	}

	// Register shared domain heuristics
	if err := container.Provide(func(cfg *config.Config) *heuristics.Set {
		lc := cfg.GetLink()
		return heuristics.NewSet(
			emptyAsNil(lc.TrustedDomains),
			emptyAsNil(lc.ShortenerHosts),
			emptyAsNil(lc.SuspiciousTLDs),
			emptyAsNil(lc.SuspiciousParams),
		)
	}); err != nil {
		return nil, err
	}

	// Register collaborator clients
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.WhoisClient {
		lc := cfg.GetLink()
		if !lc.WhoisEnabled {
			return nil
		}
		return whois.NewClient(lc.WhoisTimeout, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(logger *zap.Logger) core.ImageDecoder {
		return qrdecode.NewZXingDecoder(logger)
	}); err != nil {
		return nil, err
	}

	// Register agents
	if err := container.Provide(func(
		cfg *config.Config,
		set *heuristics.Set,
		wc core.WhoisClient,
		store core.ReputationStore,
		decoder core.ImageDecoder,
		cs core.ContentScorer,
		logger *zap.Logger,
	) []core.Agent {
		lc := cfg.GetLink()
		return []core.Agent{
			agents.NewContentAgent(cs, logger),
			agents.NewLinkAgent(set, wc, lc.WhoisTimeout, logger),
			agents.NewBehaviorAgent(store, emptyAsNil(lc.TrustedDomains), logger),
			agents.NewHeaderAgent(cfg.GetHeader().MaxHops, logger),
			agents.NewQRAgent(decoder, set, logger),
		}
	}); err != nil {
		return nil, err
	}

	// Register orchestrator
	if err := container.Provide(func(
		agentList []core.Agent,
		cfg *config.Config,
		logger *zap.Logger,
		m core.Metrics,
	) (*core.Orchestrator, error) {
		return core.NewOrchestrator(agentList, cfg.GetOrchestration(), logger, m)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

func emptyAsNil(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	return list
}
