package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"Ubermelon/internal/catalog"
	"Ubermelon/internal/config"
	"Ubermelon/internal/customer"
	"Ubermelon/internal/session"
	"Ubermelon/internal/shop"
	"Ubermelon/pkg/kit"
)

const service = "shop"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the catalog and customers, then serve the shop API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ttl, _ := cfg.SessionTTL()

	log := kit.NewLogger(service, cfg.Logging.Level)
	defer func() { _ = log.Sync() }()

	cat, customers, err := loadStores(cfg, log)
	if err != nil {
		log.Error("load data failed", zap.Error(err))
		return err
	}

	s := &shop.Server{
		Log:       log,
		Catalog:   cat,
		Customers: customers,
		Sessions: &session.Store{
			Codec:      session.NewCodec(cfg.Session.Secret, ttl),
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.SecureCookie,
			Log:        log,
		},
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := shop.NewHandler(s, shop.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})

	if err := kit.RunHTTPServer(cmd.Context(), cfg.Addr(), h, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
		return err
	}
	return nil
}

// loadStores is the one-time initialization barrier: nothing serves until both
// stores are fully built.
func loadStores(cfg *config.Config, log *zap.Logger) (*catalog.Store, *customer.Store, error) {
	cat, err := catalog.LoadFile(cfg.CatalogPath, log)
	if err != nil {
		return nil, nil, err
	}
	customers, err := customer.LoadFile(cfg.CustomersPath, log, customer.WithBcryptCost(cfg.BcryptCost))
	if err != nil {
		return nil, nil, err
	}
	return cat, customers, nil
}
