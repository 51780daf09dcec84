package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"Ubermelon/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse the catalog and customer files and report the first malformed record",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// Hash cost does not affect parsing; keep validation fast.
	cfg.BcryptCost = bcrypt.MinCost

	cat, customers, err := loadStores(cfg, zap.NewNop())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d products\n%s: %d customers\n",
		cfg.CatalogPath, cat.Len(), cfg.CustomersPath, customers.Len())
	return nil
}
