package cli

import (
	"fmt"
	"time"

	"certiflash/internal/app"
	"certiflash/internal/config"
	"certiflash/internal/logger"
	"github.com/spf13/cobra"
)

// NewSeedCmd stores the catalog document unless one already exists.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Store the initial catalog document if absent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Env)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			catalog, err := builtinCatalog(cfg)
			if err != nil {
				return err
			}
			be, err := openBackend(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer be.close()

			written, err := app.SeedCatalog(cmd.Context(), be.catalogs, catalog, time.Now(), log)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "catalog stored in %s (%d modules, %d questions)\n", be.kind, len(catalog.Modules()), catalog.Len())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "catalog already present in %s\n", be.kind)
			}
			return nil
		},
	}
}
