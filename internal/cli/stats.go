package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"certiflash/internal/app"
	"certiflash/internal/config"
	"certiflash/internal/domain"
	"certiflash/internal/identity"
	"certiflash/internal/logger"
	"github.com/spf13/cobra"
)

// NewStatsCmd prints a user's progress summary as JSON. Without --user the
// subject of the initial auth token is used.
func NewStatsCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a user's progress summary",
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

			if userID == "" {
				if cfg.Auth.InitialToken == "" {
					return fmt.Errorf("--user is required when %s is not set", config.EnvAuthToken)
				}
				id, err := identity.NewResolver(cfg.Auth.Secret).Resolve(cfg.Auth.InitialToken)
				if err != nil {
					return fmt.Errorf("initial auth token: %w", err)
				}
				userID = id.UserID
			}

			be, err := openBackend(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer be.close()

			ledger, err := be.ledgers.LoadLedger(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("user %s: %w", userID, err)
			}
			catalog, err := be.catalogs.LoadCatalog(cmd.Context())
			if errors.Is(err, domain.ErrCatalogNotFound) {
				catalog, err = builtinCatalog(cfg)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(app.Summarize(catalog, ledger))
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id whose ledger to summarize (defaults to the initial token's subject)")
	return cmd
}
