package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/adapter/outbound/nss"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/service"
)

var (
	adminConfigPath string
	adminExpand     bool
)

var adminIdentitiesCmd = &cobra.Command{
	Use:   "admin-identities",
	Short: "Print the configured administrator identities",
	Long: `Print the administrator identities configured in the localauthority
configuration fragments, one per line, in configuration order.

By default the configured specifiers are printed as-is (including group
and netgroup specifiers). With --expand, group and netgroup specifiers
are expanded into the concrete member users, root is excluded from
expansions, and an empty result falls back to unix-user:root.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if adminConfigPath != "" {
			cfg.ConfigDir = adminConfigPath
		}

		dir := nss.NewDirectory()
		authority := service.NewLocalAuthority(service.AuthorityConfig{
			StorePaths: cfg.StorePaths,
			ConfigDir:  cfg.ConfigDir,
		}, dir, nil, logger)
		defer authority.Close()

		ids := authority.RawAdminIdentities()
		if adminExpand {
			ids = authority.AdminIdentities()
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
		}
		return nil
	},
}

func init() {
	adminIdentitiesCmd.Flags().StringVarP(&adminConfigPath, "config-path", "c", "",
		"localauthority configuration fragment directory (overrides configuration)")
	adminIdentitiesCmd.Flags().BoolVar(&adminExpand, "expand", false,
		"expand group and netgroup specifiers into member users")
	rootCmd.AddCommand(adminIdentitiesCmd)
}
