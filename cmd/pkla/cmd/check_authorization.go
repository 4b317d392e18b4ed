package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/adapter/outbound/nss"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/config"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/authorization"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/identity"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/service"
)

var checkPaths string

var checkAuthorizationCmd = &cobra.Command{
	Use:   "check-authorization USER LOCAL ACTIVE ACTION",
	Short: "Evaluate the implicit authorization for a user and action",
	Long: `Evaluate the implicit authorization verdict for USER attempting ACTION.

LOCAL and ACTIVE must be "true" or "false" and describe the subject's
session. The verdict (one of no, auth_self, auth_admin, auth_self_keep,
auth_admin_keep, yes) is printed on stdout; nothing is printed when no
authorization entry matched.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if checkPaths != "" {
			cfg.StorePaths = config.SplitPaths(checkPaths)
		}

		local, err := parseBoolArg("LOCAL", args[1])
		if err != nil {
			return err
		}
		active, err := parseBoolArg("ACTIVE", args[2])
		if err != nil {
			return err
		}

		dir := nss.NewDirectory()
		user, err := lookupUser(dir, args[0])
		if err != nil {
			return err
		}

		acfg := service.AuthorityConfig{
			StorePaths: cfg.StorePaths,
			ConfigDir:  cfg.ConfigDir,
		}
		if cfg.Cache.Enabled {
			acfg.CacheSize = cfg.Cache.Size
			acfg.CacheTTL = cfg.Cache.TTL
		}
		authority := service.NewLocalAuthority(acfg, dir, nil, logger)
		defer authority.Close()

		subject := authorization.Subject{User: user, IsLocal: local, IsActive: active}
		verdict := authority.CheckAuthorization(subject, args[3], nil, authorization.Unknown)
		if verdict != authorization.Unknown {
			fmt.Fprintln(cmd.OutOrStdout(), verdict.String())
		}
		return nil
	},
}

func init() {
	checkAuthorizationCmd.Flags().StringVarP(&checkPaths, "paths", "p", "",
		"authorization store search roots, ;-separated (overrides configuration)")
	rootCmd.AddCommand(checkAuthorizationCmd)
}

// parseBoolArg accepts exactly "true" or "false"; strconv.ParseBool is too
// permissive for a security tool's arguments.
func parseBoolArg(name, s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s value %q (expected \"true\" or \"false\")", name, s)
	}
}

// lookupUser resolves a user name or numeric uid to a user identity.
func lookupUser(dir identity.Directory, key string) (identity.Identity, error) {
	if uid, err := strconv.Atoi(key); err == nil {
		u, lerr := dir.LookupUserID(uid)
		if lerr != nil {
			return identity.User(uid, ""), nil
		}
		return identity.User(u.UID, u.Name), nil
	}
	u, err := dir.LookupUserName(key)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("unknown user %q: %w", key, err)
	}
	return identity.User(u.UID, u.Name), nil
}
