// ABOUTME: Cobra command that runs the in-memory board API for local development.
// ABOUTME: Creates users from config, optionally seeds sample listings, and serves until interrupted.
package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/2389-research/adboard/internal/config"
	"github.com/2389-research/adboard/internal/devserver"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local board API",
	Long: `Run an in-memory board API that speaks the same REST contract as the
real one. Data is lost on exit. Users come from devserver.users in config;
with none configured an admin/admin account is created.`,
	Args: cobra.NoArgs,
	RunE: runDevServer,
}

// Flags
var (
	devAddr string
	devSeed bool
)

func init() {
	rootCmd.AddCommand(devserverCmd)
	devserverCmd.Flags().StringVar(&devAddr, "addr", "", "Listen address (default from config)")
	devserverCmd.Flags().BoolVar(&devSeed, "seed", false, "Add sample listings")
}

func runDevServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg := globalConfig.DevServer
	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString()
		globalLogger.Warn("no devserver.secret configured, tokens will not survive a restart")
	}

	srv, err := devserver.New(devserver.Options{
		Secret:         secret,
		TokenTTL:       globalConfig.GetTokenTTL(),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         globalLogger,
	})
	if err != nil {
		return err
	}

	users := cfg.Users
	if len(users) == 0 {
		globalLogger.Warn("no devserver.users configured, creating admin/admin")
		users = append(users, config.UserConfig{Name: "admin", Password: "admin", Role: devserver.RoleAdmin})
	}
	for _, u := range users {
		if err := srv.Users().Add(u.Name, u.Password, u.Role); err != nil {
			return fmt.Errorf("user %q: %w", u.Name, err)
		}
	}

	if devSeed || cfg.Seed {
		srv.Seed(users[0].Name)
		globalLogger.Info("seeded sample listings", "owner", users[0].Name, "count", srv.Store().Len())
	}

	addr := globalConfig.GetDevAddr()
	if devAddr != "" {
		addr = devAddr
	}
	return srv.ListenAndServe(ctx, addr)
}
