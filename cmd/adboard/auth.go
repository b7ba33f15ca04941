// ABOUTME: CLI commands for account operations.
// ABOUTME: Provides login, signup, logout, and whoami subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// passwordEnv lets scripts pass a password without putting it on the command line.
const passwordEnv = "ADBOARD_PASSWORD"

var loginCmd = &cobra.Command{
	Use:   "login <user>",
	Short: "Sign in to the board",
	Long:  "Exchange a user name and password for a token and remember it for later commands.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup <user>",
	Short: "Create an account",
	Long:  "Register a new account on the board. Use --login to sign in right after.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	Long:  "Forget the stored token.",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

// Flags
var (
	authPassword    string
	signupThenLogin bool
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVar(&authPassword, "password", "", "Password (or set "+passwordEnv+")")
	signupCmd.Flags().StringVar(&authPassword, "password", "", "Password (or set "+passwordEnv+")")
	signupCmd.Flags().BoolVar(&signupThenLogin, "login", false, "Sign in after creating the account")
}

func password() (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("no password given: pass --password, set %s, or run 'adboard setup'", passwordEnv)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	pass, err := password()
	if err != nil {
		return err
	}
	return signIn(ctx, cmd, args[0], pass)
}

func runSignup(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	pass, err := password()
	if err != nil {
		return err
	}
	if err := globalRemoteClient.Signup(ctx, args[0], pass); err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Account %s created\n", args[0])

	if !signupThenLogin {
		return nil
	}
	return signIn(ctx, cmd, args[0], pass)
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := globalSession.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if !globalSession.IsAuthenticated() {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", globalSession.UserName(), globalSession.Role())
	if exp := globalSession.ExpiresAt(); !exp.IsZero() {
		fmt.Fprintf(cmd.OutOrStdout(), "Token expires in %s\n", time.Until(exp).Round(time.Minute))
	}
	api := globalConfig.GetAPIURL()
	if !globalConfig.HasRemote() {
		api += " (default)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "API: %s\n", api)
	return nil
}

func signIn(ctx context.Context, cmd *cobra.Command, username, pass string) error {
	res, err := globalRemoteClient.Login(ctx, username, pass)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := globalSession.Set(res); err != nil {
		return err
	}
	globalLogger.Info("signed in", "user", globalSession.UserName(), "role", globalSession.Role())
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", globalSession.UserName())
	return nil
}
