package main

import (
	"fmt"
	"os"

	"github.com/parksafe/parksafe/internal/client"
	"github.com/spf13/cobra"
)

func newLoginCmd(g *globals) *cobra.Command {
	var (
		email    string
		password string
		register bool
		name     string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Long:  "Signs in with email and password. The password can also be passed in PARKSAFE_PASSWORD.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if email == "" {
				email = cfg.Email
			}
			if password == "" {
				password = os.Getenv("PARKSAFE_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or PARKSAFE_PASSWORD) are required")
			}

			c := client.New(cfg.Server)
			ctx := cmd.Context()
			if register {
				_, err = c.Register(ctx, email, password, name)
			} else {
				_, err = c.Login(ctx, email, password)
			}
			if err != nil {
				return err
			}

			tokens, err := openTokens()
			if err != nil {
				return err
			}
			if err := tokens.Set(cfg.Server, c.Token()); err != nil {
				return err
			}

			cfg.Email = email
			if err := saveConfig(g.configPath, cfg); err != nil {
				return err
			}

			profile, err := c.Profile(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in to %s as %s\n", cfg.Server, displayName(*profile))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (defaults to the last one used)")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&register, "register", false, "create the account first")
	cmd.Flags().StringVar(&name, "name", "", "full name, with --register")
	return cmd
}

func newLogoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := g.signedIn()
			if err != nil {
				return err
			}
			logoutErr := c.Logout(cmd.Context())

			tokens, err := openTokens()
			if err != nil {
				return err
			}
			if err := tokens.Delete(cfg.Server); err != nil {
				return err
			}
			if logoutErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server sign-out failed: %v\n", logoutErr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
