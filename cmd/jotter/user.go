package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/jotter/internal/store"
)

const passwordEnv = "JOTTER_PASSWORD"

func newUserCmd(a *app) *cobra.Command {
	var password string

	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	userCmd.PersistentFlags().StringVar(&password, "password", "", "password (default $"+passwordEnv+")")

	resolvePassword := func() (string, error) {
		if password != "" {
			return password, nil
		}
		if p := os.Getenv(passwordEnv); p != "" {
			return p, nil
		}
		return "", fmt.Errorf("password required: pass --password or set %s", passwordEnv)
	}

	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword()
			if err != nil {
				return err
			}
			db, backend, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := store.NewUserStore(db, backend).Create(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			a.logger.Info("user created", "username", u.Username, "id", u.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", u.Username, u.ID)
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check <username>",
		Short: "Verify a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword()
			if err != nil {
				return err
			}
			db, backend, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := store.NewUserStore(db, backend).Authenticate(cmd.Context(), args[0], pw)
			if errors.Is(err, store.ErrInvalidCredentials) {
				return err
			}
			if err != nil {
				return fmt.Errorf("check user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (id %d)\n", u.Username, u.ID)
			return nil
		},
	}

	userCmd.AddCommand(addCmd, checkCmd)
	return userCmd
}
