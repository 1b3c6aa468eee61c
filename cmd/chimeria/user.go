package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nao1215/chimeria/internal/store"
	"github.com/spf13/cobra"
)

// トークンの発行は別システムが担うため、ここでは検証対象のユーザーを登録するだけ。
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users known to the gateway",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a user so that tokens issued for it are accepted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetString("id")
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		if email == "" {
			return errors.New("--email は必須です")
		}
		if id == "" {
			id = uuid.New().String()
		}

		st, err := store.Open(cmd.Context(), cfg.DatabasePath, store.WithLogger(logger))
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.CreateUser(cmd.Context(), store.User{ID: id, Email: email, Name: name}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("id", "", "user ID (random UUID when empty)")
	userCreateCmd.Flags().String("email", "", "email address")
	userCreateCmd.Flags().String("name", "", "display name")
	userCmd.AddCommand(userCreateCmd)
}
