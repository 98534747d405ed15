package cmd

import (
	"fmt"

	"github.com/jon4hz/learnlog/internal/database"
	"github.com/jon4hz/learnlog/internal/validate"
	"github.com/spf13/cobra"
)

var createAdminFlags struct {
	Username string
	Email    string
	Password string
}

var createAdminCmd = &cobra.Command{
	Use:     "create-admin",
	Short:   "Create an admin account",
	Long:    `Create an admin account. Nothing happens if the username or email is already taken.`,
	Example: `learnlog create-admin --username admin --email admin@example.com --password changeme`,
	RunE: func(cmd *cobra.Command, args []string) error {
		form := validate.RegistrationForm{
			Username:        createAdminFlags.Username,
			Email:           createAdminFlags.Email,
			Password:        createAdminFlags.Password,
			ConfirmPassword: createAdminFlags.Password,
		}
		if errs := validate.Registration(&form); len(errs) > 0 {
			return errs
		}

		cfg := loadConfig()

		db, err := database.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close() //nolint: errcheck

		created, err := db.EnsureAdmin(cmd.Context(), database.NewUser{
			Username: form.Username,
			Email:    form.Email,
			Password: form.Password,
		})
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}

		if created {
			fmt.Printf("Admin %q created.\n", form.Username)
		} else {
			fmt.Printf("An account with username %q or email %q already exists.\n", form.Username, form.Email)
		}
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&createAdminFlags.Username, "username", "", "Username of the admin")
	createAdminCmd.Flags().StringVar(&createAdminFlags.Email, "email", "", "Email of the admin")
	createAdminCmd.Flags().StringVar(&createAdminFlags.Password, "password", "", "Password of the admin")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createAdminCmd)
}
