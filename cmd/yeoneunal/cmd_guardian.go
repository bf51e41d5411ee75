package main

import (
	"fmt"

	"yeoneunal/internal/api"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	guardianName     string
	guardianEmail    string
	guardianPassword string
	guardianPhone    string
)

// signupCmd creates a guardian account
var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a guardian account",
	RunE:  runSignup,
}

// loginCmd logs a guardian in and remembers their id
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as a guardian",
	Long: `Authenticates against the backend and stores the guardian id in the
session. Ward listing and registration use it in place of api.guardian_id.`,
	RunE: runLogin,
}

func init() {
	signupCmd.Flags().StringVar(&guardianName, "name", "", "Guardian name (required)")
	signupCmd.Flags().StringVar(&guardianEmail, "email", "", "Email (required)")
	signupCmd.Flags().StringVar(&guardianPassword, "password", "", "Password (required)")
	signupCmd.Flags().StringVar(&guardianPhone, "phone", "", "Phone number")
	_ = signupCmd.MarkFlagRequired("name")
	_ = signupCmd.MarkFlagRequired("email")
	_ = signupCmd.MarkFlagRequired("password")

	loginCmd.Flags().StringVar(&guardianEmail, "email", "", "Email (required)")
	loginCmd.Flags().StringVar(&guardianPassword, "password", "", "Password (required)")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(loginCmd)
}

func runSignup(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	g, err := newClient().Signup(ctx, api.GuardianSignup{
		Name:     guardianName,
		Email:    guardianEmail,
		Password: guardianPassword,
		Phone:    guardianPhone,
	})
	if err != nil {
		return fail("signup", err)
	}
	return rememberGuardian(cmd, g)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	g, err := newClient().Login(ctx, guardianEmail, guardianPassword)
	if err != nil {
		return fail("login", err)
	}
	return rememberGuardian(cmd, g)
}

func rememberGuardian(cmd *cobra.Command, g *api.Guardian) error {
	if err := sess.SetGuardianID(g.ID); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	logger.Info("Guardian authenticated", zap.Int64("guardian_id", g.ID))
	name := g.Name
	if name == "" {
		name = g.Email
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Signed in as %s (guardian %d)", name, g.ID)))
	return nil
}
