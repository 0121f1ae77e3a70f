// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/auth"
	"hyperbase/cli/internal/config"
	"hyperbase/cli/internal/terminal"
)

var loginEmail string

// loginCmd signs an administrator in with email and password.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as an administrator",
	Long: `The login command signs an administrator in with email and password and stores the
session token in the OS keychain. The password is read without echo; when stdin is
not a terminal it is read as a plain line, so scripts can pipe it in.

When --base-url is given, the server url is saved as the default for later commands.`,
	Annotations: noSession(),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := promptIfEmpty(loginEmail, "Email: ")
		if err != nil {
			return err
		}
		password, err := terminal.ReadSecret("Password: ")
		if err != nil {
			return err
		}
		if password == "" {
			return errors.New("password is required")
		}

		stop := spin("Signing in")
		_, err = client.AdminSignIn(cmd.Context(), email, password)
		if err == nil {
			client.WaitProfile()
		}
		stop()
		if err != nil {
			return err
		}

		if flagBaseURL != "" {
			if err := rememberServer(client.BaseURL(), client.BaseWSURL()); err != nil {
				logger.Warn("could not save the server url", "error", err)
			}
		}

		identifier := email
		if profile := client.Session().Snapshot().Profile; profile != nil {
			if e, ok := profile["email"].(string); ok && e != "" {
				identifier = e
			}
		}
		pterm.Println(getRandomLoginGreeting(identifier))
		return nil
	},
}

// registerCmd starts an administrator registration.
var registerCmd = &cobra.Command{
	Use:         "register",
	Short:       "Register a new administrator account",
	Annotations: noSession(),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := client.RegistrationInfo(cmd.Context())
		if err != nil {
			return err
		}
		if !info.IsEnabled {
			pterm.Warning.Println("This server does not accept new administrators.")
			return nil
		}

		email, err := promptIfEmpty(loginEmail, "Email: ")
		if err != nil {
			return err
		}
		password, err := readNewPassword()
		if err != nil {
			return err
		}
		id, err := client.AdminSignUp(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		pterm.Success.Println("Registration started. Check your inbox for the verification code.")
		pterm.Printfln("Then run: hyperbase verify %s <code>", id)
		return nil
	},
}

// verifyCmd confirms a registration.
var verifyCmd = &cobra.Command{
	Use:         "verify <registration-id> <code>",
	Short:       "Confirm an administrator registration",
	Args:        cobra.ExactArgs(2),
	Annotations: noSession(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.AdminSignUpVerify(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		pterm.Success.Println("Registration confirmed. You can now run: hyperbase login")
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:         "reset-password",
	Short:       "Reset an administrator password",
	Annotations: noSession(),
}

var resetRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Email a password reset code",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := promptIfEmpty(loginEmail, "Email: ")
		if err != nil {
			return err
		}
		id, err := client.RequestPasswordReset(cmd.Context(), email)
		if err != nil {
			return err
		}
		pterm.Success.Println("A reset code is on its way.")
		pterm.Printfln("Then run: hyperbase reset-password confirm %s <code>", id)
		return nil
	},
}

var resetConfirmCmd = &cobra.Command{
	Use:   "confirm <reset-id> <code>",
	Short: "Set a new password with the emailed code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readNewPassword()
		if err != nil {
			return err
		}
		if err := client.ConfirmPasswordReset(cmd.Context(), args[0], args[1], password); err != nil {
			return err
		}
		pterm.Success.Println("Password changed. You can now run: hyperbase login")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "administrator email")
	registerCmd.Flags().StringVar(&loginEmail, "email", "", "administrator email")
	resetRequestCmd.Flags().StringVar(&loginEmail, "email", "", "administrator email")

	resetPasswordCmd.AddCommand(resetRequestCmd, resetConfirmCmd)
	rootCmd.AddCommand(loginCmd, registerCmd, verifyCmd, resetPasswordCmd)
}

func promptIfEmpty(value, label string) (string, error) {
	if v := strings.TrimSpace(value); v != "" {
		return v, nil
	}
	v, err := terminal.Prompt(terminal.Stdin, os.Stderr, label)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(strings.TrimSuffix(label, ": ")))
	}
	return v, nil
}

func readNewPassword() (string, error) {
	password, err := terminal.ReadSecret("New password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", errors.New("password is required")
	}
	again, err := terminal.ReadSecret("Repeat password: ")
	if err != nil {
		return "", err
	}
	if again != password {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

// rememberServer saves the server a session was opened against.
func rememberServer(baseURL, wsURL string) error {
	return auth.FileSettings{}.Update(func(c *config.Config) {
		c.BaseURL = baseURL
		c.BaseWSURL = wsURL
	})
}

// getRandomLoginGreeting returns a random greeting phrase with the user's identifier
func getRandomLoginGreeting(identifier string) string {
	greetings := []string{
		"🎉 Welcome back, %s!",
		"✨ Great to see you, %s!",
		"🚀 You're all set, %s!",
		"💫 Successfully authenticated as %s",
		"🌟 Welcome aboard, %s!",
		"✅ Authentication complete! Hi %s!",
		"🔓 Access granted! Welcome %s!",
	}
	return fmt.Sprintf(greetings[rand.Intn(len(greetings))], identifier)
}
