// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/advisor-tui/internal/auth"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
)

var flagUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the advisor (demo authentication)",
	Long: `Issues a local login token. Any non-empty username and password are
accepted; the token lives in the state directory and expires after the
configured TTL. When a TOTP authenticator is enrolled, a one-time code
is required as a second step.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the local login token",
	RunE:  runLogout,
}

var enrollTOTPCmd = &cobra.Command{
	Use:   "enroll-totp",
	Short: "Enroll a TOTP authenticator for the demo login",
	RunE:  runEnrollTOTP,
}

var disableTOTPCmd = &cobra.Command{
	Use:   "disable-totp",
	Short: "Remove the enrolled TOTP authenticator",
	RunE:  runDisableTOTP,
}

func init() {
	loginCmd.Flags().StringVarP(&flagUsername, "user", "u", "", "username (prompted when omitted)")
	loginCmd.AddCommand(enrollTOTPCmd, disableTOTPCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	mgr, err := newAuthManager(cfg)
	if err != nil {
		return err
	}

	username := flagUsername
	if username == "" {
		username, err = promptLine("Username: ")
		if err != nil {
			return err
		}
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	creds := auth.Credentials{Username: username, Password: password}
	state, err := mgr.Login(creds)
	if errors.Is(err, auth.ErrTOTPRequired) {
		creds.TOTPCode, err = promptLine("One-time code: ")
		if err != nil {
			return err
		}
		state, err = mgr.Login(creds)
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println(components.InlineSuccess(fmt.Sprintf(
		"Logged in as %s (token valid until %s)",
		state.Username, state.ExpiresAt.Format("2006-01-02 15:04"))))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	mgr, err := newAuthManager(cfg)
	if err != nil {
		return err
	}
	if !mgr.IsAuthenticated() {
		fmt.Println(components.InlineInfo("Not logged in."))
		return nil
	}
	if err := mgr.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Println(components.InlineSuccess("Logged out."))
	return nil
}

func runEnrollTOTP(cmd *cobra.Command, args []string) error {
	mgr, err := newAuthManager(cfg)
	if err != nil {
		return err
	}
	secret, url, err := mgr.EnrollTOTP()
	if err != nil {
		return fmt.Errorf("enroll TOTP: %w", err)
	}
	fmt.Println(components.InlineSuccess("TOTP enrolled. Add this secret to your authenticator app:"))
	fmt.Println("  Secret: " + secret)
	fmt.Println("  URL:    " + url)
	return nil
}

func runDisableTOTP(cmd *cobra.Command, args []string) error {
	mgr, err := newAuthManager(cfg)
	if err != nil {
		return err
	}
	if !mgr.TOTPEnrolled() {
		fmt.Println(components.InlineInfo("No TOTP authenticator enrolled."))
		return nil
	}
	if err := mgr.DisableTOTP(); err != nil {
		return fmt.Errorf("disable TOTP: %w", err)
	}
	fmt.Println(components.InlineSuccess("TOTP disabled."))
	return nil
}

// promptLine reads one trimmed line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
	// Non-TTY stdin (tests, scripts) falls back to a plain line read.
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
