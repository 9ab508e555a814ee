package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/spec-kit/bi-triage-agent/internal/auth"
)

func newHashPasswordCmd() *cobra.Command {
	var (
		passwordFile string
		cost         int
	)

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long:  "Prompts for the admin password twice on the terminal, or reads it from --password-file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, passwordFile)
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from this file instead of prompting")
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func readPassword(cmd *cobra.Command, passwordFile string) (string, error) {
	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", passwordFile, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for interactive password prompt (use --password-file)")
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprint(errOut, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(errOut)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(errOut, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(errOut)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
