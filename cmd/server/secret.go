package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"campaign-automator-api/internal/crypto"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage sealed secrets",
}

var secretSealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Encrypt a secret read from stdin with ENCRYPTION_KEY",
	Long: `seal prints a value for GMAIL_REFRESH_TOKEN_SEALED, so the refresh token
does not have to be stored in plain text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return sealSecret(cmd.InOrStdin(), cmd.OutOrStdout(), os.Getenv("ENCRYPTION_KEY"))
	},
}

func init() {
	secretCmd.AddCommand(secretSealCmd)
	rootCmd.AddCommand(secretCmd)
}

func sealSecret(in io.Reader, out io.Writer, key string) error {
	box, err := crypto.NewSecretBox([]byte(key))
	if err != nil {
		return err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("could not read secret: %w", err)
	}
	secret := strings.TrimSpace(line)
	if secret == "" {
		return fmt.Errorf("no secret on stdin")
	}

	sealed, err := box.Seal(secret)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, sealed)
	return err
}
