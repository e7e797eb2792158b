package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "otpbot",
	Short: "Chat bot that reads verification codes out of shared mailboxes",
	Long: `otpbot polls IMAP and POP3 mailboxes on request and replies with the
verification code found in the newest messages. Access is granted per
requester and mailbox by the admin, and expires.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ./config.yaml or /etc/otpbot/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
