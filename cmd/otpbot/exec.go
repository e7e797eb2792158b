package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <command text>",
	Short: "Run one chat command as the admin and print the reply",
	Example: `  otpbot exec /add shared@example.com app-password imap imap.example.com 993
  otpbot exec /approve 123456789
  otpbot exec /grants`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		text := strings.Join(args, " ")
		if !strings.HasPrefix(text, "/") {
			text = "/" + text
		}
		for _, chunk := range a.service.Execute(cmd.Context(), a.cfg.Bot.AdminID, text) {
			fmt.Fprintln(cmd.OutOrStdout(), chunk)
		}
		return nil
	},
}
