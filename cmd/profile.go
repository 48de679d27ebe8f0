package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage reader profiles",
}

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a profile and print its Telegram link code",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		svc, err := newJournal(store)
		if err != nil {
			return err
		}

		p, err := svc.CreateProfile(ctx, username)
		if err != nil {
			return err
		}
		code, err := svc.IssueLinkCode(ctx, p.ID)
		if err != nil {
			return err
		}

		cmd.Printf("Profile: %s\n", p.ID)
		cmd.Printf("Link code: %s (send /start %s to the bot)\n", code, code)
		return nil
	},
}

var profileLinkCodeCmd = &cobra.Command{
	Use:   "link-code <profile-id>",
	Short: "Issue a new Telegram link code for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		svc, err := newJournal(store)
		if err != nil {
			return err
		}

		code, err := svc.IssueLinkCode(ctx, args[0])
		if err != nil {
			return fmt.Errorf("issue link code: %w", err)
		}
		cmd.Printf("Link code: %s\n", code)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileCreateCmd, profileLinkCodeCmd)
	profileCreateCmd.Flags().String("username", "", "display name used in reminders")
}
