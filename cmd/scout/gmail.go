package main

import (
	"fmt"

	"github.com/daviddao/scout/internal/auth"
	"github.com/daviddao/scout/internal/display"
	"github.com/daviddao/scout/internal/gmail"
	"github.com/spf13/cobra"
)

var (
	gmailTo          string
	gmailFrom        string
	gmailCredentials string
	gmailNoHTML      bool
)

// gmailCmd is the parent command for Gmail operations.
var gmailCmd = &cobra.Command{
	Use:   "gmail",
	Short: "Gmail operations (draft export)",
}

var gmailDraftCmd = &cobra.Command{
	Use:   "draft ID",
	Short: "Copy a candidate's current draft into your Gmail drafts",
	Long: `Create a Gmail draft from the candidate's current draft.

The HTML asset, when present, is attached as a multipart/alternative
part. Credentials come from gmail.credentials in the config, with
token.json next to them.`,
	Example: `  scout gmail draft c_123
  scout gmail draft c_123 --to someone@example.com --no-html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := loadQueue(cmd); err != nil {
			return err
		}
		entry, err := session.Candidate(id)
		if err != nil {
			return err
		}
		draft, err := session.Draft(id)
		if err != nil {
			return fmt.Errorf("draft for %s: %w", id, err)
		}

		to := gmailTo
		if to == "" {
			to = entry.Email
		}
		if to == "" {
			return fmt.Errorf("candidate %s has no email address, pass --to", id)
		}

		credPath := gmailCredentials
		if credPath == "" {
			credPath = cfg.GmailCredentialsPath()
		}
		if credPath == "" {
			return fmt.Errorf("no Gmail credentials configured, set gmail.credentials or pass --credentials")
		}

		svc, err := auth.LoadGmailService(cmd.Context(), credPath, logger)
		if err != nil {
			return fmt.Errorf("gmail auth: %w", err)
		}

		msg := gmail.Message{From: gmailFrom, To: to, Subject: draft.Subject, Body: draft.Body}
		if !gmailNoHTML {
			msg.HTML = draft.AssetHTML
		}
		ref, err := gmail.CreateDraft(cmd.Context(), svc, msg)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd, ref)
		}
		if !quietFlag {
			display.SuccessMsg("Gmail draft %s created for %s", ref.ID, to)
		}
		return nil
	},
}

func init() {
	gmailDraftCmd.Flags().StringVar(&gmailTo, "to", "", "Recipient (default: candidate email)")
	gmailDraftCmd.Flags().StringVar(&gmailFrom, "from", "", "From header")
	gmailDraftCmd.Flags().StringVar(&gmailCredentials, "credentials", "", "Path to credentials.json")
	gmailDraftCmd.Flags().BoolVar(&gmailNoHTML, "no-html", false, "Plain text only")

	gmailCmd.AddCommand(gmailDraftCmd)
	rootCmd.AddCommand(gmailCmd)
}
