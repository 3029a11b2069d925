package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/daviddao/scout/internal/briefing"
	"github.com/daviddao/scout/internal/display"
	"github.com/daviddao/scout/internal/types"
	"github.com/spf13/cobra"
)

var (
	editSubject  string
	editBody     string
	editBodyFile string
	regenComment string
)

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit and save a candidate's draft",
	Long: `Edit the subject and body of a draft and save it to the backend.

With no flags the draft opens in $VISUAL or $EDITOR. The first line holds
the subject; the body starts after the first blank line.`,
	Example: `  scout edit c_123
  scout edit c_123 --subject "Quick question"
  scout edit c_123 --body-file reply.txt
  cat body.txt | scout edit c_123 --body-file -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := loadQueue(cmd); err != nil {
			return err
		}
		current, err := session.Draft(id)
		if errors.Is(err, briefing.ErrNoDraft) {
			current = &types.Draft{}
		} else if err != nil {
			return err
		}

		subject, body := current.Subject, current.Body
		flagsUsed := cmd.Flags().Changed("subject") || cmd.Flags().Changed("body") || editBodyFile != ""
		if flagsUsed {
			if cmd.Flags().Changed("subject") {
				subject = editSubject
			}
			if cmd.Flags().Changed("body") {
				body = editBody
			}
			if editBodyFile != "" {
				if body, err = readBodyFile(cmd, editBodyFile); err != nil {
					return err
				}
			}
		} else {
			if subject, body, err = editInEditor(current); err != nil {
				return err
			}
		}

		if subject == current.Subject && body == current.Body {
			if !quietFlag {
				fmt.Println(display.Dim.Render("No changes."))
			}
			return nil
		}

		if err := session.SaveDraft(cmd.Context(), id, subject, body); err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		if jsonOutput {
			d, _ := session.Draft(id)
			return printJSON(cmd, d)
		}
		if !quietFlag {
			display.SuccessMsg("Saved draft: %s", id)
		}
		return nil
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate ID",
	Short: "Ask the backend for a new draft",
	Example: `  scout regenerate c_123
  scout regenerate c_123 --feedback "shorter, mention the Series B"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := loadQueue(cmd); err != nil {
			return err
		}

		var d *types.Draft
		var err error
		if regenComment != "" {
			d, err = session.RegenerateWithFeedback(cmd.Context(), id, regenComment)
		} else {
			d, err = session.Regenerate(cmd.Context(), id)
		}
		if err != nil {
			return fmt.Errorf("regenerate: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd, d)
		}
		if !quietFlag {
			display.SuccessMsg("New draft for %s", id)
		}
		fmt.Print(display.DraftBlock(d, 0))
		return nil
	},
}

func readBodyFile(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatDraftBuffer renders a draft for editing.
func formatDraftBuffer(d *types.Draft) string {
	return "Subject: " + d.Subject + "\n\n" + d.Body + "\n"
}

// parseDraftBuffer reads back an edited buffer: a "Subject:" line, a blank
// line, then the body.
func parseDraftBuffer(buf string) (subject, body string, err error) {
	buf = strings.ReplaceAll(buf, "\r\n", "\n")
	head, rest, _ := strings.Cut(buf, "\n")
	s, ok := strings.CutPrefix(head, "Subject:")
	if !ok {
		return "", "", fmt.Errorf("first line must start with %q", "Subject:")
	}
	rest = strings.TrimPrefix(rest, "\n")
	return strings.TrimSpace(s), strings.TrimRight(rest, "\n \t"), nil
}

// editorCommand splits $VISUAL or $EDITOR into a command line, falling back
// to vi when both are unset or blank.
func editorCommand() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if parts := strings.Fields(os.Getenv(env)); len(parts) > 0 {
			return parts
		}
	}
	return []string{"vi"}
}

func editInEditor(d *types.Draft) (string, string, error) {
	parts := editorCommand()

	f, err := os.CreateTemp("", "scout-draft-*.txt")
	if err != nil {
		return "", "", err
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(formatDraftBuffer(d)); err != nil {
		f.Close()
		return "", "", err
	}
	if err := f.Close(); err != nil {
		return "", "", err
	}

	c := exec.Command(parts[0], append(parts[1:], f.Name())...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return "", "", fmt.Errorf("run editor %s: %w", parts[0], err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		return "", "", err
	}
	return parseDraftBuffer(string(data))
}

func init() {
	editCmd.Flags().StringVar(&editSubject, "subject", "", "New subject")
	editCmd.Flags().StringVar(&editBody, "body", "", "New body")
	editCmd.Flags().StringVar(&editBodyFile, "body-file", "", "Read the body from a file (- for stdin)")
	regenerateCmd.Flags().StringVarP(&regenComment, "feedback", "f", "", "Comments to guide the new draft")
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(regenerateCmd)
}
