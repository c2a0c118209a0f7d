package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hellausefulsoftware/cleaner/internal/decision"
	"github.com/hellausefulsoftware/cleaner/internal/github"
	"github.com/hellausefulsoftware/cleaner/internal/models"
	"github.com/hellausefulsoftware/cleaner/internal/tui"
	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	var rulesFile, at string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify [payload-file]",
		Short: "Show the decisions for an issue without touching GitHub",
		Long: `Runs the decision engine over an issues webhook payload, or over a bare
issue object as returned by the REST API, and prints the outcome of every
feature.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readPayload(cmd, args)
			if err != nil {
				return err
			}

			now := time.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--now must be RFC 3339: %w", err)
				}
			}

			ic, err := issueContextFromPayload(body, now)
			if err != nil {
				return err
			}

			rules, err := loadRules(rulesFile)
			if err != nil {
				return err
			}
			policy, err := decision.NewPolicy(rules, func() time.Time { return now })
			if err != nil {
				return fmt.Errorf("invalid rules: %w", err)
			}
			outcomes := policy.EngineFor(ic.Repository).Run(ic)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Context  models.IssueContext `json:"context"`
					Outcomes []decision.Outcome  `json:"outcomes"`
				}{ic, outcomes})
			}
			fmt.Fprintln(out, tui.RenderReport(tui.NewTheme(), ic, outcomes))
			return nil
		},
	}

	cmd.Flags().StringVar(&rulesFile, "rules", "", "Rules file (defaults to the built-in rules)")
	cmd.Flags().StringVar(&at, "now", "", "Evaluate as of this RFC 3339 time")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print decisions as JSON")
	return cmd
}

// issueContextFromPayload accepts an issues webhook body or a bare issue
func issueContextFromPayload(body []byte, now time.Time) (models.IssueContext, error) {
	var event github.IssuesEventPayload
	if err := json.Unmarshal(body, &event); err != nil {
		return models.IssueContext{}, fmt.Errorf("invalid payload: %w", err)
	}

	ic := models.IssueContext{Trigger: event.Action}
	if event.Issue == nil {
		var issue github.IssuePayload
		if err := json.Unmarshal(body, &issue); err != nil {
			return models.IssueContext{}, fmt.Errorf("invalid issue: %w", err)
		}
		event.Issue = &issue
	}
	ic.Issue = github.ToIssue(*event.Issue, now)
	ic.Repository = github.ToRepository(event.Repository)
	if event.Installation != nil {
		ic.InstallationID = event.Installation.ID
	}
	return ic, nil
}
