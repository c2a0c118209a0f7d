package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
	"github.com/hellausefulsoftware/cleaner/internal/webhook"
	"github.com/spf13/cobra"
)

func newSignCmd() *cobra.Command {
	var secret, sendURL, event string

	cmd := &cobra.Command{
		Use:   "sign [payload-file]",
		Short: "Print the X-Hub-Signature-256 header for a payload, or send it signed",
		Long: `Computes the webhook signature for a payload file (or stdin when the file
is "-" or omitted). With --send the payload is posted to a running server with
a fresh delivery ID, which is handy for replaying captured deliveries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("WEBHOOK_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("a secret is required: pass --secret or set WEBHOOK_SECRET")
			}

			body, err := readPayload(cmd, args)
			if err != nil {
				return err
			}
			signature := webhook.Sign(body, []byte(secret))

			if sendURL == "" {
				fmt.Fprintln(cmd.OutOrStdout(), signature)
				return nil
			}
			return sendSigned(cmd.Context(), cmd.OutOrStdout(), sendURL, event, signature, body)
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Webhook secret (defaults to $WEBHOOK_SECRET)")
	cmd.Flags().StringVar(&sendURL, "send", "", "POST the signed payload to this webhook URL")
	cmd.Flags().StringVar(&event, "event", "issues", "X-GitHub-Event value used with --send")
	return cmd
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		body, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read payload from stdin: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return body, nil
}

func sendSigned(ctx context.Context, out io.Writer, url, event, signature string, body []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	deliveryID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.HeaderEvent, event)
	req.Header.Set(webhook.HeaderDelivery, deliveryID)
	req.Header.Set(webhook.HeaderSignature, signature)

	logging.Debug("Sending signed payload", "url", url, "delivery", deliveryID, "event", event)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send payload: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	fmt.Fprintf(out, "%s %s\n%s\n", deliveryID, resp.Status, bytes.TrimSpace(respBody))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server answered %s", resp.Status)
	}
	return nil
}
