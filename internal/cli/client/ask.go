package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [query...]",
		Short: "Ask the knowledge base a question",
		Long:  "Send a query through the same tool-call endpoint the voice agent uses and print the answer line",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant identifier (required)")
	cmd.Flags().String("session", "", "Session identifier for conversational memory")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

type askRequest struct {
	Query     string `json:"query"`
	Tenant    string `json:"tenant"`
	SessionID string `json:"sessionId,omitempty"`
}

type toolResponse struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
	Error      string `json:"error"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	apiClient, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	tenant, _ := cmd.Flags().GetString("tenant")
	session, _ := cmd.Flags().GetString("session")

	body, err := apiClient.Post("/api/tools/query", askRequest{
		Query:     strings.Join(args, " "),
		Tenant:    tenant,
		SessionID: session,
	})
	if err != nil {
		return err
	}

	var resp toolResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Error != "" {
		return fmt.Errorf("%s", resp.Error)
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Result)
	return nil
}
