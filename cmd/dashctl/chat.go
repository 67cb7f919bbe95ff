package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"voice-dashboard/internal/chatclient"
	"voice-dashboard/internal/notify"

	"github.com/spf13/cobra"
)

func newChatCommand(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat --agent <id>",
		Short: "Chat with an agent; one message per input line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := s.v.GetString("server")
			agentID := s.v.GetString("agent")
			if server == "" {
				return errors.New("--server or APPSERVER_BASE_URL is required")
			}
			if agentID == "" {
				return errors.New("--agent is required")
			}

			log := s.logger()
			out := cmd.OutOrStdout()
			client := chatclient.New(chatclient.Config{BaseURL: server, APIKey: s.v.GetString("api-key")}, log)
			cv := chatclient.NewConversation(client, notify.Func(func(_ context.Context, n notify.Notification) {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s: %s\n", n.Level, n.Title, n.Message)
			}))

			ctx := cmd.Context()
			sid, err := cv.StartSession(ctx, agentID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "session %s\n", sid)
			defer func() { _ = client.EndSession(context.WithoutCancel(ctx), sid) }()

			in := bufio.NewScanner(cmd.InOrStdin())
			for in.Scan() {
				text := strings.TrimSpace(in.Text())
				if text == "" {
					continue
				}
				printed := 0
				_, err := cv.SendMessage(ctx, text, func(partial string) {
					fmt.Fprint(out, partial[printed:])
					printed = len(partial)
				})
				fmt.Fprintln(out)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				}
			}
			return in.Err()
		},
	}
	cmd.Flags().String("server", "", "Chat application server base URL (env APPSERVER_BASE_URL)")
	cmd.Flags().String("api-key", "", "Chat application server API key (env APPSERVER_API_KEY)")
	cmd.Flags().String("agent", "", "Agent ID")
	s.bindFlags(cmd, map[string]string{
		"server":  "APPSERVER_BASE_URL",
		"api-key": "APPSERVER_API_KEY",
		"agent":   "DASHCTL_AGENT",
	})
	return cmd
}
