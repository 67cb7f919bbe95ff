package main

import (
	"encoding/json"
	"errors"
	"time"

	"voice-dashboard/internal/auth"
	"voice-dashboard/internal/config"
	"voice-dashboard/internal/voice"

	"github.com/spf13/cobra"
)

func newTestCallCommand(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-call --agent <id> --phone <number>",
		Short: "Place one outbound test call from a voice agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			base := s.v.GetString("voice-url")
			if base == "" {
				return errors.New("--voice-url or VOICE_BASE_URL is required")
			}
			svc := voice.NewService(voice.NewHTTPProvider(base, s.v.GetString("voice-api-key"), s.v.GetDuration("timeout")), s.logger())
			res, err := svc.MakeTestCall(cmd.Context(), s.v.GetString("org"), s.v.GetString("agent"), s.v.GetString("phone"))
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"call_id": res.CallID, "status": res.Status, "started_at": res.StartedAt})
		},
	}
	cmd.Flags().String("voice-url", "", "Voice platform base URL (env VOICE_BASE_URL)")
	cmd.Flags().String("voice-api-key", "", "Voice platform API key (env VOICE_API_KEY)")
	cmd.Flags().String("org", "", "Organization ID")
	cmd.Flags().String("agent", "", "Agent ID")
	cmd.Flags().String("phone", "", "Number to dial, E.164")
	cmd.Flags().Duration("timeout", 15*time.Second, "Request timeout")
	s.bindFlags(cmd, map[string]string{
		"voice-url":     "VOICE_BASE_URL",
		"voice-api-key": "VOICE_API_KEY",
		"org":           "DASHCTL_ORGANIZATION",
		"agent":         "DASHCTL_AGENT",
		"phone":         "DASHCTL_PHONE",
		"timeout":       "DASHCTL_TIMEOUT",
	})
	return cmd
}

func newRoomTokenCommand(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room-token --room <name> --identity <id>",
		Short: "Mint a media room access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := auth.NewRoomMinter(config.MediaConfig{
				RoomURL:   s.v.GetString("room-url"),
				APIKey:    s.v.GetString("media-api-key"),
				APISecret: s.v.GetString("media-api-secret"),
				TokenTTL:  s.v.GetDuration("ttl"),
			})
			if err != nil {
				return err
			}
			tok, err := m.Mint(time.Now(), auth.RoomGrant{
				Room:     s.v.GetString("room"),
				Identity: s.v.GetString("identity"),
				Name:     s.v.GetString("name"),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, tok)
		},
	}
	cmd.Flags().String("room-url", "", "Media server URL (env MEDIA_ROOM_URL)")
	cmd.Flags().String("media-api-key", "", "Media API key (env MEDIA_API_KEY)")
	cmd.Flags().String("media-api-secret", "", "Media API secret (env MEDIA_API_SECRET)")
	cmd.Flags().String("room", "", "Room name")
	cmd.Flags().String("identity", "", "Participant identity")
	cmd.Flags().String("name", "", "Participant display name")
	cmd.Flags().Duration("ttl", 10*time.Minute, "Token lifetime")
	s.bindFlags(cmd, map[string]string{
		"room-url":         "MEDIA_ROOM_URL",
		"media-api-key":    "MEDIA_API_KEY",
		"media-api-secret": "MEDIA_API_SECRET",
		"ttl":              "MEDIA_TOKEN_TTL",
		"room":             "DASHCTL_ROOM",
		"identity":         "DASHCTL_IDENTITY",
		"name":             "DASHCTL_NAME",
	})
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
