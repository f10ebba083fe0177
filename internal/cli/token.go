package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/firstflame-backend/internal/services"
)

type tokenOut struct {
	AccessToken string    `json:"access_token"`
	UserID      uuid.UUID `json:"user_id"`
	SessionID   uuid.UUID `json:"session_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// issueToken signs an access token with the configured JWT secret.
func issueToken(userID, sessionID uuid.UUID) (*tokenOut, error) {
	log, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	defer log.Sync()
	auth, err := services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}
	tok, err := auth.IssueToken(userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &tokenOut{
		AccessToken: tok,
		UserID:      userID,
		SessionID:   sessionID,
		ExpiresAt:   time.Now().UTC().Add(auth.GetAccessTTL()),
	}, nil
}

func NewTokenCommand(root *RootOptions) *cobra.Command {
	var user, session string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUser(user)
			if err != nil {
				return err
			}
			sid := uuid.Nil
			if session != "" {
				if sid, err = uuid.Parse(session); err != nil {
					return fmt.Errorf("invalid --session %q", session)
				}
			}
			out, err := issueToken(id, sid)
			if err != nil {
				return err
			}
			return newPrinter(root, cmd.OutOrStdout()).emit(out, func(w io.Writer) {
				fmt.Fprintln(w, out.AccessToken)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id the token identifies")
	cmd.Flags().StringVar(&session, "session", "", "session id (random when empty)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
