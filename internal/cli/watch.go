package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/firstflame-backend/internal/clientsync"
)

type watchEvent struct {
	Kind string             `json:"kind"` // "refresh" | "error"
	Path string             `json:"path"`
	At   time.Time          `json:"at"`
	Data *clientsync.Status `json:"status,omitempty"`
	Err  string             `json:"error,omitempty"`
}

// NewWatchCommand mounts one client session against a running API and prints every
// refresh until interrupted.
func NewWatchCommand(root *RootOptions) *cobra.Command {
	var (
		baseURL string
		token   string
		user    string
		day     int
		stale   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a user's ritual state over the realtime stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUser(user)
			if err != nil {
				return err
			}
			if token == "" {
				out, err := issueToken(id, uuid.Nil)
				if err != nil {
					return err
				}
				token = out.AccessToken
			}
			log, _, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			client := &clientsync.HTTPClient{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, Log: log}
			nav := clientsync.NewMemoryNavigator(day)
			p := newPrinter(root, cmd.OutOrStdout())

			sess, err := clientsync.Mount(cmd.Context(), clientsync.Config{
				UserID:     id,
				Subscriber: client,
				Fetcher:    client,
				Navigator:  nav,
				StaleAfter: stale,
				Log:        log,
				OnRefresh: func(st *clientsync.Status, err error) {
					ev := watchEvent{Kind: "refresh", Path: nav.Path(), At: time.Now().UTC(), Data: st}
					if err != nil {
						ev.Kind, ev.Err = "error", err.Error()
					}
					_ = p.emit(ev, func(w io.Writer) {
						if ev.Err != "" {
							fmt.Fprintf(w, "%s\terror\t%s\n", ev.At.Format(time.RFC3339), ev.Err)
							return
						}
						fmt.Fprintf(w, "%s\t%s\tday=%d complete=%t\n", ev.At.Format(time.RFC3339), ev.Path, st.CurrentDayTarget, st.IsQuestComplete)
					})
				},
			})
			if err != nil {
				return fmt.Errorf("mount session: %w", err)
			}
			<-sess.Done()
			sess.Unmount()
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "ritual API base URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (issued from JWT_SECRET_KEY when empty)")
	cmd.Flags().StringVar(&user, "user", "", "user id the session belongs to")
	cmd.Flags().IntVar(&day, "day", 1, "day the session starts on")
	cmd.Flags().DurationVar(&stale, "stale-after", 0, "refetch on this interval when no signal arrives")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
