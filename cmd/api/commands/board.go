package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskmaster/kanban/internal/client"
)

const defaultAPIURL = "http://localhost:8080/api/v1"

// NewBoardCommand creates the board command. Its subcommands act as a
// client of a running server.
func NewBoardCommand() *cobra.Command {
	boardCmd := &cobra.Command{
		Use:   "board",
		Short: "Inspect and reorder boards through the API",
		Long:  "Sign in to a running Kanban server and show boards or move lists and cards the way the board view does",
	}

	apiURL := defaultAPIURL
	if env := os.Getenv("KANBAN_API_URL"); env != "" {
		apiURL = env
	}
	boardCmd.PersistentFlags().String("api", apiURL, "API base URL")
	boardCmd.PersistentFlags().String("email", os.Getenv("KANBAN_EMAIL"), "Account email")
	boardCmd.PersistentFlags().String("password", os.Getenv("KANBAN_PASSWORD"), "Account password")

	boardCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := signIn(cmd)
			if err != nil {
				return err
			}

			boards, err := api.Boards(cmd.Context())
			if err != nil {
				return err
			}
			for _, b := range boards {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", b.ID, b.Title)
			}
			return nil
		},
	})

	boardCmd.AddCommand(&cobra.Command{
		Use:   "show <board-id>",
		Short: "Print a board with its lists and cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openBoard(cmd, args[0])
			if err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), eng.Snapshot())
			return nil
		},
	})

	boardCmd.AddCommand(&cobra.Command{
		Use:   "move-list <board-id> <from> <to>",
		Short: "Move a list from one index to another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndexes(args[1:])
			if err != nil {
				return err
			}

			eng, err := openBoard(cmd, args[0])
			if err != nil {
				return err
			}

			if err := eng.MoveList(cmd.Context(), idx[0], idx[1]).Wait(cmd.Context()); err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), eng.Snapshot())
			return nil
		},
	})

	boardCmd.AddCommand(&cobra.Command{
		Use:   "move-card <board-id> <from-list> <from-index> <to-list> <to-index>",
		Short: "Move a card; lists are given by their index on the board",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndexes(args[1:])
			if err != nil {
				return err
			}

			eng, err := openBoard(cmd, args[0])
			if err != nil {
				return err
			}

			lists := eng.Snapshot().SortedLists()
			if idx[0] >= len(lists) || idx[2] >= len(lists) {
				return fmt.Errorf("board has %d lists", len(lists))
			}

			drop := client.Drop{
				Source:      client.Location{ListID: lists[idx[0]].ID, Index: idx[1]},
				Destination: &client.Location{ListID: lists[idx[2]].ID, Index: idx[3]},
			}
			if err := eng.MoveCard(cmd.Context(), drop).Wait(cmd.Context()); err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), eng.Snapshot())
			return nil
		},
	})

	return boardCmd
}

func signIn(cmd *cobra.Command) (*client.Client, error) {
	baseURL, _ := cmd.Flags().GetString("api")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" || password == "" {
		return nil, fmt.Errorf("--email and --password are required")
	}

	api := client.New(client.DefaultConfig(baseURL), nil)
	if _, err := api.Login(cmd.Context(), email, password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return api, nil
}

func openBoard(cmd *cobra.Command, rawID string) (*client.Engine, error) {
	boardID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid board id %q", rawID)
	}

	api, err := signIn(cmd)
	if err != nil {
		return nil, err
	}

	eng := client.NewEngine(api, boardID, func(n client.Notice) {
		if n.Failed {
			fmt.Fprintln(cmd.ErrOrStderr(), n.Message)
		}
	}, nil)
	if err := eng.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return eng, nil
}

func parseIndexes(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid index %q", a)
		}
		out[i] = n
	}
	return out, nil
}

func printBoard(w io.Writer, snap *client.Snapshot) {
	if snap.Board != nil {
		fmt.Fprintf(w, "%s\n", snap.Board.Title)
	}
	for i, l := range snap.SortedLists() {
		fmt.Fprintf(w, "[%d] %s (%d)\n", i, l.Name, l.Position)
		for j, c := range snap.CardsFor(l.ID) {
			fmt.Fprintf(w, "    %d. %s (%d)\n", j, c.Title, c.Position)
		}
	}
}
