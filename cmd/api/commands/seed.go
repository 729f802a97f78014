package commands

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taskmaster/kanban/internal/adapters/cache"
	"github.com/taskmaster/kanban/internal/adapters/repository"
	"github.com/taskmaster/kanban/internal/application/services"
	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/config"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/infrastructure/migrations"
	"github.com/taskmaster/kanban/internal/ports"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Name     string      `yaml:"name"`
	Boards   []seedBoard `yaml:"boards"`
}

type seedBoard struct {
	Title string     `yaml:"title"`
	Lists []seedList `yaml:"lists"`
}

type seedList struct {
	Name  string   `yaml:"name"`
	Cards []string `yaml:"cards"`
}

func parseSeed(data []byte) (*seedFile, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

// seedResult counts what a seed run created
type seedResult struct {
	Users   int
	Skipped int
	Boards  int
	Lists   int
	Cards   int
}

// seeder loads fixtures through the application services so that seeded
// data follows the same rules as data created over the API.
type seeder struct {
	auth   *services.AuthService
	boards *services.BoardService
	lists  *services.ListService
	cards  *services.CardService
	logger *logger.Logger
}

func newSeeder(db *sqlx.DB, jwt config.JWTConfig, log *logger.Logger) *seeder {
	userRepo := repository.NewUserRepository(db)
	boardRepo := repository.NewBoardRepository(db)
	listRepo := repository.NewListRepository(db)
	cardRepo := repository.NewCardRepository(db)

	return &seeder{
		auth:   services.NewAuthService(userRepo, repository.NewAuthRepository(db), jwt, log),
		boards: services.NewBoardService(boardRepo, listRepo, cardRepo, cache.NewNopBoardCache(), log),
		lists:  services.NewListService(boardRepo, listRepo, log),
		cards:  services.NewCardService(listRepo, cardRepo, log),
		logger: log.WithComponent("seed"),
	}
}

// Run creates every user of f with their boards. Users that already exist
// are skipped along with their boards, so running twice is harmless.
func (s *seeder) Run(ctx context.Context, f *seedFile) (seedResult, error) {
	var res seedResult

	for _, u := range f.Users {
		auth, err := s.auth.Register(ctx, ports.RegisterRequest{Email: u.Email, Password: u.Password, Name: u.Name})
		if errors.Is(err, entities.ErrUserExists) {
			s.logger.Infow("User exists, skipping", "email", u.Email)
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		res.Users++

		ownerID := auth.User.ID
		for _, b := range u.Boards {
			board, err := s.boards.CreateBoard(ctx, ownerID, ports.CreateBoardRequest{Title: b.Title})
			if err != nil {
				return res, fmt.Errorf("seed board %q: %w", b.Title, err)
			}
			res.Boards++

			for _, l := range b.Lists {
				list, err := s.lists.CreateList(ctx, ownerID, ports.CreateListRequest{BoardID: board.ID.String(), Name: l.Name})
				if err != nil {
					return res, fmt.Errorf("seed list %q: %w", l.Name, err)
				}
				res.Lists++

				for _, title := range l.Cards {
					_, err := s.cards.CreateCard(ctx, ownerID, ports.CreateCardRequest{
						BoardID: board.ID.String(),
						ListID:  list.ID.String(),
						Title:   title,
					})
					if err != nil {
						return res, fmt.Errorf("seed card %q: %w", title, err)
					}
					res.Cards++
				}
			}
		}
	}

	return res, nil
}

// NewSeedCommand creates the seed command
func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and boards",
		Long:  "Apply migrations and load the demo fixture (or a YAML file given with --file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			return runSeed(cmd, path)
		},
	}

	cmd.Flags().String("file", "", "YAML fixture to load instead of the built-in demo data")
	return cmd
}

func runSeed(cmd *cobra.Command, path string) error {
	data := defaultSeed
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		data = raw
	}

	fixture, err := parseSeed(data)
	if err != nil {
		return err
	}

	cfg, appLogger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer appLogger.Close()
	defer db.Close()

	if err := migrations.Up(db.DB.DB, db.Driver()); err != nil {
		return err
	}

	res, err := newSeeder(db.DB, cfg.JWT, appLogger).Run(cmd.Context(), fixture)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeded %d users (%d skipped), %d boards, %d lists, %d cards\n",
		res.Users, res.Skipped, res.Boards, res.Lists, res.Cards)
	for _, u := range fixture.Users {
		fmt.Fprintf(out, " - %s / %s\n", u.Email, u.Password)
	}
	return nil
}
