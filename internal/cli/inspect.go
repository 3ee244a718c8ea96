package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"chara-quiz-service/internal/app"
	"chara-quiz-service/internal/config"
	"chara-quiz-service/internal/infra/memory"
	pgstore "chara-quiz-service/internal/infra/postgres"
)

// NewInspectCmd generates the question pool once and prints a per-template
// breakdown, for checking a dataset before serving it.
func NewInspectCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Generate the question pool and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), *configPath)
		},
	}
}

func runInspect(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var loader app.CharacterLoader = memory.NewStaticCharacterLoader(sampleCharacters())
	switch {
	case cfg.Quiz.Dataset != "":
		loader = memory.NewFileCharacterLoader(cfg.Quiz.Dataset)
	case cfg.Postgres.URL != "":
		pgPool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		loader = pgstore.NewCharacterLoader(pgPool)
	}

	pool, err := app.NewPoolBuilder(loader, nil).Build(ctx)
	if err != nil {
		return err
	}
	if len(pool.Questions) == 0 {
		return fmt.Errorf("dataset produced no questions")
	}

	counts := make(map[string]int)
	for _, q := range pool.Questions {
		counts[string(q.Type)]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Printf("characters: %d\n", len(pool.Characters))
	fmt.Printf("questions:  %d\n", len(pool.Questions))
	for _, t := range types {
		fmt.Printf("  %-24s %d\n", t, counts[t])
	}
	return nil
}
