package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ranpulse/core-go/internal/db"
	"ranpulse/core-go/internal/network"
	"ranpulse/core-go/internal/source"
	"ranpulse/core-go/internal/sqlcgen"
)

// TowerUpserter writes rows to the towers registry.
type TowerUpserter interface {
	UpsertTower(ctx context.Context, arg sqlcgen.UpsertTowerParams) error
}

var importTowersCmd = &cobra.Command{
	Use:   "import-towers <url-or-file>",
	Short: "Load a towers JSON document into the database registry",
	Long: `Read a towers JSON array (the same shape the JSON towers source serves)
from an http(s) URL or a local file and upsert every tower into the towers
table. The registry names clustered towers and is served when no calls
have been recorded yet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("import-towers requires database.url")
		}
		pool, err := db.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		fetcher := source.NewFetcher(cfg.Sources.FetchTimeout)
		log := zerolog.New(cmd.ErrOrStderr()).Level(zerolog.WarnLevel)
		return runImportTowers(cmd.Context(), source.JSONTowers(fetcher, args[0], log), pool.Queries(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(importTowersCmd)
}

func runImportTowers(ctx context.Context, src source.Source[[]network.Tower], q TowerUpserter, out io.Writer) error {
	towers, err := src.Fetch(ctx)
	if err != nil {
		return err
	}
	for _, t := range towers {
		if err := q.UpsertTower(ctx, upsertParams(t)); err != nil {
			return fmt.Errorf("upsert tower %s: %w", t.ID, err)
		}
	}
	fmt.Fprintf(out, "Imported %d towers\n", len(towers))
	return nil
}

func upsertParams(t network.Tower) sqlcgen.UpsertTowerParams {
	p := sqlcgen.UpsertTowerParams{
		CellID:        t.ID,
		Lat:           t.Lat,
		Lng:           t.Lng,
		Status:        string(t.Status),
		Bands:         t.Bands,
		AdjacentCells: t.AdjacentCells,
	}
	if t.Name != "" {
		name := t.Name
		p.Name = &name
	}
	if t.MaxCapacity != nil {
		c := int32(*t.MaxCapacity)
		p.MaxCapacity = &c
	}
	if t.City != "" {
		city := t.City
		p.City = &city
	}
	if t.AreaType != "" {
		area := t.AreaType
		p.AreaType = &area
	}
	if t.MgmtHost != "" {
		host := t.MgmtHost
		p.MgmtHost = &host
	}
	return p
}
