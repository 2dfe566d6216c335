package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/anomalyparse"
	"ranpulse/core-go/internal/db"
	"ranpulse/core-go/internal/sqlcgen"
)

// AnomalyInserter stores parsed anomalies as anomaly-detected events.
type AnomalyInserter interface {
	InsertAnomalyEvent(ctx context.Context, arg sqlcgen.InsertAnomalyEventParams) (int64, error)
}

var parseToDB bool

var parseAnomaliesCmd = &cobra.Command{
	Use:   "parse-anomalies [in] [out.json] [out.csv]",
	Short: "Parse LLM anomaly reports into anomalies.json and CSV",
	Long: `Read upstream records (a JSON array, a single object or NDJSON) whose
"event" field holds a free-text anomaly report, parse every report and write
the rows as a JSON array and a CSV file.

Defaults: payload.json, anomalies.json, anomalies.csv. With --db the rows are
also inserted into the events table of the configured database.`,
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := []string{"payload.json", "anomalies.json", "anomalies.csv"}
		copy(paths, args)

		var inserter AnomalyInserter
		if parseToDB {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("--db requires database.url")
			}
			pool, err := db.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			inserter = pool.Queries()
		}
		return runParseAnomalies(cmd.Context(), paths[0], paths[1], paths[2], inserter, cmd.OutOrStdout())
	},
}

func init() {
	parseAnomaliesCmd.Flags().BoolVar(&parseToDB, "db", false, "also insert the parsed anomalies into the database")
	rootCmd.AddCommand(parseAnomaliesCmd)
}

func runParseAnomalies(ctx context.Context, in, outJSON, outCSV string, inserter AnomalyInserter, out io.Writer) error {
	items, err := anomalyparse.LoadFile(in)
	if err != nil {
		return err
	}
	rows := anomalyparse.Flatten(items)

	if err := writeFile(outJSON, func(w io.Writer) error { return anomalyparse.WriteJSON(w, rows) }); err != nil {
		return err
	}
	if err := writeFile(outCSV, func(w io.Writer) error { return anomalyparse.WriteCSV(w, rows) }); err != nil {
		return err
	}

	if inserter != nil {
		now := time.Now().UTC()
		for i, r := range rows {
			if _, err := inserter.InsertAnomalyEvent(ctx, anomalyEventParams(r, now)); err != nil {
				return fmt.Errorf("insert anomaly %d: %w", i, err)
			}
		}
	}

	fmt.Fprintf(out, "Parsed %d anomalies from %d records -> %s, %s\n", len(rows), len(items), outJSON, outCSV)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// anomalyEventParams maps a parsed row to an events row. Rows without a
// usable creation date are stamped with now.
func anomalyEventParams(r anomalyparse.Row, now time.Time) sqlcgen.InsertAnomalyEventParams {
	at, ok := anomaly.ParseTimestamp(r.CreationDate)
	if !ok || at.After(now) {
		at = now
	}
	band := strconv.Itoa(r.Band)
	p := sqlcgen.InsertAnomalyEventParams{
		EventTime:   at,
		CellID:      strconv.Itoa(r.CellID),
		Band:        &band,
		AnomalyType: r.AnomalyType,
		Message:     r.Anomaly,
	}
	if r.SourceID != "" {
		src := r.SourceID
		p.SourceID = &src
	}
	if r.RecommendedFix != "" {
		fix := r.RecommendedFix
		p.RecommendedFix = &fix
	}
	return p
}
