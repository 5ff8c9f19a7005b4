package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/keypool/internal/infra/storage/postgres"
)

var attemptsLimit int

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "List the most recent dispatch attempts from the audit log",
	Run:   runAttempts,
}

func init() {
	attemptsCmd.Flags().IntVar(&attemptsLimit, "limit", 50, "number of attempts to show")
	rootCmd.AddCommand(attemptsCmd)
}

func runAttempts(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		slog.Error("database.url is not configured")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	attempts, err := postgres.NewAttemptRepo(db).Recent(ctx, cfg.Pool.Name, attemptsLimit)
	if err != nil {
		slog.Error("Failed to query attempts", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TIME\tOPERATION\tKEY\tOUTCOME\tLATENCY\tERROR")
	for _, a := range attempts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t#%d %s\t%s\t%dms\t%s\n",
			a.CreatedAt.Format(time.RFC3339), a.Operation, a.KeyIndex, a.MaskedKey,
			a.Outcome, a.LatencyMs, a.Error)
	}
	_ = w.Flush()
}
