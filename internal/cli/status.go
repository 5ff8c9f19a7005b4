package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	redisclient "github.com/vietddude/keypool/internal/infra/redis"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last pool snapshot mirrored to Redis",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Redis.URL == "" {
		slog.Error("redis.url is not configured")
		os.Exit(1)
	}

	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = client.Close()
	}()

	snap, found, err := client.LoadSnapshot(context.Background(), cfg.Pool.Name)
	if err != nil {
		slog.Error("Failed to load snapshot", "error", err)
		os.Exit(1)
	}
	if !found {
		fmt.Printf("No snapshot for pool %q (is the service running?)\n", cfg.Pool.Name)
		return
	}

	s := snap.Stats
	fmt.Printf("Pool %s: %d/%d available, %d cooling, cursor %d, exhaustions %d (captured %s)\n",
		s.Name, s.Available, s.Total, s.Cooling, s.Cursor, s.Exhaustions,
		snap.CapturedAt.Format(time.RFC3339))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "INDEX\tKEY\tHEALTHY\tCOOLDOWN\tREQUESTS\tSUCCESS\tRATE LIMITS\tLAST USED\tLAST ERROR")
	for _, k := range s.Keys {
		cooldown := "-"
		if k.Cooling {
			cooldown = fmt.Sprintf("%ds", k.CooldownRemaining)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%d\t%s\t%d\t%s\t%s\n",
			k.Index, k.Key, k.Healthy, cooldown, k.TotalRequests,
			k.SuccessRate, k.RateLimitHits, k.LastUsed, k.LastError)
	}
	_ = w.Flush()
}
