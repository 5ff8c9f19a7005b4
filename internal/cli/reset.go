package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var adminAddr string

var resetCmd = &cobra.Command{
	Use:   "reset [index]",
	Short: "Clear cooldowns and failure counters for one key or the whole pool",
	Args:  cobra.MaximumNArgs(1),
	Run:   runReset,
}

func init() {
	resetCmd.Flags().StringVar(&adminAddr, "addr", "", "admin API address (default http://localhost:<server.port>)")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	addr := adminAddr
	if addr == "" {
		addr = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	path := "/pool/reset"
	if len(args) == 1 {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Printf("Invalid key index: %v\n", err)
			os.Exit(1)
		}
		path = fmt.Sprintf("/pool/reset/%d", index)
	}

	body, err := postAdmin(strings.TrimRight(addr, "/") + path)
	if err != nil {
		slog.Error("Failed to reset", "error", err)
		os.Exit(1)
	}
	fmt.Println(strings.TrimSpace(body))
}

func postAdmin(url string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("admin API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return string(data), nil
}
