package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/cache"
)

var clearPattern string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the server cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached keys",
	Run:   runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the cache, or only keys containing --pattern",
	Run:   runCacheClear,
}

func init() {
	cacheClearCmd.Flags().StringVar(&clearPattern, "pattern", "", "only remove keys containing this substring")
	addClientFlags(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	client := newAPIClient(cfg)
	defer func() {
		_ = client.Close()
	}()

	res := client.CacheStats(context.Background())
	if !res.Success {
		fail(res.Error)
	}
	printStats(os.Stdout, res.Data)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	client := newAPIClient(cfg)
	defer func() {
		_ = client.Close()
	}()

	res := client.ClearCache(context.Background(), clearPattern)
	if !res.Success {
		fail(res.Error)
	}
	fmt.Println(res.Message)
}

func printStats(out io.Writer, stats cache.Stats) {
	_, _ = fmt.Fprintf(out, "%d cached entries\n", stats.Size)
	for _, key := range stats.Keys {
		_, _ = fmt.Fprintf(out, "  %s\n", key)
	}
}
