package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/config"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/queue"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon configuration and queue health",
		Run: func(cmd *cobra.Command, args []string) {
			runStatus()
		},
	}
}

func runStatus() {
	fmt.Println("claude-sync-daemon status")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  Go:       %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (not found, using defaults)")
	} else {
		fmt.Println(" (found)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Printf("  Data home:          %s\n", cfg.DataHome)
	fmt.Printf("  Tracker team:       %s\n", cfg.Tracker.TeamKey)
	fmt.Printf("  Tracker token set:  %v\n", cfg.TrackerToken != "")
	fmt.Printf("  Semantic matching:  %v\n", cfg.Matcher.EnableSemantic)
	fmt.Printf("  Postgres mirror:    %v\n", cfg.PGMirrorEnabled)
	fmt.Println()

	q := queue.New(cfg.QueuePath())
	records, err := q.ReadAll()
	if err != nil {
		fmt.Printf("  Queue:    read failed (%s)\n", err)
		return
	}
	counts := map[queue.Status]int{}
	for _, r := range records {
		counts[r.Status]++
	}
	fmt.Printf("  Queue:    %s\n", cfg.QueuePath())
	fmt.Printf("    pending:    %d\n", counts[queue.StatusPending])
	fmt.Printf("    processing: %d\n", counts[queue.StatusProcessing])
	fmt.Printf("    processed:  %d\n", counts[queue.StatusProcessed])
	fmt.Printf("    failed:     %d\n", counts[queue.StatusFailed])
}
