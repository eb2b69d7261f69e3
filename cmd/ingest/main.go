package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/forum-ingest/config"
	"github.com/d60-Lab/forum-ingest/internal/app"
)

var configDir string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Crawl stock forum posts and query the local store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory containing config.yaml")
	root.AddCommand(newCrawlCommand(), newPostsCommand(), newStatsCommand(), newPlatformsCommand(),
		newRunsCommand())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp 初始化组件，执行 fn 后释放
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(a)
}
