package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/d60-Lab/forum-ingest/internal/app"
	"github.com/d60-Lab/forum-ingest/internal/service"
)

func newCrawlCommand() *cobra.Command {
	var in service.TriggerCrawlInput
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a page range for one stock code and upsert the posts",
		Example: `  ingest crawl --code 002085 --platform eastmoney --start 1 --end 3
  ingest crawl --code 600519 --platform xueqiu`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				res, err := a.CrawlService.TriggerCrawl(cmd.Context(), in)
				if res != nil {
					t := newTable()
					t.SetTitle(fmt.Sprintf("run %s (%s)", res.RunID, res.Platform))
					t.AppendHeader(table.Row{"Page", "Records", "Status"})
					for _, p := range res.Pages {
						status := "ok"
						if p.Failed() {
							status = p.Error
						}
						t.AppendRow(table.Row{p.Page, p.Count, status})
					}
					t.AppendFooter(table.Row{"posts", res.Count, fmt.Sprintf("saved %d", res.Saved)})
					t.Render()
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&in.StockCode, "code", "c", "", "stock code, e.g. 002085")
	cmd.Flags().StringVarP(&in.Platform, "platform", "p", string(service.DefaultPlatform), "platform id")
	cmd.Flags().IntVar(&in.PageStart, "start", 1, "first page (inclusive)")
	cmd.Flags().IntVar(&in.PageEnd, "end", 1, "last page (inclusive)")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newPostsCommand() *cobra.Command {
	var (
		code, platform string
		limit          int
	)
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List stored posts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				posts, err := a.PostService.ListPosts(cmd.Context(), code, platform, limit)
				if err != nil {
					return err
				}
				t := newTable()
				t.AppendHeader(table.Row{"ID", "Stock", "Published", "Author", "Clicks", "Comments", "Title"})
				for _, p := range posts {
					t.AppendRow(table.Row{
						p.ID, p.StockCode, p.PublishTime.Format(time.RFC3339), p.Author.Nickname,
						p.ClickCount, p.CommentCount, truncate(p.Title, 40),
					})
				}
				t.AppendFooter(table.Row{"", "", "", "", "", "total", len(posts)})
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&code, "code", "c", "", "filter by stock code")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "filter by platform")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max rows")
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals by platform and top stock codes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				stats, err := a.PostService.GetStats(cmd.Context())
				if err != nil {
					return err
				}
				t := newTable()
				t.SetTitle(fmt.Sprintf("total posts: %d", stats.TotalPosts))
				t.AppendHeader(table.Row{"Group", "Key", "Posts"})
				for _, k := range sortedKeys(stats.ByPlatform) {
					t.AppendRow(table.Row{"platform", k, stats.ByPlatform[k]})
				}
				t.AppendSeparator()
				for _, k := range sortedKeys(stats.ByStock) {
					t.AppendRow(table.Row{"stock", k, stats.ByStock[k]})
				}
				t.Render()
				return nil
			})
		},
	}
}

func newPlatformsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List supported platforms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				for _, p := range a.Registry.Supported() {
					fmt.Println(p)
				}
				return nil
			})
		},
	}
}

func newRunsCommand() *cobra.Command {
	var (
		code, platform string
		limit          int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent crawl runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				runs, err := a.CrawlService.ListRuns(cmd.Context(), code, platform, limit)
				if err != nil {
					return err
				}
				t := newTable()
				t.AppendHeader(table.Row{"Run", "Platform", "Stock", "Pages", "Saved", "Failed", "Status", "Started", "Took"})
				for _, r := range runs {
					t.AppendRow(table.Row{
						r.ID, r.Platform, r.StockCode, fmt.Sprintf("%d-%d", r.PageStart, r.PageEnd),
						r.Saved, r.FailedPages, r.Status, r.StartedAt.Local().Format(time.DateTime),
						r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
					})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&code, "code", "c", "", "filter by stock code")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "filter by platform")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max rows")
	return cmd
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	return t
}

// sortedKeys 按数量倒序，数量相同按名称
func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
