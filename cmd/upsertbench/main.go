package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/forum-ingest/config"
	"github.com/d60-Lab/forum-ingest/internal/model"
	"github.com/d60-Lab/forum-ingest/internal/repository"
	"github.com/d60-Lab/forum-ingest/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// 模拟多个采集并发写入重叠的帖子集合，验证 upsert 后总数不变
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	repo := repository.NewPostRepository(db)
	if err := repo.InitSchema(); err != nil {
		panic(err)
	}
	defer repo.Close()

	N := envInt("N", 5000)       // 不同帖子数
	BATCH := envInt("BATCH", 20) // 每次 upsert 条数（约一页）
	CONC := envInt("CONC", 4)    // 并发写入者
	ROUNDS := envInt("ROUNDS", 2)

	ctx := context.Background()
	prefix := uuid.New().String()[:8]
	base := time.Now().UTC().Truncate(time.Second)

	before := must(repo.Count(ctx))

	build := func(round, i int) *model.Post {
		native := fmt.Sprintf("%s%06d", prefix, i)
		return &model.Post{
			ID:           model.PostID(model.PlatformEastmoney, native),
			NativeID:     native,
			Title:        fmt.Sprintf("bench post %d r%d", i, round),
			Author:       model.Author{ID: "bench", Nickname: model.AnonymousNickname},
			StockCode:    fmt.Sprintf("%06d", i%50),
			PublishTime:  base.Add(-time.Duration(i) * time.Minute),
			ClickCount:   int64(round * 10),
			CommentCount: int64(round),
			Source:       model.PlatformEastmoney,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
	}

	var (
		mu   sync.Mutex
		lats []time.Duration
		errs int
	)
	t0 := time.Now()
	for round := 1; round <= ROUNDS; round++ {
		feed := make(chan int, N/BATCH+1)
		for start := 0; start < N; start += BATCH {
			feed <- start
		}
		close(feed)

		var wg sync.WaitGroup
		for w := 0; w < CONC; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for start := range feed {
					end := min(start+BATCH, N)
					posts := make([]*model.Post, 0, end-start)
					for i := start; i < end; i++ {
						posts = append(posts, build(round, i))
					}
					st := time.Now()
					_, err := repo.UpsertMany(ctx, posts)
					d := time.Since(st)
					mu.Lock()
					lats = append(lats, d)
					if err != nil {
						errs++
					}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
	}
	total := time.Since(t0)

	after := must(repo.Count(ctx))
	fmt.Printf("N=%d, BATCH=%d, CONC=%d, ROUNDS=%d\n", N, BATCH, CONC, ROUNDS)
	fmt.Printf("upsert batches=%d errors=%d total=%v p50=%v p95=%v p99=%v\n",
		len(lats), errs, total, pct(lats, 0.50), pct(lats, 0.95), pct(lats, 0.99))
	fmt.Printf("rows before=%d after=%d inserted=%d (expected %d)\n", before, after, after-before, N)
}
