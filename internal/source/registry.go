package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/d60-Lab/forum-ingest/config"
	"github.com/d60-Lab/forum-ingest/internal/model"
)

// Registry 平台 -> 适配器，启动时构建，运行期只读
type Registry struct {
	adapters map[model.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[model.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// NewDefaultRegistry 按配置注册内置平台
func NewDefaultRegistry(cfg config.CrawlerConfig) *Registry {
	f := NewFetcher(cfg.HTTPTimeout, cfg.UserAgent)
	return NewRegistry(
		NewEastmoneyAdapter(f, optionsFor(cfg, model.PlatformEastmoney)),
		NewXueqiuAdapter(f, optionsFor(cfg, model.PlatformXueqiu)),
	)
}

func optionsFor(cfg config.CrawlerConfig, p model.Platform) Options {
	pc := cfg.Platform(string(p))
	return Options{BaseURL: pc.BaseURL, Delay: pc.Delay, Headers: pc.Headers}
}

// Resolve 查找平台适配器；未注册时错误信息列出可用平台
func (r *Registry) Resolve(platform string) (Adapter, error) {
	a, ok := r.adapters[model.Platform(platform)]
	if !ok {
		return nil, fmt.Errorf("%w: %q, must be one of: %s",
			model.ErrUnsupportedPlatform, platform, strings.Join(r.supportedNames(), ", "))
	}
	return a, nil
}

// Supported 已注册平台，按名称排序
func (r *Registry) Supported() []model.Platform {
	out := make([]model.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) supportedNames() []string {
	ps := r.Supported()
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return names
}
