package gallery

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cjones26/jackalope-web/internal/api"
	"github.com/cjones26/jackalope-web/internal/model"
	"github.com/cjones26/jackalope-web/internal/store"

	"golang.org/x/time/rate"
)

// 图库分页缓存
// 持有按页码有序的一组分页，向渲染层暴露拼接后的扁平序列
// 删除采用乐观更新：先本地移除，再发请求，后台重抓对账（失败不回滚）

// Fetcher 抓取一页图库数据
type Fetcher interface {
	ListGallery(ctx context.Context, page, limit int) (*model.GalleryPage, error)
}

type Cache struct {
	mu       sync.Mutex
	fetcher  Fetcher
	store    *store.Store
	pageSize int

	pages    []model.GalleryPage
	total    int
	hasMore  bool
	fetched  bool // 首页是否已抓取过
	fetching bool // 是否有抓取在途
	warm     []model.GalleryImage

	// 对账重抓的节流器：并发触发的多次刷新收敛为一次
	refetchLimiter *rate.Limiter
}

func NewCache(fetcher Fetcher, st *store.Store, pageSize int) *Cache {
	if pageSize <= 0 {
		pageSize = 20
	}
	c := &Cache{
		fetcher:        fetcher,
		store:          st,
		pageSize:       pageSize,
		hasMore:        true,
		refetchLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1), // 500ms 一次，突发 1
	}
	// 启动时先用本地缓存副本充当首屏数据，等第一次抓取完成后被覆盖
	if st != nil {
		if images, err := st.LoadImages(); err == nil && len(images) > 0 {
			c.warm = images
		}
	}
	return c
}

// FetchFirst 抓取首页并重置缓存；首页 404 视为空图库而非错误
func (c *Cache) FetchFirst(ctx context.Context) error {
	c.mu.Lock()
	if c.fetching {
		c.mu.Unlock()
		return nil
	}
	c.fetching = true
	c.mu.Unlock()

	page, err := c.fetcher.ListGallery(ctx, 1, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false
	c.fetched = true
	c.warm = nil

	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.pages = nil
			c.total = 0
			c.hasMore = false
			c.persistLocked()
			return nil
		}
		return err
	}

	c.pages = []model.GalleryPage{*page}
	c.total = page.Total
	c.hasMore = page.HasMore
	c.persistLocked()
	return nil
}

// FetchNext 追加下一页；没有下一页或已有抓取在途时为空操作
func (c *Cache) FetchNext(ctx context.Context) error {
	c.mu.Lock()
	if c.fetching || !c.hasMore || !c.fetched {
		c.mu.Unlock()
		return nil
	}
	next := len(c.pages) + 1
	c.fetching = true
	c.mu.Unlock()

	page, err := c.fetcher.ListGallery(ctx, next, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false
	if err != nil {
		return err
	}

	c.pages = append(c.pages, *page)
	c.total = page.Total
	c.hasMore = page.HasMore
	c.persistLocked()
	return nil
}

// Flatten 返回所有分页按抓取顺序拼接后的图片序列
// 分页之间约定不重叠，不做去重
func (c *Cache) Flatten() []model.GalleryImage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fetched && len(c.warm) > 0 {
		out := make([]model.GalleryImage, len(c.warm))
		copy(out, c.warm)
		return out
	}
	var out []model.GalleryImage
	for _, page := range c.pages {
		out = append(out, page.Images...)
	}
	return out
}

func (c *Cache) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fetched && len(c.warm) > 0 {
		return len(c.warm)
	}
	return c.total
}

func (c *Cache) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

func (c *Cache) Fetched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetched
}

// RemoveLocally 乐观删除：在网络请求发出之前同步移除匹配记录
// 请求失败时不回滚，由后台重抓收敛到权威状态
func (c *Cache) RemoveLocally(ids ...string) {
	if len(ids) == 0 {
		return
	}
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for i := range c.pages {
		images := c.pages[i].Images[:0]
		for _, img := range c.pages[i].Images {
			if _, hit := idSet[img.ID]; hit {
				removed++
				continue
			}
			images = append(images, img)
		}
		c.pages[i].Images = images
	}
	if removed > 0 {
		c.total -= removed
		if c.total < 0 {
			c.total = 0
		}
	}
	if c.store != nil {
		_ = c.store.DeleteImages(ids)
	}
}

// Invalidate 后台对账：重抓已加载的页数，覆盖本地状态
// 经节流器收敛，密集触发时只执行一次
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.refetchLimiter.Allow() {
		return
	}

	c.mu.Lock()
	if c.fetching {
		c.mu.Unlock()
		return
	}
	loaded := len(c.pages)
	if loaded == 0 {
		loaded = 1
	}
	c.fetching = true
	c.mu.Unlock()

	var pages []model.GalleryPage
	var total int
	hasMore := false
	for n := 1; n <= loaded; n++ {
		page, err := c.fetcher.ListGallery(ctx, n, c.pageSize)
		if err != nil {
			if errors.Is(err, api.ErrNotFound) && n == 1 {
				break
			}
			log.Printf("⚠️ 图库对账重抓第 %d 页失败: %v", n, err)
			c.mu.Lock()
			c.fetching = false
			c.mu.Unlock()
			return
		}
		pages = append(pages, *page)
		total = page.Total
		hasMore = page.HasMore
		if !page.HasMore {
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false
	c.fetched = true
	c.warm = nil
	c.pages = pages
	c.total = total
	c.hasMore = hasMore
	c.persistLocked()
}

// Reset 清空缓存（登出时调用）
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = nil
	c.total = 0
	c.hasMore = true
	c.fetched = false
	c.warm = nil
	if c.store != nil {
		_ = c.store.ClearImages()
	}
}

// persistLocked 把当前各分页落盘为本地缓存副本，调用方必须持有 c.mu
func (c *Cache) persistLocked() {
	if c.store == nil {
		return
	}
	_ = c.store.ClearImages()
	for i, page := range c.pages {
		if err := c.store.ReplacePageImages(i+1, page.Images); err != nil {
			log.Printf("⚠️ 图库缓存落盘失败: %v", err)
			return
		}
	}
}
