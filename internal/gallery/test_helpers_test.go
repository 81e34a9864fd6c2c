package gallery

import (
	"context"
	"sync"

	"github.com/cjones26/jackalope-web/internal/model"
)

// fakeFetcher 按页码应答的假后端，记录调用次数
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[int]*model.GalleryPage
	err   error
	calls int
}

func (f *fakeFetcher) ListGallery(_ context.Context, page, _ int) (*model.GalleryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.pages[page]
	if !ok {
		return &model.GalleryPage{CurrentPage: page}, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func img(id string) model.GalleryImage {
	return model.GalleryImage{ID: id, Width: 100, Height: 100, URL: "https://cdn.example.com/" + id}
}
