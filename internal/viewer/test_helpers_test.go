package viewer

import (
	"context"
	"errors"
	"sync"

	"github.com/cjones26/jackalope-web/internal/api"
	"github.com/cjones26/jackalope-web/internal/model"
)

// fakeEditor 记录更新/删除调用的假后端
type fakeEditor struct {
	mu        sync.Mutex
	updates   []string
	deletes   []string
	updateErr error
	deleteErr error
}

func (f *fakeEditor) UpdateImage(_ context.Context, id string, meta api.ImageMeta) (*model.GalleryImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, id)
	return &model.GalleryImage{ID: id, Title: meta.Title, Description: meta.Description, Tags: meta.Tags}, nil
}

func (f *fakeEditor) DeleteImage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, id)
	return nil
}

var errBackendDown = errors.New("backend down")

func threeImages() []model.GalleryImage {
	return []model.GalleryImage{
		{ID: "a", Title: "甲", Tags: []string{"t1"}},
		{ID: "b", Title: "乙"},
		{ID: "c", Title: "丙"},
	}
}
