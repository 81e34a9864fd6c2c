package upload

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/cjones26/jackalope-web/internal/api"
	"github.com/cjones26/jackalope-web/internal/testutils"
)

// fakeUploader 记录提交顺序的假后端
type fakeUploader struct {
	mu        sync.Mutex
	filenames []string
	failAfter int // 第 N 次调用开始失败，0 表示不失败
	calls     int
}

func (f *fakeUploader) UploadImage(_ context.Context, _ api.ImageMeta, filename string, file io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return errors.New("upload rejected")
	}
	_, _ = io.Copy(io.Discard, file)
	f.filenames = append(f.filenames, filename)
	return nil
}

// slowUploader 第一次上传时阻塞到 release 关闭为止，用于构造在途提交
type slowUploader struct {
	fakeUploader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newSlowUploader() *slowUploader {
	return &slowUploader{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *slowUploader) UploadImage(ctx context.Context, meta api.ImageMeta, filename string, file io.Reader) error {
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return s.fakeUploader.UploadImage(ctx, meta, filename, file)
}

func (f *fakeUploader) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.filenames))
	copy(out, f.filenames)
	return out
}

func newTestPipeline(t *testing.T, uploader Uploader, maxFiles int) *Pipeline {
	t.Helper()
	previews, err := NewPreviewRegistry(t.TempDir(), 64)
	if err != nil {
		t.Fatalf("NewPreviewRegistry: %v", err)
	}
	p := NewPipeline(uploader, previews, maxFiles, 10, ".jpg,.jpeg,.png,.webp,.gif", nil)
	t.Cleanup(p.Close)
	return p
}

// writePNGs 生成 n 个合法 PNG 文件并返回路径
func writePNGs(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := string(rune('a'+i)) + ".png"
		paths = append(paths, testutils.WriteTempPNG(t, dir, name))
	}
	return paths
}
