package upload

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// 预览资源注册表
// 以稳定的文件身份为键持有缩略图文件，保证每个资源恰好释放一次：
// 移除待传项时释放一次，或组件销毁时统一释放，绝不重复

type previewEntry struct {
	path     string
	released bool
}

type PreviewRegistry struct {
	mu      sync.Mutex
	dir     string
	width   uint
	entries map[string]*previewEntry
}

func NewPreviewRegistry(dir string, width int) (*PreviewRegistry, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if width <= 0 {
		width = 320
	}
	return &PreviewRegistry{
		dir:     dir,
		width:   uint(width),
		entries: make(map[string]*previewEntry),
	}, nil
}

// FileKey 文件的稳定身份：同一个文件反复选择不会重复生成预览
func FileKey(name string, size int64, modUnix int64) string {
	return fmt.Sprintf("%s-%d-%d", name, size, modUnix)
}

// Acquire 为源文件生成（或复用）预览缩略图，返回缩略图路径
func (r *PreviewRegistry) Acquire(key, srcPath string) (string, error) {
	r.mu.Lock()
	if entry, ok := r.entries[key]; ok && !entry.released {
		r.mu.Unlock()
		return entry.path, nil
	}
	r.mu.Unlock()

	thumbPath, err := r.generate(srcPath)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.entries[key] = &previewEntry{path: thumbPath}
	r.mu.Unlock()
	return thumbPath, nil
}

// Release 释放一个预览资源；对已释放的键再次调用是无操作
func (r *PreviewRegistry) Release(key string) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok || entry.released {
		r.mu.Unlock()
		return
	}
	entry.released = true
	path := entry.path
	r.mu.Unlock()

	_ = os.Remove(path)
}

// Path 查询未释放的预览路径
func (r *PreviewRegistry) Path(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok || entry.released {
		return "", false
	}
	return entry.path, true
}

// Close 组件销毁时批量释放所有仍持有的预览资源
func (r *PreviewRegistry) Close() {
	r.mu.Lock()
	var paths []string
	for _, entry := range r.entries {
		if !entry.released {
			entry.released = true
			paths = append(paths, entry.path)
		}
	}
	r.mu.Unlock()

	for _, path := range paths {
		_ = os.Remove(path)
	}
}

// generate 解码源图并缩放为预览图；无法解码的格式（如 webp）退化为原样拷贝
func (r *PreviewRegistry) generate(srcPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	img, _, err := image.Decode(src)
	if err != nil {
		return r.copyOriginal(srcPath)
	}

	thumb := resize.Resize(r.width, 0, img, resize.Lanczos3)
	out := filepath.Join(r.dir, uuid.New().String()+".jpg")
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	if err := jpeg.Encode(f, thumb, &jpeg.Options{Quality: 80}); err != nil {
		_ = os.Remove(out)
		return "", err
	}
	return out, nil
}

func (r *PreviewRegistry) copyOriginal(srcPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	out := filepath.Join(r.dir, uuid.New().String()+filepath.Ext(srcPath))
	dst, err := os.Create(out)
	if err != nil {
		return "", err
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(out)
		return "", err
	}
	return out, nil
}
