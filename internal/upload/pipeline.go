package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cjones26/jackalope-web/internal/api"

	"github.com/google/uuid"
)

// 上传管线
// 维护一个带校验的待传队列，每项携带可编辑元数据与客户端生成的稳定 id；
// 提交按队列顺序逐个串行发送，进度条为固定节奏的模拟值（到 95 封顶，完成后跳到 100）
// 队列接管暂存文件的所有权：移除、清空或提交成功后随队列项一并删除

var (
	ErrQueueEmpty = errors.New("upload: 待传队列为空")
	ErrBusy       = errors.New("upload: 已有提交在进行中")
)

// Uploader 发送单个 multipart 上传请求
type Uploader interface {
	UploadImage(ctx context.Context, meta api.ImageMeta, filename string, file io.Reader) error
}

// Item 一个待提交的上传项，成功提交或显式移除后即丢弃
type Item struct {
	LocalID     string
	Path        string
	Filename    string
	Size        int64
	MimeExt     string
	PreviewKey  string
	Title       string
	Description string
	Tags        []string
}

type Pipeline struct {
	mu       sync.Mutex
	uploader Uploader
	previews *PreviewRegistry

	maxFiles    int
	maxSizeMB   int
	allowedExts string

	items      []Item
	current    int // 活跃预览项下标，-1 表示无
	message    string
	submitting bool
	progress   int
	onSuccess  func()
}

func NewPipeline(uploader Uploader, previews *PreviewRegistry, maxFiles, maxSizeMB int, allowedExts string, onSuccess func()) *Pipeline {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &Pipeline{
		uploader:    uploader,
		previews:    previews,
		maxFiles:    maxFiles,
		maxSizeMB:   maxSizeMB,
		allowedExts: allowedExts,
		current:     -1,
		onSuccess:   onSuccess,
	}
}

// SelectFiles 把一批文件加入待传队列，接管所有传入路径的所有权
// 超出剩余容量的部分被截断并记录提示；单个文件校验失败只跳过该文件；
// 被截断或被跳过的暂存文件立即删除。同一批产生的提示合并保留
// 返回实际加入的数量
func (p *Pipeline) SelectFiles(paths []string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.message = ""
	available := p.maxFiles - len(p.items)
	if available <= 0 {
		for _, path := range paths {
			_ = os.Remove(path)
		}
		p.message = fmt.Sprintf("一次最多只能上传 %d 张图片", p.maxFiles)
		return 0
	}
	var notes []string
	if len(paths) > available {
		for _, path := range paths[available:] {
			_ = os.Remove(path)
		}
		paths = paths[:available]
		notes = append(notes, fmt.Sprintf("已达到 %d 张上限，仅添加了前 %d 个文件", p.maxFiles, available))
	}

	wasEmpty := len(p.items) == 0
	added := 0
	for _, path := range paths {
		ext, err := ValidateImageFile(path, p.maxSizeMB, p.allowedExts)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			_ = os.Remove(path)
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: 无法读取文件", filepath.Base(path)))
			_ = os.Remove(path)
			continue
		}

		item := Item{
			LocalID:    uuid.New().String(),
			Path:       path,
			Filename:   filepath.Base(path),
			Size:       info.Size(),
			MimeExt:    ext,
			PreviewKey: FileKey(filepath.Base(path), info.Size(), info.ModTime().Unix()),
			Tags:       []string{},
		}
		if p.previews != nil {
			if _, err := p.previews.Acquire(item.PreviewKey, path); err != nil {
				notes = append(notes, fmt.Sprintf("%s: 生成预览失败", item.Filename))
			}
		}
		p.items = append(p.items, item)
		added++
	}

	// 第一批加入的文件自动选中第一张用于编辑
	if wasEmpty && added > 0 {
		p.current = 0
	}
	p.message = strings.Join(notes, "；")
	return added
}

// RemoveFile 移除一个待传项，删除其暂存文件并释放预览资源
// 提交在途时拒绝，防止删除正在上传的暂存文件
// 如果移除的是活跃预览项，选中相邻的有效项；队列清空则取消选中
func (p *Pipeline) RemoveFile(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.submitting {
		return ErrBusy
	}
	if index < 0 || index >= len(p.items) {
		return fmt.Errorf("upload: 非法的队列下标 %d", index)
	}

	removed := p.items[index]
	lastIndex := len(p.items) - 1
	p.items = append(p.items[:index], p.items[index+1:]...)

	if p.current == index {
		switch {
		case len(p.items) == 0:
			p.current = -1
		case index == lastIndex:
			p.current = index - 1
		}
		// 其余情况保持下标不变，自然指向后移进来的相邻项
	} else if p.current > index {
		p.current--
	}

	p.releaseItemLocked(removed)
	return nil
}

// ClearAll 清空队列，删除暂存文件并释放全部预览
func (p *Pipeline) ClearAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range p.items {
		p.releaseItemLocked(item)
	}
	p.items = nil
	p.current = -1
	p.message = ""
}

// SetMetadata 更新某个待传项的可编辑元数据；标签按插入顺序去重
func (p *Pipeline) SetMetadata(index int, title, description string, tags []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.items) {
		return fmt.Errorf("upload: 非法的队列下标 %d", index)
	}
	p.items[index].Title = title
	p.items[index].Description = description
	p.items[index].Tags = dedupTags(tags)
	return nil
}

// Select 把活跃预览切换到指定项
func (p *Pipeline) Select(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= 0 && index < len(p.items) {
		p.current = index
	}
}

// NavigateNext / NavigatePrev 在待传项之间移动，出界为空操作
func (p *Pipeline) NavigateNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current >= 0 && p.current < len(p.items)-1 {
		p.current++
	}
}

func (p *Pipeline) NavigatePrev() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current > 0 {
		p.current--
	}
}

// Submit 按队列顺序串行提交所有待传项
// 队列为空或已有提交在途时拒绝；失败保留队列供重试，成功清空队列并回调
func (p *Pipeline) Submit(ctx context.Context) error {
	p.mu.Lock()
	if p.submitting {
		p.mu.Unlock()
		return ErrBusy
	}
	if len(p.items) == 0 {
		p.mu.Unlock()
		return ErrQueueEmpty
	}
	p.submitting = true
	p.progress = 0
	pending := make([]Item, len(p.items))
	copy(pending, p.items)
	p.mu.Unlock()

	// 模拟进度：每 300ms +5，到 95 封顶；这只是交互反馈，不是真实传输进度
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(300 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.mu.Lock()
				if p.progress < 95 {
					p.progress += 5
				}
				p.mu.Unlock()
			}
		}
	}()

	err := p.submitAll(ctx, pending)
	close(stop) // 无论成败都必须停掉进度定时器

	p.mu.Lock()
	p.submitting = false
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.progress = 100
	// 只清掉本次提交的快照；提交期间新选入的文件留在队列中等待下一次提交
	submitted := make(map[string]struct{}, len(pending))
	for _, item := range pending {
		submitted[item.LocalID] = struct{}{}
	}
	var kept, done []Item
	for _, item := range p.items {
		if _, ok := submitted[item.LocalID]; ok {
			done = append(done, item)
		} else {
			kept = append(kept, item)
		}
	}
	p.items = kept
	p.message = ""
	if len(kept) == 0 {
		p.current = -1
	} else {
		p.current = 0
	}
	for _, item := range done {
		p.releaseItemLocked(item)
	}
	callback := p.onSuccess
	p.mu.Unlock()

	if callback != nil {
		callback()
	}
	return nil
}

func (p *Pipeline) submitAll(ctx context.Context, pending []Item) error {
	for _, item := range pending {
		f, err := os.Open(item.Path)
		if err != nil {
			return fmt.Errorf("upload: 无法读取 %s: %w", item.Filename, err)
		}
		meta := api.ImageMeta{Title: item.Title, Description: item.Description, Tags: item.Tags}
		err = p.uploader.UploadImage(ctx, meta, item.Filename, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("upload: 上传 %s 失败: %w", item.Filename, err)
		}
	}
	return nil
}

// Items 返回队列快照
func (p *Pipeline) Items() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Item, len(p.items))
	copy(out, p.items)
	return out
}

func (p *Pipeline) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Pipeline) Message() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.message
}

func (p *Pipeline) Progress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

func (p *Pipeline) Submitting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitting
}

// PreviewPath 查询某个待传项的预览文件路径
func (p *Pipeline) PreviewPath(index int) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.items) || p.previews == nil {
		return "", false
	}
	return p.previews.Path(p.items[index].PreviewKey)
}

// Close 组件销毁：清空队列并批量释放预览资源
func (p *Pipeline) Close() {
	p.ClearAll()
	if p.previews != nil {
		p.previews.Close()
	}
}

// releaseItemLocked 删除单项的暂存文件并释放其预览，调用方必须持有 p.mu
// 仍被队列中其它待传项引用的暂存文件或预览不释放，保证恰好释放一次
func (p *Pipeline) releaseItemLocked(item Item) {
	pathShared, previewShared := false, false
	for _, other := range p.items {
		if other.Path == item.Path {
			pathShared = true
		}
		if other.PreviewKey == item.PreviewKey {
			previewShared = true
		}
	}
	if !pathShared {
		_ = os.Remove(item.Path)
	}
	if p.previews != nil && !previewShared {
		p.previews.Release(item.PreviewKey)
	}
}

// dedupTags 按插入顺序去重
func dedupTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
