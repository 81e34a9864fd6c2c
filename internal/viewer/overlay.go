package viewer

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/cjones26/jackalope-web/internal/api"
	"github.com/cjones26/jackalope-web/internal/model"
)

// 图片详情浮层：查看 ⇄ 编辑，外加一个正交的删除确认态
// 当前图片按 id 追踪而非下标：背后的数组会因新分页或他处删除而变化，
// 下标在每次操作时按 id 现算并做边界检查，绝不跨数组变更缓存下标

var (
	ErrClosed     = errors.New("viewer: 浮层未打开")
	ErrNotEditing = errors.New("viewer: 当前不在编辑态")
	ErrNotViewing = errors.New("viewer: 仅查看态允许该操作")
	ErrNoChanges  = errors.New("viewer: 表单与原值相同，无需保存")
	ErrBusy       = errors.New("viewer: 已有请求在进行中")
)

// Editor 详情浮层需要的后端操作
type Editor interface {
	UpdateImage(ctx context.Context, id string, meta api.ImageMeta) (*model.GalleryImage, error)
	DeleteImage(ctx context.Context, id string) error
}

// EditForm 编辑表单：进入编辑态时从当前图片快照而来
type EditForm struct {
	Title       string
	Description string
	Tags        []string
}

func (f EditForm) equal(other EditForm) bool {
	return f.Title == other.Title &&
		f.Description == other.Description &&
		slices.Equal(f.Tags, other.Tags)
}

type Overlay struct {
	mu     sync.Mutex
	editor Editor

	open             bool
	editing          bool
	confirmingDelete bool
	busy             bool

	images    []model.GalleryImage
	currentID string

	snapshot EditForm
	form     EditForm

	onDeleted func(id string)
	onUpdated func()
}

func NewOverlay(editor Editor, onUpdated func(), onDeleted func(id string)) *Overlay {
	return &Overlay{editor: editor, onUpdated: onUpdated, onDeleted: onDeleted}
}

// Open 用给定的图片序列打开浮层并定位到指定 id
func (o *Overlay) Open(images []model.GalleryImage, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if indexOf(images, id) < 0 {
		return errors.New("viewer: 指定的图片不在当前序列中")
	}
	o.open = true
	o.editing = false
	o.confirmingDelete = false
	o.busy = false
	o.images = images
	o.currentID = id
	return nil
}

// Close 关闭浮层；重新打开时总是回到干净的查看态
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = false
	o.editing = false
	o.confirmingDelete = false
}

// SetImages 背后的序列变化时（新分页、他处删除）替换数组
// 当前 id 可能随之消失，后续导航由边界检查兜底
func (o *Overlay) SetImages(images []model.GalleryImage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.images = images
}

// Current 返回当前图片；id 已从数组消失时返回 false
func (o *Overlay) Current() (model.GalleryImage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := indexOf(o.images, o.currentID)
	if idx < 0 {
		return model.GalleryImage{}, false
	}
	return o.images[idx], true
}

// Position 返回当前下标与序列长度（下标可能为 -1）
func (o *Overlay) Position() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return indexOf(o.images, o.currentID), len(o.images)
}

// Next 导航到后一张；编辑态、浮层关闭或越界时为空操作
func (o *Overlay) Next() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open || o.editing {
		return
	}
	idx := indexOf(o.images, o.currentID)
	if idx < 0 || idx >= len(o.images)-1 {
		return
	}
	o.currentID = o.images[idx+1].ID
}

// Prev 导航到前一张；编辑态、浮层关闭或越界时为空操作
func (o *Overlay) Prev() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open || o.editing {
		return
	}
	idx := indexOf(o.images, o.currentID)
	if idx <= 0 {
		return
	}
	o.currentID = o.images[idx-1].ID
}

// HandleKey 键盘导航入口：左右方向键移动，Escape 关闭
func (o *Overlay) HandleKey(key string) {
	switch key {
	case "ArrowLeft":
		o.Prev()
	case "ArrowRight":
		o.Next()
	case "Escape":
		o.mu.Lock()
		editing := o.editing
		o.mu.Unlock()
		if !editing {
			o.Close()
		}
	}
}

// StartEdit 进入编辑态，把当前图片的元数据快照进表单
func (o *Overlay) StartEdit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open {
		return ErrClosed
	}
	idx := indexOf(o.images, o.currentID)
	if idx < 0 {
		return ErrClosed
	}
	img := o.images[idx]
	o.snapshot = EditForm{
		Title:       img.Title,
		Description: img.Description,
		Tags:        slices.Clone(img.Tags),
	}
	o.form = EditForm{
		Title:       o.snapshot.Title,
		Description: o.snapshot.Description,
		Tags:        slices.Clone(o.snapshot.Tags),
	}
	o.editing = true
	o.confirmingDelete = false
	return nil
}

// UpdateForm 修改编辑表单的当前值
func (o *Overlay) UpdateForm(form EditForm) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.editing {
		return ErrNotEditing
	}
	form.Tags = dedupTags(form.Tags)
	o.form = form
	return nil
}

// CanSave 表单与快照不同才允许保存
func (o *Overlay) CanSave() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.editing && !o.busy && !o.form.equal(o.snapshot)
}

// CancelEdit 丢弃表单改动，回到查看态，不触碰记录本身
func (o *Overlay) CancelEdit() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.editing = false
}

// Save 提交编辑；成功后回到查看态并请求上层刷新
func (o *Overlay) Save(ctx context.Context) error {
	o.mu.Lock()
	if !o.editing {
		o.mu.Unlock()
		return ErrNotEditing
	}
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	if o.form.equal(o.snapshot) {
		o.mu.Unlock()
		return ErrNoChanges
	}
	id := o.currentID
	form := o.form
	o.busy = true
	o.mu.Unlock()

	_, err := o.editor.UpdateImage(ctx, id, api.ImageMeta{
		Title:       form.Title,
		Description: form.Description,
		Tags:        form.Tags,
	})

	o.mu.Lock()
	o.busy = false
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.editing = false
	o.mu.Unlock()

	if o.onUpdated != nil {
		o.onUpdated()
	}
	return nil
}

// RequestDelete 进入删除确认态，仅允许从查看态进入
func (o *Overlay) RequestDelete() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open {
		return ErrClosed
	}
	if o.editing {
		return ErrNotViewing
	}
	o.confirmingDelete = true
	return nil
}

// CancelDelete 退出删除确认态
func (o *Overlay) CancelDelete() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.confirmingDelete = false
}

// ConfirmDelete 删除当前图片：请求成功后整体关闭浮层，并把被删 id 上报
// 供图库缓存做乐观移除
func (o *Overlay) ConfirmDelete(ctx context.Context) (string, error) {
	o.mu.Lock()
	if !o.open || !o.confirmingDelete {
		o.mu.Unlock()
		return "", ErrNotViewing
	}
	if o.busy {
		o.mu.Unlock()
		return "", ErrBusy
	}
	id := o.currentID
	o.busy = true
	o.mu.Unlock()

	err := o.editor.DeleteImage(ctx, id)

	o.mu.Lock()
	o.busy = false
	if err != nil {
		o.mu.Unlock()
		return "", err
	}
	o.open = false
	o.editing = false
	o.confirmingDelete = false
	o.mu.Unlock()

	if o.onDeleted != nil {
		o.onDeleted(id)
	}
	return id, nil
}

// State 浮层状态快照，渲染层用
type State struct {
	Open             bool
	Editing          bool
	ConfirmingDelete bool
	Busy             bool
	CurrentID        string
	Form             EditForm
}

func (o *Overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return State{
		Open:             o.open,
		Editing:          o.editing,
		ConfirmingDelete: o.confirmingDelete,
		Busy:             o.busy,
		CurrentID:        o.currentID,
		Form:             o.form,
	}
}

// indexOf 按 id 现算下标，找不到返回 -1
func indexOf(images []model.GalleryImage, id string) int {
	for i, img := range images {
		if img.ID == id {
			return i
		}
	}
	return -1
}

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
