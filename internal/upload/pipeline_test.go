package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cjones26/jackalope-web/internal/testutils"
)

// 测试内容：验证选入文件进入队列并自动选中第一张，每项分配稳定的本地 id。
func TestSelectFiles_Basics(t *testing.T) {
	p := newTestPipeline(t, &fakeUploader{}, 10)

	added := p.SelectFiles(writePNGs(t, 3))
	if added != 3 {
		t.Fatalf("期望加入 3 个文件，实际为 %d", added)
	}
	items := p.Items()
	if len(items) != 3 {
		t.Fatalf("期望队列 3 项，实际为 %d", len(items))
	}
	if p.Current() != 0 {
		t.Fatalf("期望自动选中第 0 项，实际为 %d", p.Current())
	}
	seen := map[string]bool{}
	for _, item := range items {
		if item.LocalID == "" || seen[item.LocalID] {
			t.Fatalf("期望每项有唯一的本地 id，实际为 %+v", items)
		}
		seen[item.LocalID] = true
	}
}

// 测试内容：验证超出剩余容量的文件被截断并给出提示。
func TestSelectFiles_CapacityTruncation(t *testing.T) {
	p := newTestPipeline(t, &fakeUploader{}, 3)

	paths := writePNGs(t, 5)
	added := p.SelectFiles(paths)
	if added != 3 {
		t.Fatalf("期望只加入 3 个文件，实际为 %d", added)
	}
	if msg := p.Message(); !strings.Contains(msg, "3") {
		t.Fatalf("期望截断提示包含上限数量，实际为 %q", msg)
	}
	// 被截断的暂存文件立即删除。
	for _, path := range paths[3:] {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("期望被截断的暂存文件 %s 被删除，实际 Stat 结果为 %v", filepath.Base(path), err)
		}
	}

	// 队列已满，再选只提示不加入。
	if added := p.SelectFiles(writePNGs(t, 1)); added != 0 {
		t.Fatalf("队列已满时期望加入 0 个，实际为 %d", added)
	}
	if p.Message() == "" {
		t.Fatalf("期望队列已满时给出提示")
	}
}

// 测试内容：验证单个文件校验失败只跳过该文件，其余正常入队。
func TestSelectFiles_InvalidFileSkipped(t *testing.T) {
	p := newTestPipeline(t, &fakeUploader{}, 10)

	dir := t.TempDir()
	bad := filepath.Join(dir, "not-an-image.txt")
	if err := os.WriteFile(bad, []byte("plain text"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	good := testutils.WriteTempPNG(t, dir, "ok.png")

	added := p.SelectFiles([]string{bad, good})
	if added != 1 {
		t.Fatalf("期望只加入合法文件 1 个，实际为 %d", added)
	}
	if len(p.Items()) != 1 || p.Items()[0].Filename != "ok.png" {
		t.Fatalf("期望队列中只有 ok.png，实际为 %+v", p.Items())
	}
	if p.Message() == "" {
		t.Fatalf("期望校验失败给出行内提示")
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Fatalf("期望校验失败的暂存文件被删除，实际 Stat 结果为 %v", err)
	}
}

// 测试内容：验证同一批文件的截断提示与校验失败提示同时保留。
func TestSelectFiles_MessagesAccumulate(t *testing.T) {
	p := newTestPipeline(t, &fakeUploader{}, 2)

	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.txt")
	if err := os.WriteFile(bad, []byte("plain text"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	good := testutils.WriteTempPNG(t, dir, "ok.png")
	extra := testutils.WriteTempPNG(t, dir, "extra.png")

	// 容量 2：extra.png 被截断，broken.txt 校验失败，只有 ok.png 入队。
	if added := p.SelectFiles([]string{bad, good, extra}); added != 1 {
		t.Fatalf("期望只加入 1 个文件，实际为 %d", added)
	}
	msg := p.Message()
	if !strings.Contains(msg, "2") {
		t.Fatalf("期望提示保留截断信息，实际为 %q", msg)
	}
	if !strings.Contains(msg, "broken.txt") {
		t.Fatalf("期望提示同时保留校验失败信息，实际为 %q", msg)
	}
}

// 测试内容：验证移除待传项时活跃预览下标的调整规则。
func TestRemoveFile_CurrentAdjustment(t *testing.T) {
	p := newTestPipeline(t, &fakeUploader{}, 10)
	p.SelectFiles(writePNGs(t, 4))

	// 移除活跃项（非末项）：下标不变，自然指向后移进来的相邻项。
	p.Select(1)
	if err := p.RemoveFile(1); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if p.Current() != 1 {
		t.Fatalf("移除中间活跃项后期望下标保持 1，实际为 %d", p.Current())
	}

	// 移除活跃的末项：选中前一项。
	p.Select(2)
	if err := p.RemoveFile(2); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if p.Current() != 1 {
		t.Fatalf("移除活跃末项后期望下标回退为 1，实际为 %d", p.Current())
	}

	// 移除活跃项之前的项：下标前移一位。
	if err := p.RemoveFile(0); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if p.Current() != 0 {
		t.Fatalf("移除前方项后期望下标前移为 0，实际为 %d", p.Current())
	}

	// 清空队列：取消选中。
	if err := p.RemoveFile(0); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if p.Current() != -1 {
		t.Fatalf("队列清空后期望取消选中，实际为 %d", p.Current())
	}

	// 非法下标拒绝。
	if err := p.RemoveFile(0); err == nil {
		t.Fatalf("期望空队列移除报错")
	}
}

// 测试内容：验证元数据编辑与标签按插入顺序去重。
func TestSetMetadata_DedupsTags(t *testing.T) {
	p := newTestPipeline(t, &fakeUploader{}, 10)
	p.SelectFiles(writePNGs(t, 1))

	if err := p.SetMetadata(0, "标题", "描述", []string{"风景", "旅行", "风景", "", "旅行"}); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	item := p.Items()[0]
	if item.Title != "标题" || item.Description != "描述" {
		t.Fatalf("期望元数据写入，实际为 %+v", item)
	}
	if len(item.Tags) != 2 || item.Tags[0] != "风景" || item.Tags[1] != "旅行" {
		t.Fatalf("期望标签去重后为 [风景 旅行]，实际为 %v", item.Tags)
	}

	if err := p.SetMetadata(5, "x", "", nil); err == nil {
		t.Fatalf("期望非法下标报错")
	}
}

// 测试内容：验证待传项之间的导航出界时为空操作。
func TestNavigate_Bounds(t *testing.T) {
	p := newTestPipeline(t, &fakeUploader{}, 10)
	p.SelectFiles(writePNGs(t, 2))

	p.NavigatePrev()
	if p.Current() != 0 {
		t.Fatalf("最左端 Prev 期望停留在 0，实际为 %d", p.Current())
	}
	p.NavigateNext()
	p.NavigateNext()
	if p.Current() != 1 {
		t.Fatalf("最右端 Next 期望停留在 1，实际为 %d", p.Current())
	}
	p.Select(99)
	if p.Current() != 1 {
		t.Fatalf("非法 Select 期望不变，实际为 %d", p.Current())
	}
}

// 测试内容：验证按队列顺序串行提交，成功后清空队列、进度跳到 100 并触发回调。
func TestSubmit_SequentialSuccess(t *testing.T) {
	uploader := &fakeUploader{}
	previews, err := NewPreviewRegistry(t.TempDir(), 64)
	if err != nil {
		t.Fatalf("NewPreviewRegistry: %v", err)
	}
	refreshed := false
	p := NewPipeline(uploader, previews, 10, 10, ".png", func() { refreshed = true })
	t.Cleanup(p.Close)

	paths := writePNGs(t, 3)
	p.SelectFiles(paths)

	if err := p.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(uploader.filenames) != 3 {
		t.Fatalf("期望提交 3 个文件，实际为 %v", uploader.filenames)
	}
	for i, path := range paths {
		if uploader.filenames[i] != filepath.Base(path) {
			t.Fatalf("期望按队列顺序提交，第 %d 个为 %s，实际为 %s",
				i, filepath.Base(path), uploader.filenames[i])
		}
	}
	if len(p.Items()) != 0 || p.Current() != -1 {
		t.Fatalf("期望成功后清空队列")
	}
	if p.Progress() != 100 {
		t.Fatalf("期望进度为 100，实际为 %d", p.Progress())
	}
	if !refreshed {
		t.Fatalf("期望成功回调被触发")
	}
}

// 测试内容：验证提交失败保留队列供重试，空队列提交被拒绝。
func TestSubmit_FailureAndGuards(t *testing.T) {
	uploader := &fakeUploader{failAfter: 2}
	p := newTestPipeline(t, uploader, 10)
	p.SelectFiles(writePNGs(t, 3))

	if err := p.Submit(context.Background()); err == nil {
		t.Fatalf("期望第 2 个文件提交失败")
	}
	if len(p.Items()) != 3 {
		t.Fatalf("期望失败后队列保留 3 项供重试，实际为 %d", len(p.Items()))
	}
	if p.Submitting() {
		t.Fatalf("期望失败后提交状态复位")
	}

	empty := newTestPipeline(t, &fakeUploader{}, 10)
	if err := empty.Submit(context.Background()); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("期望 ErrQueueEmpty，实际为: %v", err)
	}
}

// 测试内容：验证移除与销毁会连同暂存文件一并删除，未移除的项不受影响。
func TestRemoveFile_DeletesSpooledFile(t *testing.T) {
	p := newTestPipeline(t, &fakeUploader{}, 10)
	paths := writePNGs(t, 2)
	p.SelectFiles(paths)

	if err := p.RemoveFile(0); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Fatalf("期望移除后暂存文件被删除，实际 Stat 结果为 %v", err)
	}
	if _, err := os.Stat(paths[1]); err != nil {
		t.Fatalf("期望未移除项的暂存文件保留，实际为 %v", err)
	}

	p.Close()
	if _, err := os.Stat(paths[1]); !os.IsNotExist(err) {
		t.Fatalf("期望销毁后暂存文件被删除，实际 Stat 结果为 %v", err)
	}
}

// 测试内容：验证提交成功后暂存文件随队列一并删除，失败时保留供重试。
func TestSubmit_DeletesSpooledFiles(t *testing.T) {
	p := newTestPipeline(t, &fakeUploader{}, 10)
	paths := writePNGs(t, 2)
	p.SelectFiles(paths)

	if err := p.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for _, path := range paths {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("期望提交成功后暂存文件 %s 被删除，实际 Stat 结果为 %v", filepath.Base(path), err)
		}
	}

	failing := newTestPipeline(t, &fakeUploader{failAfter: 1}, 10)
	retry := writePNGs(t, 1)
	failing.SelectFiles(retry)
	if err := failing.Submit(context.Background()); err == nil {
		t.Fatalf("期望提交失败")
	}
	if _, err := os.Stat(retry[0]); err != nil {
		t.Fatalf("期望失败后暂存文件保留供重试，实际为 %v", err)
	}
}

// 测试内容：验证提交在途时新选入的文件保留在队列中，不随本次提交被清除，
// 且在途期间拒绝移除正在上传的项。
func TestSubmit_KeepsFilesSelectedMidFlight(t *testing.T) {
	uploader := newSlowUploader()
	p := newTestPipeline(t, uploader, 10)
	p.SelectFiles(writePNGs(t, 1))

	done := make(chan error, 1)
	go func() { done <- p.Submit(context.Background()) }()
	<-uploader.started

	if err := p.RemoveFile(0); !errors.Is(err, ErrBusy) {
		t.Fatalf("期望在途移除返回 ErrBusy，实际为: %v", err)
	}

	late := writePNGs(t, 1)
	if added := p.SelectFiles(late); added != 1 {
		t.Fatalf("期望在途选入 1 个文件，实际为 %d", added)
	}

	close(uploader.release)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}

	items := p.Items()
	if len(items) != 1 || items[0].Path != late[0] {
		t.Fatalf("期望在途选入的文件留在队列中，实际为 %+v", items)
	}
	if _, err := os.Stat(late[0]); err != nil {
		t.Fatalf("期望在途选入的暂存文件保留，实际为 %v", err)
	}
	if p.Current() != 0 {
		t.Fatalf("期望选中保留的第 0 项，实际为 %d", p.Current())
	}

	if err := p.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := uploader.uploaded(); len(got) != 2 {
		t.Fatalf("期望两次提交共上传 2 个文件，实际为 %v", got)
	}
	if len(p.Items()) != 0 {
		t.Fatalf("期望第二次提交后队列清空，实际为 %d 项", len(p.Items()))
	}
}
