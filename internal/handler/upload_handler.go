package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cjones26/jackalope-web/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 上传相关接口：文件选择、队列管理、逐项元数据编辑、串行提交与进度查询

// uploadState 队列状态快照，选择/移除/编辑后返回给前端局部刷新
func (h *Handler) uploadState() gin.H {
	items := h.Pipeline.Items()
	views := make([]gin.H, 0, len(items))
	for i, item := range items {
		views = append(views, gin.H{
			"localId":     item.LocalID,
			"filename":    item.Filename,
			"size":        item.Size,
			"title":       item.Title,
			"description": item.Description,
			"tags":        item.Tags,
			"previewUrl":  "/api/upload/preview/" + strconv.Itoa(i),
		})
	}
	return gin.H{
		"items":      views,
		"current":    h.Pipeline.Current(),
		"message":    h.Pipeline.Message(),
		"submitting": h.Pipeline.Submitting(),
	}
}

// UploadSelect 接收浏览器提交的一批文件，落到暂存目录后进入待传队列
func (h *Handler) UploadSelect(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法解析上传的文件"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有选择任何文件"})
		return
	}

	if err := os.MkdirAll(h.SpoolDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法创建暂存目录"})
		return
	}

	var paths []string
	for _, file := range files {
		// 暂存文件名加 uuid 前缀防重名，保留原始扩展名供校验
		name := filepath.Base(file.Filename)
		dst := filepath.Join(h.SpoolDir, uuid.New().String()+"_"+name)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "文件暂存失败"})
			return
		}
		paths = append(paths, dst)
	}

	h.Pipeline.SelectFiles(paths)
	c.JSON(http.StatusOK, h.uploadState())
}

type indexRequest struct {
	Index int `json:"index"`
}

func (h *Handler) UploadRemove(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法请求"})
		return
	}
	if err := h.Pipeline.RemoveFile(req.Index); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.uploadState())
}

func (h *Handler) UploadClear(c *gin.Context) {
	h.Pipeline.ClearAll()
	c.JSON(http.StatusOK, h.uploadState())
}

type metadataRequest struct {
	Index       int      `json:"index"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (h *Handler) UploadMetadata(c *gin.Context) {
	var req metadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法请求"})
		return
	}
	if err := h.Pipeline.SetMetadata(req.Index, req.Title, req.Description, req.Tags); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.uploadState())
}

func (h *Handler) UploadNavigate(c *gin.Context) {
	switch c.Query("dir") {
	case "next":
		h.Pipeline.NavigateNext()
	case "prev":
		h.Pipeline.NavigatePrev()
	default:
		var req indexRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			h.Pipeline.Select(req.Index)
		}
	}
	c.JSON(http.StatusOK, h.uploadState())
}

// UploadSubmit 串行提交整个队列；失败保留队列供重试
func (h *Handler) UploadSubmit(c *gin.Context) {
	if err := h.Pipeline.Submit(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, upload.ErrQueueEmpty):
			c.JSON(http.StatusBadRequest, gin.H{"error": "请先选择要上传的图片"})
		case errors.Is(err, upload.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "上传正在进行中"})
		default:
			h.writeAPIError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "progress": h.Pipeline.Progress()})
}

// UploadProgress 进度轮询：模拟进度值 + 是否在途
func (h *Handler) UploadProgress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"progress":   h.Pipeline.Progress(),
		"submitting": h.Pipeline.Submitting(),
	})
}

// UploadPreview 返回待传项的预览缩略图
func (h *Handler) UploadPreview(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.Status(http.StatusNotFound)
		return
	}
	path, ok := h.Pipeline.PreviewPath(index)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(path)
}
