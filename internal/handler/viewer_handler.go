package handler

import (
	"errors"
	"net/http"

	"github.com/cjones26/jackalope-web/internal/viewer"

	"github.com/gin-gonic/gin"
)

// 图片详情浮层接口：打开、键盘导航、编辑、保存、删除确认

// viewerState 浮层状态快照 + 当前图片 + 位置信息
func (h *Handler) viewerState() gin.H {
	state := h.Overlay.State()
	idx, total := h.Overlay.Position()

	out := gin.H{
		"open":             state.Open,
		"editing":          state.Editing,
		"confirmingDelete": state.ConfirmingDelete,
		"busy":             state.Busy,
		"index":            idx,
		"total":            total,
		"canSave":          h.Overlay.CanSave(),
		"form": gin.H{
			"title":       state.Form.Title,
			"description": state.Form.Description,
			"tags":        state.Form.Tags,
		},
	}
	if img, ok := h.Overlay.Current(); ok {
		out["image"] = img
	}
	return out
}

type openRequest struct {
	ID string `json:"id"`
}

func (h *Handler) ViewerOpen(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法请求"})
		return
	}
	if err := h.Overlay.Open(h.Cache.Flatten(), req.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "图片不存在"})
		return
	}
	c.JSON(http.StatusOK, h.viewerState())
}

func (h *Handler) ViewerClose(c *gin.Context) {
	h.Overlay.Close()
	c.JSON(http.StatusOK, h.viewerState())
}

type keyRequest struct {
	Key string `json:"key"`
}

// ViewerKey 键盘事件入口：方向键移动，Escape 关闭；编辑态下导航被禁用
func (h *Handler) ViewerKey(c *gin.Context) {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法请求"})
		return
	}
	h.Overlay.HandleKey(req.Key)
	c.JSON(http.StatusOK, h.viewerState())
}

func (h *Handler) ViewerEdit(c *gin.Context) {
	if err := h.Overlay.StartEdit(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.viewerState())
}

type formRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (h *Handler) ViewerForm(c *gin.Context) {
	var req formRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法请求"})
		return
	}
	if err := h.Overlay.UpdateForm(viewer.EditForm{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.viewerState())
}

func (h *Handler) ViewerCancelEdit(c *gin.Context) {
	h.Overlay.CancelEdit()
	c.JSON(http.StatusOK, h.viewerState())
}

// ViewerSave 保存编辑；表单与快照一致时拒绝（前端按钮同样置灰）
func (h *Handler) ViewerSave(c *gin.Context) {
	if err := h.Overlay.Save(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, viewer.ErrNoChanges):
			c.JSON(http.StatusBadRequest, gin.H{"error": "没有需要保存的修改"})
		case errors.Is(err, viewer.ErrNotEditing), errors.Is(err, viewer.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.writeAPIError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, h.viewerState())
}

func (h *Handler) ViewerRequestDelete(c *gin.Context) {
	if err := h.Overlay.RequestDelete(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.viewerState())
}

func (h *Handler) ViewerCancelDelete(c *gin.Context) {
	h.Overlay.CancelDelete()
	c.JSON(http.StatusOK, h.viewerState())
}

// ViewerConfirmDelete 确认删除：成功后浮层整体关闭
// 被删 id 经由 Overlay 的回调进入图库缓存做乐观移除
func (h *Handler) ViewerConfirmDelete(c *gin.Context) {
	deletedID, err := h.Overlay.ConfirmDelete(c.Request.Context())
	if err != nil {
		if errors.Is(err, viewer.ErrNotViewing) || errors.Is(err, viewer.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedId": deletedID, "state": h.viewerState()})
}

func (h *Handler) ViewerState(c *gin.Context) {
	c.JSON(http.StatusOK, h.viewerState())
}
