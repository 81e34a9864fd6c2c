package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/cjones26/jackalope-web/internal/api"
	"github.com/cjones26/jackalope-web/internal/masonry"

	"github.com/gin-gonic/gin"
)

// 图库页面与分页/批量删除接口

// GalleryPage 渲染图库主页面：瀑布流列 + 无限滚动入口
func (h *Handler) GalleryPage(c *gin.Context) {
	viewportWidth := intDefault(c.Query("w"), 1280)

	var loadErr error
	if !h.Cache.Fetched() {
		loadErr = h.Cache.FetchFirst(c.Request.Context())
	}
	if errors.Is(loadErr, api.ErrUnauthorized) {
		h.Sessions.Invalidate()
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	images := h.Cache.Flatten()
	h.Overlay.SetImages(images)
	columnCount := masonry.ColumnCount(viewportWidth)
	columns := masonry.Arrange(images, columnCount)

	data := gin.H{
		"Columns":     columns,
		"ColumnCount": columnCount,
		"Total":       h.Cache.Total(),
		"HasMore":     h.Cache.HasMore(),
		"Empty":       len(images) == 0 && loadErr == nil,
	}
	if loadErr != nil {
		// 首屏加载失败：展示错误并保留上传入口
		data["LoadError"] = "图库加载失败，请稍后重试"
	}
	c.HTML(http.StatusOK, "gallery.html", data)
}

// GalleryNext 无限滚动：抓取下一页并返回重排后的列
// 没有下一页或已有抓取在途时返回当前状态（空操作）
func (h *Handler) GalleryNext(c *gin.Context) {
	viewportWidth := intDefault(c.Query("w"), 1280)

	if err := h.Cache.FetchNext(c.Request.Context()); err != nil {
		h.writeAPIError(c, err)
		return
	}

	images := h.Cache.Flatten()
	h.Overlay.SetImages(images)
	columnCount := masonry.ColumnCount(viewportWidth)

	c.JSON(http.StatusOK, gin.H{
		"columns": masonry.Arrange(images, columnCount),
		"total":   h.Cache.Total(),
		"hasMore": h.Cache.HasMore(),
	})
}

// GalleryLayout 视口宽度变化后重新计算列布局
func (h *Handler) GalleryLayout(c *gin.Context) {
	viewportWidth := intDefault(c.Query("w"), 1280)
	images := h.Cache.Flatten()
	columnCount := masonry.ColumnCount(viewportWidth)
	c.JSON(http.StatusOK, gin.H{
		"columns":     masonry.Arrange(images, columnCount),
		"columnCount": columnCount,
		"total":       h.Cache.Total(),
		"hasMore":     h.Cache.HasMore(),
	})
}

type bulkDeleteRequest struct {
	ImageIDs []string `json:"imageIds"`
}

// GalleryBulkDelete 多选删除
// 先做乐观移除再发请求；失败不回滚，由后台对账重抓收敛
func (h *Handler) GalleryBulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ImageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请选择要删除的图片"})
		return
	}

	h.Cache.RemoveLocally(req.ImageIDs...)
	h.Overlay.SetImages(h.Cache.Flatten())

	result, err := h.Client.DeleteImages(c.Request.Context(), req.ImageIDs)
	go h.Cache.Invalidate(context.Background())
	if err != nil {
		h.writeAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deletedCount": result.DeletedCount,
		"success":      result.Success,
	})
}

func intDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
