package handler

import (
	"errors"
	"net/http"

	"github.com/cjones26/jackalope-web/internal/api"
	"github.com/cjones26/jackalope-web/internal/auth"
	"github.com/cjones26/jackalope-web/internal/gallery"
	"github.com/cjones26/jackalope-web/internal/upload"
	"github.com/cjones26/jackalope-web/internal/viewer"

	"github.com/gin-gonic/gin"
)

// Handler 承载所有页面与接口处理器，依赖在组装时注入
type Handler struct {
	Sessions *auth.Provider
	Client   *api.Client
	Cache    *gallery.Cache
	Pipeline *upload.Pipeline
	Overlay  *viewer.Overlay
	SpoolDir string
}

func NewHandler(sessions *auth.Provider, client *api.Client, cache *gallery.Cache, pipeline *upload.Pipeline, overlay *viewer.Overlay, spoolDir string) *Handler {
	return &Handler{
		Sessions: sessions,
		Client:   client,
		Cache:    cache,
		Pipeline: pipeline,
		Overlay:  overlay,
		SpoolDir: spoolDir,
	}
}

// writeAPIError 统一的接口错误出口
// 401 清空本地会话并让前端跳回未登录首页；404 由调用方自行处理，不会走到这里
func (h *Handler) writeAPIError(c *gin.Context, err error) {
	if errors.Is(err, api.ErrUnauthorized) {
		h.Sessions.Invalidate()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "登录已失效，请重新登录", "redirect": "/"})
		return
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "请求失败，请稍后重试"})
}
