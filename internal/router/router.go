package router

import (
	"github.com/cjones26/jackalope-web/internal/handler"
	"github.com/cjones26/jackalope-web/internal/middleware"

	"github.com/gin-gonic/gin"
)

// 路由注册：公开路由（登录注册）与需要会话保护的路由分组

func Init(r *gin.Engine, h *handler.Handler) {
	r.Use(middleware.SecurityHeaders())

	// 公开路由
	r.GET("/", h.Landing)
	r.GET("/sign-in", h.SignInPage)
	r.POST("/sign-in", h.SignIn)
	r.GET("/sign-up", h.SignUpPage)
	r.POST("/sign-up", h.SignUp)
	r.GET("/check-email", h.CheckEmailPage)

	// 受保护的页面
	protected := r.Group("", middleware.SessionRequired(h.Sessions))
	{
		protected.POST("/sign-out", h.SignOut)
		protected.GET("/gallery", h.GalleryPage)
		protected.GET("/profile", h.ProfilePage)
		protected.POST("/profile", h.ProfileSave)
	}

	// 受保护的接口
	api := r.Group("/api", middleware.SessionRequired(h.Sessions))
	{
		api.POST("/gallery/next", h.GalleryNext)
		api.GET("/gallery/layout", h.GalleryLayout)
		api.DELETE("/gallery", h.GalleryBulkDelete)

		api.POST("/upload/select", h.UploadSelect)
		api.POST("/upload/remove", h.UploadRemove)
		api.POST("/upload/clear", h.UploadClear)
		api.POST("/upload/metadata", h.UploadMetadata)
		api.POST("/upload/navigate", h.UploadNavigate)
		api.POST("/upload/submit", h.UploadSubmit)
		api.GET("/upload/progress", h.UploadProgress)
		api.GET("/upload/preview/:index", middleware.StaticCacheMiddleware("no-store"), h.UploadPreview)

		api.POST("/viewer/open", h.ViewerOpen)
		api.POST("/viewer/close", h.ViewerClose)
		api.POST("/viewer/key", h.ViewerKey)
		api.POST("/viewer/edit", h.ViewerEdit)
		api.POST("/viewer/form", h.ViewerForm)
		api.POST("/viewer/save", h.ViewerSave)
		api.POST("/viewer/cancel-edit", h.ViewerCancelEdit)
		api.POST("/viewer/delete/request", h.ViewerRequestDelete)
		api.POST("/viewer/delete/cancel", h.ViewerCancelDelete)
		api.POST("/viewer/delete/confirm", h.ViewerConfirmDelete)
		api.GET("/viewer/state", h.ViewerState)
	}
}
