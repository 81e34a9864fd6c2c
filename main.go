package main

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cjones26/jackalope-web/internal/api"
	"github.com/cjones26/jackalope-web/internal/auth"
	"github.com/cjones26/jackalope-web/internal/config"
	"github.com/cjones26/jackalope-web/internal/gallery"
	"github.com/cjones26/jackalope-web/internal/handler"
	"github.com/cjones26/jackalope-web/internal/router"
	"github.com/cjones26/jackalope-web/internal/store"
	"github.com/cjones26/jackalope-web/internal/upload"
	"github.com/cjones26/jackalope-web/internal/viewer"

	"github.com/gin-gonic/gin"
)

const applicationName = "Jackalope Web"

func main() {
	config.InitConfig("")
	cfg := config.Get()

	// 本地状态库：会话持久化 + 图库缓存副本
	st, err := store.Open(cfg.State.Filename)
	if err != nil {
		log.Fatalf("❌ 无法打开本地状态库: %v", err)
	}
	defer func() { _ = st.Close() }()

	httpClient := api.NewHTTPClient(cfg.Gallery.TimeoutSec)

	// 恢复上次的登录会话（过期则尝试刷新，失败回到未登录态）
	sessions := auth.NewProvider(httpClient, cfg.Auth.URL, cfg.Auth.Key, st)
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 10*time.Second)
	if err := sessions.Restore(restoreCtx); err != nil {
		log.Printf("⚠️ 恢复会话失败: %v", err)
	}
	cancelRestore()

	client := api.NewClient(httpClient, cfg.Gallery.BaseURL, sessions, cfg.Gallery.ReadRetries)
	cache := gallery.NewCache(client, st, cfg.Gallery.PageSize)

	previews, err := upload.NewPreviewRegistry(cfg.Upload.PreviewPath, cfg.Upload.PreviewWidth)
	if err != nil {
		log.Fatalf("❌ 无法创建预览目录: %v", err)
	}

	// 上传成功与编辑保存都触发后台对账重抓
	refetch := func() { go cache.Invalidate(context.Background()) }
	pipeline := upload.NewPipeline(client, previews,
		cfg.Upload.MaxFiles, cfg.Upload.MaxFileSizeMB, cfg.Upload.AllowedExts, refetch)
	defer pipeline.Close()

	overlay := viewer.NewOverlay(client, refetch, func(id string) {
		// 详情浮层里确认删除：先乐观移除，再后台对账
		cache.RemoveLocally(id)
		refetch()
	})

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	loadWebAssets(r)

	h := handler.NewHandler(sessions, client, cache, pipeline, overlay, cfg.Upload.SpoolPath)
	router.Init(r, h)

	printWelcomeMessage(cfg)

	// 停机配置
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 客户端启动成功，访问 http://localhost:%s\n", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ 服务启动失败: %s\n", err)
		}
	}()

	// 等待中断信号关闭（设置 5 秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 正在关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ 强制关闭:", err)
	}
	log.Println("✅ 已退出")
}

// loadWebAssets 加载模板与静态资源：嵌入模式走 embed FS，否则从磁盘读取
func loadWebAssets(r *gin.Engine) {
	if assets := GetWebAssets(); assets != nil {
		tmpl := template.Must(template.New("").ParseFS(assets, "templates/*.html"))
		r.SetHTMLTemplate(tmpl)

		staticFS, err := fs.Sub(assets, "static")
		if err != nil {
			log.Fatalf("❌ 无法加载静态资源: %v", err)
		}
		r.StaticFS("/static", http.FS(staticFS))
		return
	}
	r.LoadHTMLGlob("web/templates/*.html")
	r.Static("/static", "web/static")
}

func printWelcomeMessage(cfg config.Config) {
	authState := "已配置"
	if cfg.Auth.URL == "" || cfg.Auth.Key == "" {
		authState = "未配置（无法登录）"
	}

	fmt.Println()
	fmt.Println(" ┌───────────────────────────────────────────────────────┐")
	fmt.Printf(" │   🖼️  %s\n", applicationName)
	fmt.Println(" ├───────────────────────────────────────────────────────┤")
	fmt.Printf(" │   🔥  本地端口 : %s\n", cfg.Server.Port)
	fmt.Printf(" │   🌐  图库后端 : %s\n", cfg.Gallery.BaseURL)
	fmt.Printf(" │   🔑  认证服务 : %s\n", authState)
	fmt.Println(" └───────────────────────────────────────────────────────┘")
	fmt.Println()
}
