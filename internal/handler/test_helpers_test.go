package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cjones26/jackalope-web/internal/api"
	"github.com/cjones26/jackalope-web/internal/auth"
	"github.com/cjones26/jackalope-web/internal/gallery"
	"github.com/cjones26/jackalope-web/internal/model"
	"github.com/cjones26/jackalope-web/internal/testutils"
	"github.com/cjones26/jackalope-web/internal/upload"
	"github.com/cjones26/jackalope-web/internal/viewer"
)

// galleryBackend 模拟图库后端：分页列表、更新、单删与批删
type galleryBackend struct {
	mu           sync.Mutex
	images       []model.GalleryImage
	profile      *model.Profile
	fail         bool // true 时列表请求返回 502
	unauthorized bool // true 时所有请求返回 401
}

func (b *galleryBackend) handler() http.Handler {
	mux := http.NewServeMux()
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		unauthorized := b.unauthorized
		b.mu.Unlock()
		if unauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
	mux.HandleFunc("GET /gallery", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}
		start := (page - 1) * limit
		end := start + limit
		if start > len(b.images) {
			start = len(b.images)
		}
		if end > len(b.images) {
			end = len(b.images)
		}
		totalPages := (len(b.images) + limit - 1) / limit
		_ = json.NewEncoder(w).Encode(model.GalleryPage{
			Images:      b.images[start:end],
			Total:       len(b.images),
			CurrentPage: page,
			TotalPages:  totalPages,
			HasMore:     page < totalPages,
		})
	})
	mux.HandleFunc("PUT /gallery/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		var body struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Tags        []string `json:"tags"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		id := r.PathValue("id")
		for i := range b.images {
			if b.images[i].ID == id {
				b.images[i].Title = body.Title
				b.images[i].Description = body.Description
				b.images[i].Tags = body.Tags
				_ = json.NewEncoder(w).Encode(b.images[i])
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("DELETE /gallery/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id := r.PathValue("id")
		for i := range b.images {
			if b.images[i].ID == id {
				b.images = append(b.images[:i], b.images[i+1:]...)
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("DELETE /gallery", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		var body struct {
			ImageIDs []string `json:"imageIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		deleted := 0
		for _, id := range body.ImageIDs {
			for i := range b.images {
				if b.images[i].ID == id {
					b.images = append(b.images[:i], b.images[i+1:]...)
					deleted++
					break
				}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"deletedCount": deleted, "success": true})
	})
	mux.HandleFunc("POST /gallery", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		id := "up-" + strconv.Itoa(len(b.images)+1)
		b.images = append(b.images, model.GalleryImage{
			ID:     id,
			Title:  r.FormValue("title"),
			Width:  100,
			Height: 100,
		})
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /profile", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.profile == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(b.profile)
	})
	saveProfile := func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.profile = &model.Profile{
			FirstName: r.FormValue("first_name"),
			LastName:  r.FormValue("last_name"),
		}
		_ = json.NewEncoder(w).Encode(b.profile)
	}
	mux.HandleFunc("POST /profile", saveProfile)
	mux.HandleFunc("PUT /profile", saveProfile)
	return root
}

func seedImages(n int) []model.GalleryImage {
	images := make([]model.GalleryImage, 0, n)
	for i := 1; i <= n; i++ {
		id := "img-" + strconv.Itoa(i)
		images = append(images, model.GalleryImage{
			ID:     id,
			Title:  "图 " + strconv.Itoa(i),
			Width:  400,
			Height: 300,
			URL:    "https://cdn.example.com/" + id + ".jpg",
		})
	}
	return images
}

// newTestHandler 组装一套带假后端与已登录会话的处理器
func newTestHandler(t *testing.T, backend *galleryBackend, pageSize int) *Handler {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	st := testutils.SetupStore(t)
	if err := st.SaveSession(model.Session{
		AccessToken:  "test-token",
		RefreshToken: "rt",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         model.AuthUser{ID: "u1", Email: "a@example.com"},
	}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	sessions := auth.NewProvider(srv.Client(), "", "", st)
	if err := sessions.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	client := api.NewClient(srv.Client(), srv.URL, sessions, 0)
	cache := gallery.NewCache(client, nil, pageSize)

	previews, err := upload.NewPreviewRegistry(t.TempDir(), 64)
	if err != nil {
		t.Fatalf("NewPreviewRegistry: %v", err)
	}
	pipeline := upload.NewPipeline(client, previews, 10, 10, ".jpg,.jpeg,.png,.webp,.gif", nil)
	t.Cleanup(pipeline.Close)

	overlay := viewer.NewOverlay(client, nil, func(id string) { cache.RemoveLocally(id) })

	return NewHandler(sessions, client, cache, pipeline, overlay, t.TempDir())
}
