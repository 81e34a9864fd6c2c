package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cjones26/jackalope-web/internal/api"
	"github.com/cjones26/jackalope-web/internal/model"

	"github.com/gin-gonic/gin"
)

// 用户资料页面：查看、创建、更新
// 404 视为"资料尚未创建"，渲染创建表单而不是错误页

const profileAvatarMaxSize = 5 * 1024 * 1024 // 5MB

var profileAvatarExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

// ProfilePage 拉取并渲染资料页
func (h *Handler) ProfilePage(c *gin.Context) {
	profile, err := h.Client.GetProfile(c.Request.Context())
	switch {
	case err == nil:
	case errors.Is(err, api.ErrNotFound):
		// 尚未创建：进入创建态
		c.HTML(http.StatusOK, "profile.html", gin.H{"Exists": false})
		return
	case errors.Is(err, api.ErrUnauthorized):
		h.Sessions.Invalidate()
		c.Redirect(http.StatusSeeOther, "/")
		return
	default:
		c.HTML(http.StatusOK, "profile.html", gin.H{
			"Error": "资料加载失败，请稍后重试",
		})
		return
	}

	c.HTML(http.StatusOK, "profile.html", gin.H{
		"Exists":  profile.Exists(),
		"Profile": profile,
	})
}

// ProfileSave 创建或更新资料（multipart，可附带头像）
func (h *Handler) ProfileSave(c *gin.Context) {
	firstName := strings.TrimSpace(c.PostForm("first_name"))
	lastName := strings.TrimSpace(c.PostForm("last_name"))
	exists := c.PostForm("exists") == "true"

	renderErr := func(status int, msg string) {
		c.HTML(status, "profile.html", gin.H{
			"Exists": exists,
			"Error":  msg,
			"Profile": &model.Profile{
				FirstName: firstName,
				LastName:  lastName,
			},
		})
	}

	if firstName == "" || lastName == "" {
		renderErr(http.StatusBadRequest, "请填写姓和名")
		return
	}

	var avatar multipart.File
	avatarName := ""
	if fileHeader, err := c.FormFile("profileImage"); err == nil && fileHeader != nil {
		if fileHeader.Size > profileAvatarMaxSize {
			renderErr(http.StatusBadRequest, "头像大小不能超过 5MB")
			return
		}
		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if !profileAvatarExts[ext] {
			renderErr(http.StatusBadRequest, "头像仅支持 jpg/jpeg/png/webp 格式")
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			renderErr(http.StatusBadRequest, "无法读取头像文件")
			return
		}
		defer func() { _ = f.Close() }()
		avatar = f
		avatarName = filepath.Base(fileHeader.Filename)
	}

	var avatarReader io.Reader
	if avatar != nil {
		avatarReader = avatar
	}

	profile, err := h.Client.SaveProfile(c.Request.Context(), !exists, firstName, lastName, avatarName, avatarReader)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			h.Sessions.Invalidate()
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		renderErr(http.StatusBadGateway, "保存失败，请稍后重试")
		return
	}

	msg := "资料更新成功！"
	if !exists {
		msg = "资料创建成功！"
	}
	c.HTML(http.StatusOK, "profile.html", gin.H{
		"Exists":  true,
		"Profile": profile,
		"Success": msg,
	})
}
