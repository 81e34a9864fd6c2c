package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cjones26/jackalope-web/internal/auth"

	"github.com/gin-gonic/gin"
)

// 认证相关页面：登录、注册、确认邮件提示、登出
// 认证失败一律行内展示，不会让进程退出

// Landing 未登录首页；已有会话直接进图库
func (h *Handler) Landing(c *gin.Context) {
	if h.Sessions.Session() != nil {
		c.Redirect(http.StatusSeeOther, "/gallery")
		return
	}
	c.HTML(http.StatusOK, "landing.html", gin.H{})
}

func (h *Handler) SignInPage(c *gin.Context) {
	if h.Sessions.Session() != nil {
		c.Redirect(http.StatusSeeOther, "/gallery")
		return
	}
	c.HTML(http.StatusOK, "sign_in.html", gin.H{})
}

func (h *Handler) SignIn(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	if email == "" || password == "" {
		c.HTML(http.StatusBadRequest, "sign_in.html", gin.H{
			"Error": "请输入邮箱和密码",
			"Email": email,
		})
		return
	}

	if err := h.Sessions.SignInWithPassword(c.Request.Context(), email, password); err != nil {
		msg := "登录失败，请稍后重试"
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			msg = "邮箱或密码错误"
		case errors.Is(err, auth.ErrNotConfigured):
			msg = "认证服务未配置，无法登录"
		}
		c.HTML(http.StatusUnauthorized, "sign_in.html", gin.H{
			"Error": msg,
			"Email": email,
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/gallery")
}

func (h *Handler) SignUpPage(c *gin.Context) {
	if h.Sessions.Session() != nil {
		c.Redirect(http.StatusSeeOther, "/gallery")
		return
	}
	c.HTML(http.StatusOK, "sign_up.html", gin.H{})
}

func (h *Handler) SignUp(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	confirm := c.PostForm("confirm_password")

	var msg string
	switch {
	case email == "" || password == "":
		msg = "请输入邮箱和密码"
	case len(password) < 8:
		msg = "密码最少8位"
	case password != confirm:
		msg = "两次输入的密码不一致"
	}
	if msg != "" {
		c.HTML(http.StatusBadRequest, "sign_up.html", gin.H{"Error": msg, "Email": email})
		return
	}

	if err := h.Sessions.SignUp(c.Request.Context(), email, password); err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			c.HTML(http.StatusServiceUnavailable, "sign_up.html", gin.H{
				"Error": "认证服务未配置，无法注册",
				"Email": email,
			})
			return
		}
		c.HTML(http.StatusBadGateway, "sign_up.html", gin.H{
			"Error": "注册失败: " + err.Error(),
			"Email": email,
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/check-email")
}

func (h *Handler) CheckEmailPage(c *gin.Context) {
	c.HTML(http.StatusOK, "check_email.html", gin.H{})
}

// SignOut 登出：清空会话与本地缓存，回到未登录首页
func (h *Handler) SignOut(c *gin.Context) {
	_ = h.Sessions.SignOut(c.Request.Context())
	h.Cache.Reset()
	h.Overlay.Close()
	c.Redirect(http.StatusSeeOther, "/")
}
