package model

import "time"

// AuthUser 认证服务返回的用户身份
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session 认证服务签发的会话
// 由 auth 包独占管理：登录时创建，过期时透明刷新，登出或失效时销毁
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         AuthUser  `json:"user"`
}

// Expired 判断访问令牌是否已过期（留 30 秒余量，避免边界请求被拒）
func (s *Session) Expired() bool {
	if s == nil {
		return true
	}
	return time.Now().After(s.ExpiresAt.Add(-30 * time.Second))
}
