package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cjones26/jackalope-web/internal/model"
	"github.com/cjones26/jackalope-web/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

// 会话存储：对接外部认证服务（Supabase 兼容接口）
// 独占持有当前会话，负责注册、登录、登出、持久化恢复与透明刷新

var (
	ErrNotConfigured      = errors.New("auth: 未配置认证服务地址或密钥")
	ErrNoSession          = errors.New("auth: 当前没有有效会话")
	ErrInvalidCredentials = errors.New("auth: 邮箱或密码错误")
)

type Provider struct {
	mu         sync.Mutex
	httpClient *http.Client
	baseURL    string
	apiKey     string
	store      *store.Store
	session    *model.Session
}

func NewProvider(httpClient *http.Client, baseURL, apiKey string, st *store.Store) *Provider {
	return &Provider{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		store:      st,
	}
}

// tokenResponse 认证服务签发令牌的应答体
type tokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
	User         model.AuthUser `json:"user"`
}

type authErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

func (b authErrorBody) text() string {
	switch {
	case b.ErrorDescription != "":
		return b.ErrorDescription
	case b.Message != "":
		return b.Message
	default:
		return b.Error
	}
}

// SignUp 注册新账号，成功后认证服务会发送确认邮件
func (p *Provider) SignUp(ctx context.Context, email, password string) error {
	if p.baseURL == "" || p.apiKey == "" {
		return ErrNotConfigured
	}
	body := map[string]string{"email": email, "password": password}
	return p.post(ctx, "/auth/v1/signup", body, nil)
}

// SignInWithPassword 密码登录，成功后持有并持久化新会话
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) error {
	if p.baseURL == "" || p.apiKey == "" {
		return ErrNotConfigured
	}
	body := map[string]string{"email": email, "password": password}

	var resp tokenResponse
	if err := p.post(ctx, "/auth/v1/token?grant_type=password", body, &resp); err != nil {
		return err
	}
	p.adoptSession(resp)
	return nil
}

// SignOut 通知认证服务注销令牌，无论成败都清空本地会话
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := ""
	if p.session != nil {
		token = p.session.AccessToken
	}
	p.mu.Unlock()

	var remoteErr error
	if token != "" && p.baseURL != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/auth/v1/logout", nil)
		if err == nil {
			req.Header.Set("apikey", p.apiKey)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := p.httpClient.Do(req)
			if err != nil {
				remoteErr = err
			} else {
				_ = resp.Body.Close()
			}
		}
	}

	p.clearLocal()
	return remoteErr
}

// Restore 从本地状态库恢复会话；已过期且无法刷新时视为未登录
func (p *Provider) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	sess, err := p.store.LoadSession()
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	if !sess.Expired() {
		log.Printf("✅ 已恢复 %s 的登录会话", sess.User.Email)
		return nil
	}
	if err := p.refresh(ctx); err != nil {
		log.Printf("⚠️ 会话刷新失败，需要重新登录: %v", err)
		p.clearLocal()
	}
	return nil
}

// Session 返回当前会话的副本，未登录时返回 nil
func (p *Provider) Session() *model.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	copied := *p.session
	return &copied
}

// AccessToken 返回可用的访问令牌，过期则先刷新
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	sess := p.session
	p.mu.Unlock()

	if sess == nil {
		return "", ErrNoSession
	}
	if sess.Expired() {
		if err := p.refresh(ctx); err != nil {
			p.clearLocal()
			return "", fmt.Errorf("auth: 刷新令牌失败: %w", err)
		}
		p.mu.Lock()
		sess = p.session
		p.mu.Unlock()
		if sess == nil {
			return "", ErrNoSession
		}
	}
	return sess.AccessToken, nil
}

// Invalidate 由上层在收到 401 时调用，清空本地会话触发重新登录
func (p *Provider) Invalidate() {
	p.clearLocal()
}

func (p *Provider) refresh(ctx context.Context) error {
	p.mu.Lock()
	refreshToken := ""
	if p.session != nil {
		refreshToken = p.session.RefreshToken
	}
	p.mu.Unlock()

	if refreshToken == "" {
		return ErrNoSession
	}

	body := map[string]string{"refresh_token": refreshToken}
	var resp tokenResponse
	if err := p.post(ctx, "/auth/v1/token?grant_type=refresh_token", body, &resp); err != nil {
		return err
	}
	p.adoptSession(resp)
	return nil
}

func (p *Provider) adoptSession(resp tokenResponse) {
	sess := &model.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresAt:    tokenExpiry(resp.AccessToken, resp.ExpiresIn),
		User:         resp.User,
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	if p.store != nil {
		if err := p.store.SaveSession(*sess); err != nil {
			log.Printf("⚠️ 会话持久化失败: %v", err)
		}
	}
}

func (p *Provider) clearLocal() {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
	if p.store != nil {
		_ = p.store.ClearSession()
	}
}

// tokenExpiry 优先读取 JWT 的 exp 声明，读不到再用 expires_in 估算
func tokenExpiry(accessToken string, expiresIn int) time.Time {
	parser := jwt.NewParser()
	var claims jwt.RegisteredClaims
	// 令牌由认证服务签发验证，客户端只需要读取声明，不校验签名
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err == nil {
		if claims.ExpiresAt != nil {
			return claims.ExpiresAt.Time
		}
	}
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

func (p *Provider) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("auth: 无法连接认证服务: %w", err)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var eb authErrorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		if msg := eb.text(); msg != "" && !strings.Contains(strings.ToLower(msg), "invalid login credentials") {
			return fmt.Errorf("auth: %s", msg)
		}
		return ErrInvalidCredentials
	}
	if msg := eb.text(); msg != "" {
		return fmt.Errorf("auth: 认证服务返回 %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("auth: 认证服务返回 %d", resp.StatusCode)
}
