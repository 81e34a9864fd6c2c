package api

import (
	"context"
	"io"
	"net/http"

	"github.com/cjones26/jackalope-web/internal/model"
)

// GetProfile 拉取用户资料；尚未创建时返回 ErrNotFound
func (c *Client) GetProfile(ctx context.Context) (*model.Profile, error) {
	var out model.Profile
	if err := c.getJSON(ctx, "/profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveProfile 创建（create=true 时 POST）或更新（PUT）用户资料
// avatar 为 nil 表示不更换头像
func (c *Client) SaveProfile(ctx context.Context, create bool, firstName, lastName, avatarName string, avatar io.Reader) (*model.Profile, error) {
	fields := map[string]string{
		"first_name": firstName,
		"last_name":  lastName,
	}
	body, contentType, err := buildMultipart(fields, "profileImage", avatarName, avatar)
	if err != nil {
		return nil, err
	}

	method := http.MethodPut
	if create {
		method = http.MethodPost
	}
	var out model.Profile
	if err := c.do(ctx, method, "/profile", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
