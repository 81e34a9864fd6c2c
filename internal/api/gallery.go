package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cjones26/jackalope-web/internal/model"
)

// ImageMeta 上传或编辑图片时附带的元数据
type ImageMeta struct {
	Title       string
	Description string
	Tags        []string
}

// BulkDeleteResult 批量删除接口的应答体
type BulkDeleteResult struct {
	DeletedCount int  `json:"deletedCount"`
	Success      bool `json:"success"`
}

// ListGallery 按页拉取图库，页码从 1 开始
func (c *Client) ListGallery(ctx context.Context, page, limit int) (*model.GalleryPage, error) {
	var out model.GalleryPage
	if err := c.getJSON(ctx, "/gallery"+intQuery(page, limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadImage 以 multipart 提交单张图片与可选元数据
func (c *Client) UploadImage(ctx context.Context, meta ImageMeta, filename string, file io.Reader) error {
	fields := map[string]string{
		"title":       meta.Title,
		"description": meta.Description,
	}
	if len(meta.Tags) > 0 {
		tags, err := json.Marshal(meta.Tags)
		if err != nil {
			return err
		}
		fields["tags"] = string(tags)
	}

	body, contentType, err := buildMultipart(fields, "images", filename, file)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/gallery", contentType, body, nil)
}

// UpdateImage 更新单张图片的元数据
func (c *Client) UpdateImage(ctx context.Context, id string, meta ImageMeta) (*model.GalleryImage, error) {
	payload, err := json.Marshal(map[string]any{
		"title":       meta.Title,
		"description": meta.Description,
		"tags":        meta.Tags,
	})
	if err != nil {
		return nil, err
	}
	var out model.GalleryImage
	if err := c.do(ctx, http.MethodPut, "/gallery/"+id, "application/json", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteImage 删除单张图片
func (c *Client) DeleteImage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/gallery/"+id, "", nil, nil)
}

// DeleteImages 批量删除图片
func (c *Client) DeleteImages(ctx context.Context, ids []string) (*BulkDeleteResult, error) {
	payload, err := json.Marshal(map[string][]string{"imageIds": ids})
	if err != nil {
		return nil, err
	}
	var out BulkDeleteResult
	if err := c.do(ctx, http.MethodDelete, "/gallery", "application/json", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
