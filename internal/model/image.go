package model

// GalleryImage 图库后端返回的图片记录，客户端只持有只读缓存副本
type GalleryImage struct {
	ID           string   `json:"_id"`
	AssetID      string   `json:"assetId,omitempty"`
	PublicID     string   `json:"publicId,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Format       string   `json:"format"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	URL          string   `json:"url"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	UploadedAt   string   `json:"uploadedAt"`
}

// Thumb 瀑布流使用的缩略图地址，缺失时退回原图
func (img GalleryImage) Thumb() string {
	if img.ThumbnailURL != "" {
		return img.ThumbnailURL
	}
	return img.URL
}

// AspectRatio 计算宽高比，高度缺失或非法时回退为 1
func (img GalleryImage) AspectRatio() float64 {
	if img.Height <= 0 {
		return 1
	}
	return float64(img.Width) / float64(img.Height)
}

// GalleryPage 单次分页请求返回的一批图片及分页元信息
type GalleryPage struct {
	Images      []GalleryImage `json:"images"`
	Total       int            `json:"total"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	HasMore     bool           `json:"hasMore"`
}
