package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/cjones26/jackalope-web/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 本地状态库：持久化会话与图库缓存副本
// 相当于浏览器端 localStorage 的角色，进程重启后可恢复登录态并立即渲染旧图库

type Store struct {
	db *gorm.DB
}

// sessionRow 会话只保留一行（id 固定为 1）
type sessionRow struct {
	ID           uint      `gorm:"primaryKey"`
	AccessToken  string    `gorm:"not null"`
	RefreshToken string    `gorm:"not null"`
	TokenType    string    `gorm:"not null"`
	ExpiresAt    time.Time `gorm:"not null"`
	UserID       string    `gorm:"not null"`
	Email        string    `gorm:"not null"`
	UpdatedAt    time.Time
}

type imageRow struct {
	ID          string `gorm:"primaryKey"`
	Page        int    `gorm:"not null;index"`
	Position    int    `gorm:"not null"`
	Title       string
	Description string
	TagsJSON    string
	Format      string
	Width       int
	Height      int
	URL         string
	ThumbURL    string
	UploadedAt  string
}

// Open 打开（必要时创建）本地状态库并完成迁移
func Open(filename string) (*Store, error) {
	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	gdb, err := gorm.Open(sqlite.Open(filename), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := gdb.AutoMigrate(&sessionRow{}, &imageRow{}); err != nil {
		return nil, err
	}

	return &Store{db: gdb}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveSession 保存会话（覆盖旧会话）
func (s *Store) SaveSession(sess model.Session) error {
	row := sessionRow{
		ID:           1,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    sess.TokenType,
		ExpiresAt:    sess.ExpiresAt,
		UserID:       sess.User.ID,
		Email:        sess.User.Email,
	}
	return s.db.Save(&row).Error
}

// LoadSession 读取持久化的会话，不存在时返回 (nil, nil)
func (s *Store) LoadSession() (*model.Session, error) {
	var row sessionRow
	if err := s.db.First(&row, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model.Session{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		TokenType:    row.TokenType,
		ExpiresAt:    row.ExpiresAt,
		User:         model.AuthUser{ID: row.UserID, Email: row.Email},
	}, nil
}

// ClearSession 删除持久化的会话（登出或会话失效时调用）
func (s *Store) ClearSession() error {
	return s.db.Where("1 = 1").Delete(&sessionRow{}).Error
}

// ReplacePageImages 覆盖写入某一分页的缓存副本
func (s *Store) ReplacePageImages(page int, images []model.GalleryImage) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("page = ?", page).Delete(&imageRow{}).Error; err != nil {
			return err
		}
		for i, img := range images {
			tags, _ := json.Marshal(img.Tags)
			row := imageRow{
				ID:          img.ID,
				Page:        page,
				Position:    i,
				Title:       img.Title,
				Description: img.Description,
				TagsJSON:    string(tags),
				Format:      img.Format,
				Width:       img.Width,
				Height:      img.Height,
				URL:         img.URL,
				ThumbURL:    img.ThumbnailURL,
				UploadedAt:  img.UploadedAt,
			}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadImages 按抓取顺序（页码、页内位置）读出全部缓存图片
func (s *Store) LoadImages() ([]model.GalleryImage, error) {
	var rows []imageRow
	if err := s.db.Order("page asc, position asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	images := make([]model.GalleryImage, 0, len(rows))
	for _, row := range rows {
		var tags []string
		if row.TagsJSON != "" {
			_ = json.Unmarshal([]byte(row.TagsJSON), &tags)
		}
		images = append(images, model.GalleryImage{
			ID:           row.ID,
			Title:        row.Title,
			Description:  row.Description,
			Tags:         tags,
			Format:       row.Format,
			Width:        row.Width,
			Height:       row.Height,
			URL:          row.URL,
			ThumbnailURL: row.ThumbURL,
			UploadedAt:   row.UploadedAt,
		})
	}
	return images, nil
}

// DeleteImages 从缓存副本移除指定图片（乐观删除的本地落盘）
func (s *Store) DeleteImages(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Where("id IN ?", ids).Delete(&imageRow{}).Error
}

// ClearImages 清空图库缓存副本（登出时调用）
func (s *Store) ClearImages() error {
	return s.db.Where("1 = 1").Delete(&imageRow{}).Error
}
