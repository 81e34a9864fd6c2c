package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// 上传前的本地校验：大小、扩展名、真实内容，全部在发起网络请求之前完成

// ValidateImageFile 校验待上传文件
// 返回文件扩展名（小写）与校验错误；错误用于行内展示，不会中断队列
func ValidateImageFile(path string, maxSizeMB int, allowedExts string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.New("无法读取待上传的文件")
	}
	if info.Size() > int64(maxSizeMB)*1024*1024 {
		return "", fmt.Errorf("文件大小不能超过 %dMB", maxSizeMB)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", errors.New("无法识别文件类型")
	}

	allowed := false
	for _, allowExt := range strings.Split(allowedExts, ",") {
		if strings.TrimSpace(strings.ToLower(allowExt)) == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return ext, fmt.Errorf("不支持的文件类型: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return ext, errors.New("无法打开待上传的文件")
	}
	defer func() { _ = f.Close() }()

	if valid, msg := validateImageContent(f, ext); !valid {
		return ext, errors.New(msg)
	}
	return ext, nil
}

// validateImageContent 检查文件真实内容（Magic Bytes）与扩展名是否匹配
func validateImageContent(reader io.Reader, ext string) (bool, string) {
	buffer := make([]byte, 512)
	_, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return false, "读取文件内容失败"
	}

	contentType := http.DetectContentType(buffer)

	allowedTypes := map[string]map[string]bool{
		"image/jpeg": {".jpg": true, ".jpeg": true},
		"image/png":  {".png": true},
		"image/gif":  {".gif": true},
		"image/webp": {".webp": true},
	}

	if exts, ok := allowedTypes[contentType]; ok {
		if exts[ext] {
			return true, ""
		}
	}

	return false, "文件真实类型(" + contentType + ")与扩展名(" + ext + ")不匹配或不支持"
}
