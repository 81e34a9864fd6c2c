//go:build !embed

package main

import (
	"io/fs"
)

// GetWebAssets 非嵌入模式返回 nil，模板与静态资源从磁盘加载
// 编译时不带 tags 就会走这里
func GetWebAssets() fs.FS {
	return nil
}
