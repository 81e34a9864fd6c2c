//go:build embed

package main

import (
	"embed"
	"io/fs"
)

//go:embed all:web
var embedFS embed.FS

// GetWebAssets 返回嵌入的模板与静态资源
// 编译时带上 -tags embed 就会走这里
func GetWebAssets() fs.FS {
	f, err := fs.Sub(embedFS, "web")
	if err != nil {
		panic(err)
	}
	return f
}
