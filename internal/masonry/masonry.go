package masonry

import "github.com/cjones26/jackalope-web/internal/model"

// 瀑布流布局引擎
// 不依赖真实渲染高度，用宽高比维护每列的累计高度估计，
// 贪心地把每张图放进当前最矮的一列（高度并列时取下标最小的列）

// ColumnCount 按视口宽度的固定断点得出列数
func ColumnCount(viewportWidth int) int {
	switch {
	case viewportWidth < 768:
		return 1
	case viewportWidth < 1024:
		return 2
	case viewportWidth < 1280:
		return 3
	case viewportWidth < 1536:
		return 4
	default:
		return 5
	}
}

// Arrange 按输入顺序把图片分配到 columnCount 个有序列中
// 每列内部保持输入顺序，跨列不保证全局顺序
func Arrange(images []model.GalleryImage, columnCount int) [][]model.GalleryImage {
	if columnCount < 1 {
		columnCount = 1
	}

	columns := make([][]model.GalleryImage, columnCount)
	heights := make([]float64, columnCount)

	for _, img := range images {
		target := shortestColumn(heights)
		columns[target] = append(columns[target], img)
		// 高度估计：列宽占比除以宽高比，近似渲染后的相对高度
		heights[target] += 100 / float64(columnCount) / img.AspectRatio()
	}

	return columns
}

// shortestColumn 返回累计高度最小的列下标，并列时取最小下标
func shortestColumn(heights []float64) int {
	target := 0
	for i, h := range heights {
		if h < heights[target] {
			target = i
		}
	}
	return target
}
