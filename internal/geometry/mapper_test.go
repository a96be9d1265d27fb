package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interior-planboard/internal/geometry"
)

// --- 测试 MapToPercent 方法 ---

func TestMapToPercent_WideContainer(t *testing.T) {
	// Arrange: 容器 1000x500，正方形图片 800x800。
	// 图片 contain 适配后显示为 500x500，水平居中，左右各 250px letterbox。
	container := geometry.Size{Width: 1000, Height: 500}
	natural := geometry.Size{Width: 800, Height: 800}

	// Act: 点击 (260, 10)，位于图片显示区内 (10, 10)
	pt, ok := geometry.MapToPercent(geometry.Point{X: 260, Y: 10}, container, natural)

	// Assert
	require.True(t, ok, "图片区域内的点击应映射成功")
	assert.InDelta(t, 2.0, pt.X, 1e-9, "水平偏移 10px / 500px 显示宽度应为 2%")
	assert.InDelta(t, 2.0, pt.Y, 1e-9)
}

func TestMapToPercent_LetterboxClickIgnored(t *testing.T) {
	container := geometry.Size{Width: 1000, Height: 500}
	natural := geometry.Size{Width: 800, Height: 800}

	// 左侧 letterbox 边缘内的点击 (x < 250) 没有对应的图像坐标
	_, ok := geometry.MapToPercent(geometry.Point{X: 100, Y: 250}, container, natural)
	assert.False(t, ok, "letterbox 边缘点击不应产生图像坐标")

	// 右侧边缘同理
	_, ok = geometry.MapToPercent(geometry.Point{X: 900, Y: 250}, container, natural)
	assert.False(t, ok)
}

func TestMapToPercent_TallContainer(t *testing.T) {
	// 容器相对更高：宽度受限，垂直居中，上下出现 letterbox
	container := geometry.Size{Width: 500, Height: 1000}
	natural := geometry.Size{Width: 800, Height: 800}

	// 显示区为 500x500，offsetY = 250
	pt, ok := geometry.MapToPercent(geometry.Point{X: 250, Y: 500}, container, natural)
	require.True(t, ok)
	assert.InDelta(t, 50.0, pt.X, 1e-9)
	assert.InDelta(t, 50.0, pt.Y, 1e-9)

	// 顶部边缘
	_, ok = geometry.MapToPercent(geometry.Point{X: 250, Y: 100}, container, natural)
	assert.False(t, ok)
}

func TestMapToPercent_ResultAlwaysInRange(t *testing.T) {
	// 属性：映射成功的结果必须落在 [0,100]²
	container := geometry.Size{Width: 1280, Height: 720}
	natural := geometry.Size{Width: 1654, Height: 2339} // A4 竖向扫描件

	for x := 0.0; x <= container.Width; x += 64 {
		for y := 0.0; y <= container.Height; y += 36 {
			pt, ok := geometry.MapToPercent(geometry.Point{X: x, Y: y}, container, natural)
			if !ok {
				continue
			}
			assert.GreaterOrEqual(t, pt.X, 0.0)
			assert.LessOrEqual(t, pt.X, 100.0)
			assert.GreaterOrEqual(t, pt.Y, 0.0)
			assert.LessOrEqual(t, pt.Y, 100.0)
		}
	}
}

func TestMapToPercent_DegenerateSizes(t *testing.T) {
	// 尺寸非法时不应 panic，直接返回 ok=false
	_, ok := geometry.MapToPercent(geometry.Point{X: 1, Y: 1}, geometry.Size{}, geometry.Size{Width: 100, Height: 100})
	assert.False(t, ok)

	_, ok = geometry.MapToPercent(geometry.Point{X: 1, Y: 1}, geometry.Size{Width: 100, Height: 100}, geometry.Size{})
	assert.False(t, ok)
}

// --- 测试矩形工具函数 ---

func TestRectFromPoints_Normalizes(t *testing.T) {
	// 从右下往左上拖拽也应产生规范化矩形
	r := geometry.RectFromPoints(geometry.Point{X: 60, Y: 40}, geometry.Point{X: 20, Y: 10})
	assert.Equal(t, geometry.Rect{X: 20, Y: 10, Width: 40, Height: 30}, r)
}

func TestClampToImage(t *testing.T) {
	// 部分超出图像边界的矩形按可见部分保留
	r := geometry.ClampToImage(geometry.Rect{X: 90, Y: -10, Width: 30, Height: 40})
	assert.Equal(t, geometry.Rect{X: 90, Y: 0, Width: 10, Height: 30}, r)
}

func TestRectContains(t *testing.T) {
	r := geometry.Rect{X: 10, Y: 10, Width: 20, Height: 20}
	assert.True(t, r.Contains(10, 10), "边界点应视为包含")
	assert.True(t, r.Contains(30, 30))
	assert.False(t, r.Contains(30.01, 30))
}
