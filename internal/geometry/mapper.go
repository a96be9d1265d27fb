// Package geometry 提供图纸标注所需的纯几何计算：
// 指针坐标到图像百分比坐标的映射（letterbox 感知），以及房间放大视图的变换。
// 本包不依赖任何渲染框架，所有函数都是纯函数。
package geometry

// Point 表示一个二维坐标点。
// 根据上下文，单位可能是容器内像素，也可能是图像百分比 (0-100)。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size 表示一个宽高尺寸（像素）。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect 表示百分比坐标系下的矩形区域。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MapToPercent 将容器内的指针像素位置映射为图像百分比坐标。
// 图像按 "contain" 方式适配容器显示，容器与图像宽高比不同时会产生 letterbox 边缘。
// 落在边缘内的指针位置没有对应的图像坐标，返回 ok=false。
// 点击、拖动、房间框选预览都必须经过这一个函数，不允许各自重新推导变换。
func MapToPercent(pointer Point, container Size, natural Size) (Point, bool) {
	if container.Width <= 0 || container.Height <= 0 || natural.Width <= 0 || natural.Height <= 0 {
		return Point{}, false
	}

	imageAspect := natural.Width / natural.Height
	containerAspect := container.Width / container.Height

	// 容器相对更宽 => 高度受限，水平居中；否则宽度受限，垂直居中。
	var displayWidth, displayHeight, offsetX, offsetY float64
	if containerAspect > imageAspect {
		displayHeight = container.Height
		displayWidth = displayHeight * imageAspect
		offsetX = (container.Width - displayWidth) / 2
	} else {
		displayWidth = container.Width
		displayHeight = displayWidth / imageAspect
		offsetY = (container.Height - displayHeight) / 2
	}

	localX := pointer.X - offsetX
	localY := pointer.Y - offsetY
	if localX < 0 || localX > displayWidth || localY < 0 || localY > displayHeight {
		// letterbox 边缘点击，无对应图像坐标
		return Point{}, false
	}

	return Point{
		X: localX / displayWidth * 100,
		Y: localY / displayHeight * 100,
	}, true
}

// RectFromPoints 由两个对角点构造规范化矩形（左上角 + 非负宽高）。
func RectFromPoints(a, b Point) Rect {
	x0, x1 := a.X, b.X
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	y0, y1 := a.Y, b.Y
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// ClampToImage 将矩形裁剪到图像的 [0,100]² 范围内。
// 超出图像边界绘制的房间按可见部分保留。
func ClampToImage(r Rect) Rect {
	x0 := clamp(r.X, 0, 100)
	y0 := clamp(r.Y, 0, 100)
	x1 := clamp(r.X+r.Width, 0, 100)
	y1 := clamp(r.Y+r.Height, 0, 100)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Contains 判断百分比坐标点是否落在矩形内（含边界）。
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
