package domain

import "interior-planboard/internal/geometry"

// Room 表示平面图上用户划定的矩形子区域。
// 四个几何字段均为完整图像的百分比坐标 ([0,100])，Width/Height 恒大于 0。
type Room struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect 返回房间的百分比矩形。
func (r Room) Rect() geometry.Rect {
	return geometry.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// ContainsPoint 判断全局百分比坐标点是否落在房间内（含边界）。
func (r Room) ContainsPoint(x, y float64) bool {
	return r.Rect().Contains(x, y)
}
