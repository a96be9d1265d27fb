package geometry

import "math"

// RoomTransform 是进入单房间放大视图时应用于渲染图像的 scale/translate 对。
// 它只是呈现层变换，不改变任何已存储的坐标；
// ROOM 视图下的指针命中测试仍然通过 MapToPercent 在完整图像坐标系中进行。
type RoomTransform struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
}

// FitRoom 计算让房间矩形充满视口的变换。
// 取两个比值中较大者作为缩放倍数，使房间较短的归一化边也充满视口，
// 避免放大视图内部再出现一圈 letterbox；平移量把房间中心移到视口中心。
func FitRoom(r Rect) RoomTransform {
	if r.Width <= 0 || r.Height <= 0 {
		return RoomTransform{Scale: 1}
	}
	scale := math.Max(100/r.Width, 100/r.Height)
	centerX := r.X + r.Width/2
	centerY := r.Y + r.Height/2
	return RoomTransform{
		Scale:      scale,
		TranslateX: (50 - centerX) / scale,
		TranslateY: (50 - centerY) / scale,
	}
}
