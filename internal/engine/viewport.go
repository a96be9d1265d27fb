package engine

import (
	"interior-planboard/internal/domain"
	"interior-planboard/internal/geometry"
)

// ViewMode 表示当前视口模式。
type ViewMode string

const (
	// ViewFull 显示完整图像，房间以轮廓叠加渲染。
	ViewFull ViewMode = "full"
	// ViewRoom 单个房间放大充满视口。
	ViewRoom ViewMode = "room"
)

// Viewport 维护视口模式状态并计算房间放大视图的呈现变换。
// 变换只作用于渲染图像，从不改变已存储的坐标；
// ROOM 模式下的指针命中测试不通过反解此变换实现，
// 而是照常用 geometry.MapToPercent 映射到完整图像坐标系——缩放纯粹是视觉效果。
type Viewport struct {
	mode         ViewMode
	activeRoomID string
}

// NewViewport 创建处于 FULL 模式的视口。
func NewViewport() *Viewport {
	return &Viewport{mode: ViewFull}
}

// EnterRoom 切换到指定房间的放大视图。
func (v *Viewport) EnterRoom(roomID string) {
	v.mode = ViewRoom
	v.activeRoomID = roomID
}

// ExitToFull 返回完整图像视图。
// 活动房间被删除时也会调用（见 AnnotationService 的级联处理）。
func (v *Viewport) ExitToFull() {
	v.mode = ViewFull
	v.activeRoomID = ""
}

// Mode 返回当前视口模式。
func (v *Viewport) Mode() ViewMode { return v.mode }

// ActiveRoomID 返回 ROOM 模式下的活动房间 ID，FULL 模式下为空。
func (v *Viewport) ActiveRoomID() string { return v.activeRoomID }

// Transform 返回当前活动房间的呈现变换；FULL 模式下返回 nil。
func (v *Viewport) Transform(room *domain.Room) *geometry.RoomTransform {
	if v.mode != ViewRoom || room == nil {
		return nil
	}
	t := geometry.FitRoom(room.Rect())
	return &t
}
