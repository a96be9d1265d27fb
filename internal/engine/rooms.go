// Package engine 实现图纸标注的内存状态：房间注册表、标记存储、
// 视口状态和按符号类型的统计。所有坐标均为完整图像的百分比坐标。
package engine

import (
	"github.com/google/uuid"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/geometry"
)

// MinRoomSizePercent 是房间矩形的最小边长（百分比单位）。
// 低于此阈值的矩形通常是误触，直接丢弃，避免产生不可用的微型房间。
const MinRoomSizePercent = 2.0

// RoomRegistry 维护一张图纸的房间集合，保持创建（插入）顺序。
type RoomRegistry struct {
	rooms []domain.Room
}

// NewRoomRegistry 以已有房间集合创建注册表（打开图纸时从持久层恢复）。
func NewRoomRegistry(existing []domain.Room) *RoomRegistry {
	rooms := make([]domain.Room, len(existing))
	copy(rooms, existing)
	return &RoomRegistry{rooms: rooms}
}

// Add 向注册表追加一个新房间。
// 矩形先被裁剪到图像 [0,100]² 范围，裁剪后任一边长小于 MinRoomSizePercent
// 则拒绝（返回 nil, false），不产生任何副作用。
func (r *RoomRegistry) Add(rect geometry.Rect, name string) (*domain.Room, bool) {
	rect = geometry.ClampToImage(rect)
	if rect.Width < MinRoomSizePercent || rect.Height < MinRoomSizePercent {
		return nil, false
	}
	room := domain.Room{
		ID:     uuid.NewString(),
		Name:   name,
		X:      rect.X,
		Y:      rect.Y,
		Width:  rect.Width,
		Height: rect.Height,
	}
	r.rooms = append(r.rooms, room)
	return &r.rooms[len(r.rooms)-1], true
}

// Remove 按 ID 删除房间，返回被删除的房间。
// 级联删除该房间的标记由调用方（AnnotationService）通过 MarkerStore 完成。
func (r *RoomRegistry) Remove(id string) (domain.Room, bool) {
	for i := range r.rooms {
		if r.rooms[i].ID == id {
			removed := r.rooms[i]
			r.rooms = append(r.rooms[:i], r.rooms[i+1:]...)
			return removed, true
		}
	}
	return domain.Room{}, false
}

// Get 按 ID 查找房间，不存在时返回 nil。
func (r *RoomRegistry) Get(id string) *domain.Room {
	for i := range r.rooms {
		if r.rooms[i].ID == id {
			return &r.rooms[i]
		}
	}
	return nil
}

// List 返回创建顺序的房间切片，不做任何隐式排序。
func (r *RoomRegistry) List() []domain.Room {
	out := make([]domain.Room, len(r.rooms))
	copy(out, r.rooms)
	return out
}
