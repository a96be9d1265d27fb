package engine

import (
	"github.com/google/uuid"

	"interior-planboard/internal/domain"
)

// RenderScope 指定 ListForRender 的渲染范围。
type RenderScope int

const (
	// ScopeAll 渲染所有标记（FULL 视图）。
	ScopeAll RenderScope = iota
	// ScopeRoom 仅渲染指定房间的标记（ROOM 放大视图）。
	ScopeRoom
)

// RenderMarker 是提供给渲染层的标记视图：显示坐标已按当前范围换算完毕。
type RenderMarker struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	RoomID string  `json:"roomId,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

// MarkerStore 维护一张图纸的标记集合。
//
// 核心不变量：RoomID 非空的标记以房间相对坐标为权威值，
// ROOM 视图渲染总是用房间 *当前* 矩形从房间相对坐标重投影显示坐标；
// 全局 X/Y 是为 FULL 视图渲染保持同步的缓存值。
type MarkerStore struct {
	markers []domain.Marker
}

// NewMarkerStore 以已有标记集合创建存储（打开图纸时从持久层恢复）。
func NewMarkerStore(existing []domain.Marker) *MarkerStore {
	markers := make([]domain.Marker, len(existing))
	copy(markers, existing)
	return &MarkerStore{markers: markers}
}

// Add 在全局坐标 (globalX, globalY) 创建一个标记。
// activeRoom 非 nil 时（ROOM 视图中放置），标记归属该房间，
// 并按房间矩形换算出房间相对坐标。重叠房间的归属由此一次性确定：
// 创建时的活动房间即归属房间，此后不再参考点与其他房间的包含关系。
func (s *MarkerStore) Add(globalX, globalY float64, symbolType, detail string, activeRoom *domain.Room) *domain.Marker {
	m := domain.Marker{
		ID:     uuid.NewString(),
		Type:   symbolType,
		X:      globalX,
		Y:      globalY,
		Detail: detail,
	}
	if activeRoom != nil {
		roomX := (globalX - activeRoom.X) / activeRoom.Width * 100
		roomY := (globalY - activeRoom.Y) / activeRoom.Height * 100
		m.RoomID = activeRoom.ID
		m.RoomX = &roomX
		m.RoomY = &roomY
	}
	s.markers = append(s.markers, m)
	return &s.markers[len(s.markers)-1]
}

// Move 更新标记的全局坐标。
// 标记归属某房间且拖动发生在该房间的放大视图中（activeRoom 匹配）时，
// 用与 Add 相同的公式重算房间相对坐标；
// 在 FULL 视图中拖动房间标记只更新全局坐标，房间相对坐标保持不变。
func (s *MarkerStore) Move(id string, newGlobalX, newGlobalY float64, activeRoom *domain.Room) bool {
	m := s.Get(id)
	if m == nil {
		return false
	}
	m.X = newGlobalX
	m.Y = newGlobalY
	if m.RoomID != "" && activeRoom != nil && activeRoom.ID == m.RoomID {
		roomX := (newGlobalX - activeRoom.X) / activeRoom.Width * 100
		roomY := (newGlobalY - activeRoom.Y) / activeRoom.Height * 100
		m.RoomX = &roomX
		m.RoomY = &roomY
	}
	return true
}

// Remove 按 ID 删除标记。
func (s *MarkerStore) Remove(id string) bool {
	for i := range s.markers {
		if s.markers[i].ID == id {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveByRoom 删除归属指定房间的所有标记（房间删除时的级联），返回删除数量。
func (s *MarkerStore) RemoveByRoom(roomID string) int {
	kept := s.markers[:0]
	removed := 0
	for _, m := range s.markers {
		if m.RoomID == roomID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.markers = kept
	return removed
}

// Get 按 ID 查找标记，不存在时返回 nil。
func (s *MarkerStore) Get(id string) *domain.Marker {
	for i := range s.markers {
		if s.markers[i].ID == id {
			return &s.markers[i]
		}
	}
	return nil
}

// List 返回标记集合的拷贝。
func (s *MarkerStore) List() []domain.Marker {
	out := make([]domain.Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// ListForRender 返回指定范围的渲染视图。
//
// ScopeAll：所有标记按存储的全局坐标原样输出。
// ScopeRoom：只输出归属 room 的标记，显示坐标从房间相对坐标经房间当前矩形
// 重新投影（displayX = room.X + roomX·room.Width/100），而不是读缓存的全局坐标；
// 房间矩形被编辑后标记因此无需迁移即可正确显示。
func (s *MarkerStore) ListForRender(scope RenderScope, room *domain.Room) []RenderMarker {
	out := make([]RenderMarker, 0, len(s.markers))
	switch scope {
	case ScopeRoom:
		if room == nil {
			return out
		}
		for _, m := range s.markers {
			if m.RoomID != room.ID || m.RoomX == nil || m.RoomY == nil {
				continue
			}
			out = append(out, RenderMarker{
				ID:     m.ID,
				Type:   m.Type,
				X:      room.X + *m.RoomX*room.Width/100,
				Y:      room.Y + *m.RoomY*room.Height/100,
				RoomID: m.RoomID,
				Detail: m.Detail,
			})
		}
	default:
		for _, m := range s.markers {
			out = append(out, RenderMarker{
				ID:     m.ID,
				Type:   m.Type,
				X:      m.X,
				Y:      m.Y,
				RoomID: m.RoomID,
				Detail: m.Detail,
			})
		}
	}
	return out
}
