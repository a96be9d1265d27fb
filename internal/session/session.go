// Package session 实现标注交互的手势状态机。
//
// 状态机是纯函数式的：Transition(state, event, env) 返回新状态和一组副作用描述，
// 不直接触碰任何存储，也不依赖渲染框架。事件中的坐标已经由
// geometry.MapToPercent 映射为图像百分比坐标；落在 letterbox 边缘的指针事件
// 以 Mapped=false 进入，状态机对其不做任何迁移。
package session

import "interior-planboard/internal/geometry"

// WorkMode 表示交互表面当前的工作模式。
type WorkMode string

const (
	// ModeMarker 标记模式：点击放置符号，按住标记拖动。
	ModeMarker WorkMode = "marker"
	// ModeRoom 房间模式：拖拽框选一个矩形房间。
	ModeRoom WorkMode = "room"
)

// Kind 是状态标签。
type Kind int

const (
	// Idle 空闲，等待手势开始。
	Idle Kind = iota
	// DrawingRoom 正在拖拽框选房间，Start 保存起点。
	DrawingRoom
	// NamingRoom 框选结束，等待命名确认，Pending 保存待定矩形。
	NamingRoom
	// DraggingMarker 正在拖动标记，MarkerID 保存目标。
	DraggingMarker
)

// State 是手势状态的标签联合。只有与 Kind 对应的字段有意义。
type State struct {
	Kind     Kind
	Start    geometry.Point // DrawingRoom：框选起点
	Pending  geometry.Rect  // NamingRoom：待命名矩形
	MarkerID string         // DraggingMarker：被拖动的标记
}

// NewState 返回初始（Idle）状态。会话没有终止状态，随图纸打开存续。
func NewState() State {
	return State{Kind: Idle}
}

// EventKind 是事件标签。
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	ConfirmName
	CancelName
)

// Event 是驱动状态机的单个输入事件。
type Event struct {
	Kind EventKind

	// Point 是映射后的百分比坐标；仅当 Mapped 为 true 时有效。
	Point  geometry.Point
	Mapped bool

	// HitMarkerID 在 PointerDown 落在既有标记上时携带该标记 ID。
	// 命中判定由交互表面完成（标记是独立的可点击元素）。
	HitMarkerID string

	// Name 仅用于 ConfirmName。
	Name string
}

// Env 是一次迁移的环境参数，由会话持有方提供。
type Env struct {
	Mode          WorkMode
	SymbolCapable bool // 当前图纸类型是否允许放置符号标记
}

// EffectKind 是副作用标签。
type EffectKind int

const (
	// EffectAddMarker 在 Point 处放置一个标记。
	EffectAddMarker EffectKind = iota
	// EffectMoveMarker 将 MarkerID 移动到 Point。
	EffectMoveMarker
	// EffectAddRoom 以 Rect/Name 创建房间。
	EffectAddRoom
	// EffectPreview 更新框选预览矩形为 Rect。
	EffectPreview
	// EffectClearPreview 清除框选预览。
	EffectClearPreview
)

// Effect 描述一个待执行的副作用，由会话持有方落到 RoomRegistry/MarkerStore。
type Effect struct {
	Kind     EffectKind
	Point    geometry.Point
	Rect     geometry.Rect
	Name     string
	MarkerID string
}

// Transition 执行一次状态迁移。
// 手势进行中（DrawingRoom/DraggingMarker）收到新的 PointerDown 一律忽略，
// 同一时间只允许一个活动手势。
func Transition(st State, ev Event, env Env) (State, []Effect) {
	switch st.Kind {
	case Idle:
		return transitionIdle(st, ev, env)
	case DrawingRoom:
		return transitionDrawingRoom(st, ev)
	case NamingRoom:
		return transitionNamingRoom(st, ev)
	case DraggingMarker:
		return transitionDraggingMarker(st, ev)
	}
	return st, nil
}

func transitionIdle(st State, ev Event, env Env) (State, []Effect) {
	if ev.Kind != PointerDown {
		return st, nil
	}
	if !ev.Mapped {
		// letterbox 边缘点击，静默忽略
		return st, nil
	}

	switch env.Mode {
	case ModeRoom:
		next := State{Kind: DrawingRoom, Start: ev.Point}
		preview := geometry.RectFromPoints(ev.Point, ev.Point)
		return next, []Effect{{Kind: EffectPreview, Rect: preview}}

	case ModeMarker:
		if ev.HitMarkerID != "" {
			return State{Kind: DraggingMarker, MarkerID: ev.HitMarkerID}, nil
		}
		if !env.SymbolCapable {
			// 纯轮廓图纸不允许放置符号
			return st, nil
		}
		return st, []Effect{{Kind: EffectAddMarker, Point: ev.Point}}
	}
	return st, nil
}

func transitionDrawingRoom(st State, ev Event) (State, []Effect) {
	switch ev.Kind {
	case PointerMove:
		if !ev.Mapped {
			return st, nil
		}
		preview := geometry.RectFromPoints(st.Start, ev.Point)
		return st, []Effect{{Kind: EffectPreview, Rect: preview}}

	case PointerUp:
		if !ev.Mapped {
			// 指针在边缘释放，框选作废
			return NewState(), []Effect{{Kind: EffectClearPreview}}
		}
		rect := geometry.RectFromPoints(st.Start, ev.Point)
		if rect.Width <= 2 || rect.Height <= 2 {
			// 低于最小尺寸阈值的误触，静默丢弃
			return NewState(), []Effect{{Kind: EffectClearPreview}}
		}
		return State{Kind: NamingRoom, Pending: rect}, nil
	}
	return st, nil
}

func transitionNamingRoom(st State, ev Event) (State, []Effect) {
	switch ev.Kind {
	case ConfirmName:
		effects := []Effect{
			{Kind: EffectAddRoom, Rect: st.Pending, Name: ev.Name},
			{Kind: EffectClearPreview},
		}
		return NewState(), effects
	case CancelName:
		// 放弃命名，矩形丢弃，无任何持久化副作用
		return NewState(), []Effect{{Kind: EffectClearPreview}}
	}
	// 命名弹窗打开期间的指针事件忽略
	return st, nil
}

func transitionDraggingMarker(st State, ev Event) (State, []Effect) {
	switch ev.Kind {
	case PointerMove:
		if !ev.Mapped {
			return st, nil
		}
		return st, []Effect{{Kind: EffectMoveMarker, MarkerID: st.MarkerID, Point: ev.Point}}
	case PointerUp:
		// 最终位置已在最后一次 move 时写入
		return NewState(), nil
	}
	return st, nil
}
