// Package dto 定义了 WebSocket 通道上与客户端交换的数据结构。
package dto

import (
	"interior-planboard/internal/engine"
	"interior-planboard/internal/geometry"
)

// 客户端指令类型。
const (
	CmdPointerDown     = "pointer_down"
	CmdPointerMove     = "pointer_move"
	CmdPointerUp       = "pointer_up"
	CmdSelectSymbol    = "select_symbol"
	CmdToggleMode      = "toggle_mode"
	CmdEnterRoom       = "enter_room"
	CmdExitRoom        = "exit_room"
	CmdDeleteRoom      = "delete_room"
	CmdDeleteMarker    = "delete_marker"
	CmdConfirmRoomName = "confirm_room_name"
	CmdCancelRoomName  = "cancel_room_name"
)

// Command 表示从客户端 WebSocket 消息中接收的一条指令。
//
// 指针类指令携带容器内像素坐标和客户端量得的容器尺寸，
// 由服务端统一经 geometry.MapToPercent 映射；
// MarkerID 在 pointer_down 落在标记元素上时由客户端携带（DOM 级命中）。
type Command struct {
	Type string `json:"type" binding:"required"`

	// 指针事件字段
	X               float64 `json:"x,omitempty"`
	Y               float64 `json:"y,omitempty"`
	ContainerWidth  float64 `json:"containerWidth,omitempty"`
	ContainerHeight float64 `json:"containerHeight,omitempty"`

	MarkerID string `json:"markerId,omitempty"` // pointer_down 命中 / delete_marker 目标
	RoomID   string `json:"roomId,omitempty"`   // enter_room / delete_room 目标
	Symbol   string `json:"symbol,omitempty"`   // select_symbol
	Mode     string `json:"mode,omitempty"`     // toggle_mode: "marker" | "room"
	Name     string `json:"name,omitempty"`     // confirm_room_name
	Detail   string `json:"detail,omitempty"`   // 标记备注，随 pointer_down 放置时携带
}

// RoomView 是渲染模型中的房间视图。
type RoomView struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RenderModel 是每次指令处理后发给客户端的完整渲染模型。
type RenderModel struct {
	Type string `json:"type"` // 恒为 "render"

	ViewMode     string                  `json:"viewMode"` // "full" | "room"
	ActiveRoomID string                  `json:"activeRoomId,omitempty"`
	Transform    *geometry.RoomTransform `json:"transform,omitempty"` // ROOM 模式下的呈现变换

	WorkMode string `json:"workMode"` // "marker" | "room"
	Symbol   string `json:"symbol,omitempty"`

	Rooms   []RoomView            `json:"rooms"`
	Markers []engine.RenderMarker `json:"markers"`
	Preview *geometry.Rect        `json:"preview,omitempty"` // 框选预览矩形
	Naming  bool                  `json:"naming"`            // 等待房间命名确认

	Counts map[string]int `json:"counts"` // 按符号类型的数量，ROOM 模式下限定活动房间
}

// RoleDTO 通知客户端其在会话中的角色。
type RoleDTO struct {
	Type string `json:"type"` // 恒为 "role"
	Role string `json:"role"` // "editor" | "viewer"
}

// ErrorDTO 表示发送给客户端的错误消息数据结构。
type ErrorDTO struct {
	Type    string `json:"type"` // 恒为 "error"
	Message string `json:"message"`
}
