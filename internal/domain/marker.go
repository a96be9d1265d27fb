package domain

// Marker 表示一个符号标记（点标注），例如插座、开关、灯位。
//
// 坐标采用刻意的双重表示：X/Y 始终保存全局百分比坐标，
// RoomID 非空时 RoomX/RoomY 额外保存房间相对百分比坐标。
// 房间矩形被编辑后，房间内的标记通过房间相对坐标重投影，无需迁移数据；
// 存在 RoomID 时房间相对坐标是权威值，全局坐标是为 FULL 视图渲染保持同步的缓存。
// RoomX/RoomY 当且仅当 RoomID 非空时非 nil（见 Drawing.Validate）。
type Marker struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"` // 符号类型标识，如 "outlet", "switch", "downlight"
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	RoomID string  `json:"roomId,omitempty"`
	RoomX  *float64 `json:"roomX,omitempty"`
	RoomY  *float64 `json:"roomY,omitempty"`
	Detail string  `json:"detail,omitempty"` // 自由文本备注
}
