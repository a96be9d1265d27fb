// Package domain 定义了应用程序中使用的数据结构（领域模型与数据库模型）。
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 图纸类型。symbol-capable 的类型允许放置符号标记，
// 纯轮廓类型（layout）只允许划分房间。
const (
	DrawingTypeElectrical = "electrical"
	DrawingTypeLighting   = "lighting"
	DrawingTypePlumbing   = "plumbing"
	DrawingTypeLayout     = "layout"
)

// KnownDrawingType 判断图纸类型是否受支持。
func KnownDrawingType(t string) bool {
	switch t {
	case DrawingTypeElectrical, DrawingTypeLighting, DrawingTypePlumbing, DrawingTypeLayout:
		return true
	}
	return false
}

// SymbolCapable 判断该图纸类型是否允许放置符号标记。
func SymbolCapable(t string) bool {
	switch t {
	case DrawingTypeElectrical, DrawingTypeLighting, DrawingTypePlumbing:
		return true
	}
	return false
}

// DrawingKey 唯一标识一张图纸：负责人（登录用户）、项目、图纸类型。
type DrawingKey struct {
	OwnerID     uint   `json:"ownerId"`
	Project     string `json:"project"`
	DrawingType string `json:"drawingType"`
}

// String 返回 "owner:project:type" 形式的键字符串，用于 Redis key 和日志。
// Project 约定为 URL slug，不包含 ':'（handler 层校验）。
func (k DrawingKey) String() string {
	return fmt.Sprintf("%d:%s:%s", k.OwnerID, k.Project, k.DrawingType)
}

// ParseDrawingKey 解析 String() 生成的键字符串。
func ParseDrawingKey(s string) (DrawingKey, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return DrawingKey{}, fmt.Errorf("malformed drawing key: %q", s)
	}
	owner, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return DrawingKey{}, fmt.Errorf("malformed drawing key owner: %q", s)
	}
	return DrawingKey{OwnerID: uint(owner), Project: parts[1], DrawingType: parts[2]}, nil
}

// ImageRef 是外部图片接入管线产出的图片引用。
// 本子系统将其视为不透明引用，只使用自然像素尺寸做坐标映射。
type ImageRef struct {
	URL           string  `json:"url"`
	NaturalWidth  float64 `json:"naturalWidth"`
	NaturalHeight float64 `json:"naturalHeight"`
}

// Drawing 表示一张打开的标注图纸：图片引用、房间集合、标记集合。
type Drawing struct {
	Key       DrawingKey `json:"key"`
	Image     ImageRef   `json:"image"`
	Rooms     []Room     `json:"rooms"`
	Markers   []Marker   `json:"markers"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FindRoom 按 ID 查找房间，不存在时返回 nil。
func (d *Drawing) FindRoom(id string) *Room {
	for i := range d.Rooms {
		if d.Rooms[i].ID == id {
			return &d.Rooms[i]
		}
	}
	return nil
}

// Validate 检查双坐标表示的不变量：
//  1. marker.RoomID 非空时必须引用存在的房间；
//  2. RoomX/RoomY 当且仅当 RoomID 非空时存在。
func (d *Drawing) Validate() error {
	for i := range d.Markers {
		m := &d.Markers[i]
		if m.RoomID == "" {
			if m.RoomX != nil || m.RoomY != nil {
				return fmt.Errorf("marker %s: room-relative coordinates without room reference", m.ID)
			}
			continue
		}
		if m.RoomX == nil || m.RoomY == nil {
			return fmt.Errorf("marker %s: room reference %s without room-relative coordinates", m.ID, m.RoomID)
		}
		if d.FindRoom(m.RoomID) == nil {
			return fmt.Errorf("marker %s: dangling room reference %s", m.ID, m.RoomID)
		}
	}
	return nil
}

// DrawingRecord 是 Drawing 的持久化记录。
// 房间和标记序列化为 JSON 存储，(owner, project, drawing_type) 上有唯一复合索引。
type DrawingRecord struct {
	ID            uint      `gorm:"primaryKey"`                                                   // 记录唯一标识符 (主键)
	OwnerID       uint      `gorm:"uniqueIndex:idx_drawing_key;not null"`                         // 图纸负责人用户 ID
	Project       string    `gorm:"type:varchar(191);uniqueIndex:idx_drawing_key;not null"`       // 项目 slug
	DrawingType   string    `gorm:"type:varchar(50);uniqueIndex:idx_drawing_key;not null"`        // 图纸类型
	ImageURL      string    `gorm:"type:text"`                                                    // 图片引用 (不透明)
	NaturalWidth  float64   `gorm:"not null"`                                                     // 图片自然像素宽
	NaturalHeight float64   `gorm:"not null"`                                                     // 图片自然像素高
	Rooms         string    `gorm:"type:text;not null"`                                           // 房间集合，JSON
	Markers       string    `gorm:"type:longtext;not null"`                                       // 标记集合，JSON (longtext 以支持大量标记)
	UpdatedAt     time.Time `gorm:"index;not null"`                                               // 最后一次变更时间，由引擎维护
	CreatedAt     time.Time `gorm:"autoCreateTime"`                                               // 记录创建时间 (GORM 自动填充)
}

// ToDrawing 将持久化记录反序列化为领域对象。
func (r *DrawingRecord) ToDrawing() (*Drawing, error) {
	d := &Drawing{
		Key: DrawingKey{OwnerID: r.OwnerID, Project: r.Project, DrawingType: r.DrawingType},
		Image: ImageRef{
			URL:           r.ImageURL,
			NaturalWidth:  r.NaturalWidth,
			NaturalHeight: r.NaturalHeight,
		},
		UpdatedAt: r.UpdatedAt,
	}
	if r.Rooms != "" && r.Rooms != "null" {
		if err := json.Unmarshal([]byte(r.Rooms), &d.Rooms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal drawing rooms: %w", err)
		}
	}
	if r.Markers != "" && r.Markers != "null" {
		if err := json.Unmarshal([]byte(r.Markers), &d.Markers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal drawing markers: %w", err)
		}
	}
	return d, nil
}

// SetDrawing 将领域对象序列化到持久化记录（不含主键）。
func (r *DrawingRecord) SetDrawing(d *Drawing) error {
	roomsJSON, err := json.Marshal(d.Rooms)
	if err != nil {
		return fmt.Errorf("failed to marshal drawing rooms: %w", err)
	}
	markersJSON, err := json.Marshal(d.Markers)
	if err != nil {
		return fmt.Errorf("failed to marshal drawing markers: %w", err)
	}
	r.OwnerID = d.Key.OwnerID
	r.Project = d.Key.Project
	r.DrawingType = d.Key.DrawingType
	r.ImageURL = d.Image.URL
	r.NaturalWidth = d.Image.NaturalWidth
	r.NaturalHeight = d.Image.NaturalHeight
	r.Rooms = string(roomsJSON)
	r.Markers = string(markersJSON)
	r.UpdatedAt = d.UpdatedAt
	return nil
}
