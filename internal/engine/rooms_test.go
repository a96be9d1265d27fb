package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interior-planboard/internal/engine"
	"interior-planboard/internal/geometry"
)

func TestRoomRegistry_AddAssignsUniqueIDs(t *testing.T) {
	reg := engine.NewRoomRegistry(nil)

	r1, ok := reg.Add(geometry.Rect{X: 10, Y: 10, Width: 20, Height: 20}, "厨房")
	require.True(t, ok)
	r2, ok := reg.Add(geometry.Rect{X: 40, Y: 10, Width: 20, Height: 20}, "客厅")
	require.True(t, ok)

	assert.NotEmpty(t, r1.ID)
	assert.NotEmpty(t, r2.ID)
	assert.NotEqual(t, r1.ID, r2.ID, "房间 ID 必须唯一")
	assert.Equal(t, "厨房", r1.Name)
}

func TestRoomRegistry_RejectsTinyRect(t *testing.T) {
	reg := engine.NewRoomRegistry(nil)

	// 任一边长低于最小阈值的矩形是误触，应拒绝且无副作用
	_, ok := reg.Add(geometry.Rect{X: 10, Y: 10, Width: 1.5, Height: 20}, "")
	assert.False(t, ok)
	_, ok = reg.Add(geometry.Rect{X: 10, Y: 10, Width: 20, Height: 1.9}, "")
	assert.False(t, ok)
	assert.Empty(t, reg.List(), "被拒绝的矩形不应进入注册表")
}

func TestRoomRegistry_ClampsToImageBounds(t *testing.T) {
	reg := engine.NewRoomRegistry(nil)

	// 超出图像右边界的矩形按可见部分保留
	room, ok := reg.Add(geometry.Rect{X: 90, Y: 10, Width: 30, Height: 20}, "阳台")
	require.True(t, ok)
	assert.Equal(t, 90.0, room.X)
	assert.Equal(t, 10.0, room.Width)

	// 裁剪后可见部分过小则拒绝
	_, ok = reg.Add(geometry.Rect{X: 99, Y: 10, Width: 30, Height: 20}, "")
	assert.False(t, ok, "裁剪后边长低于阈值的矩形应被拒绝")
}

func TestRoomRegistry_ListKeepsInsertionOrder(t *testing.T) {
	reg := engine.NewRoomRegistry(nil)
	names := []string{"玄关", "走廊", "主卧"}
	for _, n := range names {
		_, ok := reg.Add(geometry.Rect{X: 10, Y: 10, Width: 20, Height: 20}, n)
		require.True(t, ok)
	}

	list := reg.List()
	require.Len(t, list, 3)
	for i, n := range names {
		assert.Equal(t, n, list[i].Name, "List 必须保持创建顺序")
	}
}

func TestRoomRegistry_Remove(t *testing.T) {
	reg := engine.NewRoomRegistry(nil)
	room, _ := reg.Add(geometry.Rect{X: 10, Y: 10, Width: 20, Height: 20}, "书房")

	removed, ok := reg.Remove(room.ID)
	require.True(t, ok)
	assert.Equal(t, room.ID, removed.ID)
	assert.Nil(t, reg.Get(room.ID))

	_, ok = reg.Remove("no-such-room")
	assert.False(t, ok)
}
