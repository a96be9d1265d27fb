package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/engine"
)

// 测试用房间：占据图像 (20,30) 到 (60,50)
func testRoom() *domain.Room {
	return &domain.Room{ID: "room-1", Name: "厨房", X: 20, Y: 30, Width: 40, Height: 20}
}

func TestMarkerStore_AddGlobalMarker(t *testing.T) {
	store := engine.NewMarkerStore(nil)

	m := store.Add(15, 25, "socket", "", nil)
	require.NotNil(t, m)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "socket", m.Type)
	assert.Empty(t, m.RoomID, "FULL 视图放置的标记不归属任何房间")
	assert.Nil(t, m.RoomX)
	assert.Nil(t, m.RoomY)
}

func TestMarkerStore_AddInRoomComputesRelativeCoords(t *testing.T) {
	store := engine.NewMarkerStore(nil)
	room := testRoom()

	// 全局 (30, 40) 在房间内：roomX = (30-20)/40*100 = 25，roomY = (40-30)/20*100 = 50
	m := store.Add(30, 40, "light", "吸顶灯", room)
	require.NotNil(t, m)
	assert.Equal(t, room.ID, m.RoomID)
	require.NotNil(t, m.RoomX)
	require.NotNil(t, m.RoomY)
	assert.InDelta(t, 25.0, *m.RoomX, 1e-9)
	assert.InDelta(t, 50.0, *m.RoomY, 1e-9)
}

func TestMarkerStore_RoomViewReprojectsFromRelativeCoords(t *testing.T) {
	store := engine.NewMarkerStore(nil)
	room := testRoom()
	m := store.Add(30, 40, "light", "", room)

	// 房间矩形被编辑后，ROOM 视图显示坐标必须从房间相对坐标重投影
	moved := &domain.Room{ID: room.ID, X: 40, Y: 50, Width: 20, Height: 10}
	rendered := store.ListForRender(engine.ScopeRoom, moved)
	require.Len(t, rendered, 1)
	assert.Equal(t, m.ID, rendered[0].ID)
	assert.InDelta(t, 40+25.0*20/100, rendered[0].X, 1e-9, "displayX = room.X + roomX·room.Width/100")
	assert.InDelta(t, 50+50.0*10/100, rendered[0].Y, 1e-9)
}

func TestMarkerStore_RoundTripKeepsPosition(t *testing.T) {
	// 属性：房间矩形不变时，重投影的显示坐标等于放置时的全局坐标
	store := engine.NewMarkerStore(nil)
	room := testRoom()
	store.Add(33.3, 44.4, "socket", "", room)

	rendered := store.ListForRender(engine.ScopeRoom, room)
	require.Len(t, rendered, 1)
	assert.InDelta(t, 33.3, rendered[0].X, 1e-9)
	assert.InDelta(t, 44.4, rendered[0].Y, 1e-9)
}

func TestMarkerStore_MoveInActiveRoomRecomputesRelative(t *testing.T) {
	store := engine.NewMarkerStore(nil)
	room := testRoom()
	m := store.Add(30, 40, "socket", "", room)

	ok := store.Move(m.ID, 40, 35, room)
	require.True(t, ok)
	got := store.Get(m.ID)
	assert.InDelta(t, 50.0, *got.RoomX, 1e-9, "房间放大视图内拖动应重算房间相对坐标")
	assert.InDelta(t, 25.0, *got.RoomY, 1e-9)
	assert.Equal(t, 40.0, got.X)
}

func TestMarkerStore_MoveInFullViewKeepsRelative(t *testing.T) {
	store := engine.NewMarkerStore(nil)
	room := testRoom()
	m := store.Add(30, 40, "socket", "", room)
	origRoomX := *m.RoomX

	// FULL 视图拖动（activeRoom == nil）只更新全局坐标
	ok := store.Move(m.ID, 70, 70, nil)
	require.True(t, ok)
	got := store.Get(m.ID)
	assert.Equal(t, 70.0, got.X)
	assert.Equal(t, origRoomX, *got.RoomX, "FULL 视图拖动不应改动房间相对坐标")
	assert.Equal(t, room.ID, got.RoomID, "归属关系不随拖动改变")
}

func TestMarkerStore_RemoveByRoomCascade(t *testing.T) {
	store := engine.NewMarkerStore(nil)
	room := testRoom()
	store.Add(30, 40, "socket", "", room)
	store.Add(35, 45, "light", "", room)
	outside := store.Add(80, 80, "socket", "", nil)

	removed := store.RemoveByRoom(room.ID)
	assert.Equal(t, 2, removed)

	remaining := store.List()
	require.Len(t, remaining, 1, "级联删除只影响归属该房间的标记")
	assert.Equal(t, outside.ID, remaining[0].ID)
}

func TestMarkerStore_ListForRenderRoomScopeFilters(t *testing.T) {
	store := engine.NewMarkerStore(nil)
	room := testRoom()
	other := &domain.Room{ID: "room-2", X: 70, Y: 70, Width: 20, Height: 20}
	store.Add(30, 40, "socket", "", room)
	store.Add(75, 75, "socket", "", other)
	store.Add(10, 10, "socket", "", nil)

	rendered := store.ListForRender(engine.ScopeRoom, room)
	assert.Len(t, rendered, 1, "ROOM 范围只渲染归属该房间的标记")

	all := store.ListForRender(engine.ScopeAll, nil)
	assert.Len(t, all, 3)
}
