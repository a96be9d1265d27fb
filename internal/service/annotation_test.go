package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/dto"
	"interior-planboard/internal/repository"
	"interior-planboard/internal/repository/mocks"
	"interior-planboard/internal/service"
)

// mockEnqueuer 是 service.TaskEnqueuer 的 Mock。
type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task)
	if info, ok := args.Get(0).(*asynq.TaskInfo); ok {
		return info, args.Error(1)
	}
	return nil, args.Error(1)
}

var testKey = domain.DrawingKey{OwnerID: 1, Project: "riverside-apartment", DrawingType: domain.DrawingTypeElectrical}

// testDrawing 返回一张 200x200 图片的测试图纸。
// 配合 100x100 的容器尺寸使用时宽高比一致，指针像素值即百分比值。
func testDrawing(key domain.DrawingKey) *domain.Drawing {
	return &domain.Drawing{
		Key:       key,
		Image:     domain.ImageRef{URL: "https://cdn.example.com/plans/a.png", NaturalWidth: 200, NaturalHeight: 200},
		UpdatedAt: time.Now().Add(-time.Minute),
	}
}

func pointerCmd(cmdType string, x, y float64) dto.Command {
	return dto.Command{Type: cmdType, X: x, Y: y, ContainerWidth: 100, ContainerHeight: 100}
}

// newOpenedService 构造 AnnotationService 并打开 drawing 的编辑会话。
// 持久化相关 Mock 统一放行。
func newOpenedService(t *testing.T, drawing *domain.Drawing) (*service.AnnotationService, *mocks.DrawingRepository, *mocks.StateRepository, *mockEnqueuer) {
	t.Helper()
	drawingRepo := new(mocks.DrawingRepository)
	stateRepo := new(mocks.StateRepository)
	enqueuer := new(mockEnqueuer)

	stateRepo.On("GetLiveDrawing", mock.Anything, drawing.Key).Return(nil, repository.ErrDrawingNotFound).Once()
	drawingRepo.On("Get", mock.Anything, drawing.Key).Return(drawing, nil).Once()
	stateRepo.On("SetLiveDrawing", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	enqueuer.On("Enqueue", mock.Anything).Return(&asynq.TaskInfo{}, nil).Maybe()

	svc := service.NewAnnotationService(drawingRepo, stateRepo, enqueuer, time.Hour)
	_, err := svc.Open(context.Background(), drawing.Key)
	require.NoError(t, err, "打开测试图纸不应失败")
	return svc, drawingRepo, stateRepo, enqueuer
}

// --- 测试 Open / 读取 ---

func TestAnnotationService_Open_PrefersLiveMirror(t *testing.T) {
	// Arrange: Redis 镜像中存在（可能含未落库编辑），数据库不应被读取
	drawingRepo := new(mocks.DrawingRepository)
	stateRepo := new(mocks.StateRepository)
	enqueuer := new(mockEnqueuer)
	stateRepo.On("GetLiveDrawing", mock.Anything, testKey).Return(testDrawing(testKey), nil).Once()

	svc := service.NewAnnotationService(drawingRepo, stateRepo, enqueuer, time.Hour)

	// Act
	render, err := svc.Open(context.Background(), testKey)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, render)
	assert.Equal(t, "full", render.ViewMode)
	stateRepo.AssertExpectations(t)
	drawingRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestAnnotationService_Open_NotFound(t *testing.T) {
	drawingRepo := new(mocks.DrawingRepository)
	stateRepo := new(mocks.StateRepository)
	stateRepo.On("GetLiveDrawing", mock.Anything, testKey).Return(nil, repository.ErrDrawingNotFound).Once()
	drawingRepo.On("Get", mock.Anything, testKey).Return(nil, repository.ErrDrawingNotFound).Once()

	svc := service.NewAnnotationService(drawingRepo, stateRepo, new(mockEnqueuer), time.Hour)
	_, err := svc.Open(context.Background(), testKey)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrDrawingNotFound))
}

func TestAnnotationService_Open_RejectsBrokenInvariants(t *testing.T) {
	// 存储数据中出现悬空房间引用时拒绝打开会话
	roomX, roomY := 50.0, 50.0
	broken := testDrawing(testKey)
	broken.Markers = []domain.Marker{{ID: "m-1", Type: "socket", X: 10, Y: 10, RoomID: "ghost", RoomX: &roomX, RoomY: &roomY}}

	drawingRepo := new(mocks.DrawingRepository)
	stateRepo := new(mocks.StateRepository)
	stateRepo.On("GetLiveDrawing", mock.Anything, testKey).Return(nil, repository.ErrDrawingNotFound).Once()
	drawingRepo.On("Get", mock.Anything, testKey).Return(broken, nil).Once()

	svc := service.NewAnnotationService(drawingRepo, stateRepo, new(mockEnqueuer), time.Hour)
	_, err := svc.Open(context.Background(), testKey)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInternalServer))
}

// --- 测试 Apply: 指令校验 ---

func TestAnnotationService_Apply_RequiresOpenSession(t *testing.T) {
	svc := service.NewAnnotationService(new(mocks.DrawingRepository), new(mocks.StateRepository), new(mockEnqueuer), time.Hour)

	_, err := svc.Apply(context.Background(), testKey, dto.Command{Type: dto.CmdExitRoom})
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrDrawingNotFound))
}

func TestAnnotationService_Apply_UnknownCommand(t *testing.T) {
	svc, _, _, _ := newOpenedService(t, testDrawing(testKey))

	_, err := svc.Apply(context.Background(), testKey, dto.Command{Type: "fly_to_moon"})
	assert.True(t, errors.Is(err, service.ErrInvalidCommand))
}

func TestAnnotationService_Apply_EnterUnknownRoom(t *testing.T) {
	svc, _, _, _ := newOpenedService(t, testDrawing(testKey))

	_, err := svc.Apply(context.Background(), testKey, dto.Command{Type: dto.CmdEnterRoom, RoomID: "no-such-room"})
	assert.True(t, errors.Is(err, service.ErrInvalidCommand))
}

// --- 测试 Apply: 房间框选手势 ---

func TestAnnotationService_Apply_RoomDrawingFlow(t *testing.T) {
	svc, _, stateRepo, enqueuer := newOpenedService(t, testDrawing(testKey))
	ctx := context.Background()

	// 切到房间模式
	_, err := svc.Apply(ctx, testKey, dto.Command{Type: dto.CmdToggleMode, Mode: "room"})
	require.NoError(t, err)

	// 框选 (10,10) -> (40,40)
	render, err := svc.Apply(ctx, testKey, pointerCmd(dto.CmdPointerDown, 10, 10))
	require.NoError(t, err)
	require.NotNil(t, render.Preview, "框选中应有预览矩形")

	render, err = svc.Apply(ctx, testKey, pointerCmd(dto.CmdPointerMove, 40, 40))
	require.NoError(t, err)
	assert.InDelta(t, 30.0, render.Preview.Width, 1e-9)

	render, err = svc.Apply(ctx, testKey, pointerCmd(dto.CmdPointerUp, 40, 40))
	require.NoError(t, err)
	assert.True(t, render.Naming, "释放后应进入命名状态")
	assert.Empty(t, render.Rooms, "命名确认前房间不存在")

	// 确认命名：房间落地并触发持久化
	render, err = svc.Apply(ctx, testKey, dto.Command{Type: dto.CmdConfirmRoomName, Name: "厨房"})
	require.NoError(t, err)
	assert.False(t, render.Naming)
	require.Len(t, render.Rooms, 1)
	assert.Equal(t, "厨房", render.Rooms[0].Name)
	assert.InDelta(t, 10.0, render.Rooms[0].X, 1e-9)
	assert.InDelta(t, 30.0, render.Rooms[0].Width, 1e-9)
	assert.Nil(t, render.Preview)

	stateRepo.AssertCalled(t, "SetLiveDrawing", mock.Anything, mock.Anything, mock.Anything)
	enqueuer.AssertCalled(t, "Enqueue", mock.Anything)
}

func TestAnnotationService_Apply_CancelNamingDiscardsRoom(t *testing.T) {
	svc, _, stateRepo, _ := newOpenedService(t, testDrawing(testKey))
	ctx := context.Background()

	_, _ = svc.Apply(ctx, testKey, dto.Command{Type: dto.CmdToggleMode, Mode: "room"})
	_, _ = svc.Apply(ctx, testKey, pointerCmd(dto.CmdPointerDown, 10, 10))
	_, _ = svc.Apply(ctx, testKey, pointerCmd(dto.CmdPointerUp, 40, 40))

	render, err := svc.Apply(ctx, testKey, dto.Command{Type: dto.CmdCancelRoomName})
	require.NoError(t, err)
	assert.Empty(t, render.Rooms, "取消命名后矩形应被丢弃")
	assert.Nil(t, render.Preview)
	stateRepo.AssertNotCalled(t, "SetLiveDrawing", mock.Anything, mock.Anything, mock.Anything)
}

// --- 测试 Apply: 标记手势 ---

func TestAnnotationService_Apply_MarkerPlacement(t *testing.T) {
	svc, _, stateRepo, _ := newOpenedService(t, testDrawing(testKey))
	ctx := context.Background()

	// 先选择符号类型
	_, err := svc.Apply(ctx, testKey, dto.Command{Type: dto.CmdSelectSymbol, Symbol: "socket"})
	require.NoError(t, err)

	render, err := svc.Apply(ctx, testKey, pointerCmd(dto.CmdPointerDown, 25, 75))
	require.NoError(t, err)
	require.Len(t, render.Markers, 1)
	assert.Equal(t, "socket", render.Markers[0].Type)
	assert.InDelta(t, 25.0, render.Markers[0].X, 1e-9)
	assert.InDelta(t, 75.0, render.Markers[0].Y, 1e-9)
	assert.Equal(t, map[string]int{"socket": 1}, render.Counts)

	stateRepo.AssertCalled(t, "SetLiveDrawing", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnnotationService_Apply_MarkerWithoutSymbolSelected(t *testing.T) {
	svc, _, stateRepo, _ := newOpenedService(t, testDrawing(testKey))

	// 未选择符号类型时的画布点击不放置标记
	render, err := svc.Apply(context.Background(), testKey, pointerCmd(dto.CmdPointerDown, 25, 75))
	require.NoError(t, err)
	assert.Empty(t, render.Markers)
	stateRepo.AssertNotCalled(t, "SetLiveDrawing", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnnotationService_Apply_LayoutDrawingRejectsMarkers(t *testing.T) {
	layoutKey := domain.DrawingKey{OwnerID: 1, Project: "riverside-apartment", DrawingType: domain.DrawingTypeLayout}
	svc, _, _, _ := newOpenedService(t, testDrawing(layoutKey))
	ctx := context.Background()

	_, _ = svc.Apply(ctx, layoutKey, dto.Command{Type: dto.CmdSelectSymbol, Symbol: "socket"})
	render, err := svc.Apply(ctx, layoutKey, pointerCmd(dto.CmdPointerDown, 25, 75))

	require.NoError(t, err)
	assert.Empty(t, render.Markers, "布局图是纯轮廓图纸，不允许放置符号")
}

func TestAnnotationService_Apply_LetterboxClickIgnored(t *testing.T) {
	// 图片 400x200 在 100x100 容器内显示为 100x50，上下各 25px letterbox
	wide := testDrawing(testKey)
	wide.Image.NaturalWidth = 400
	wide.Image.NaturalHeight = 200
	svc, _, _, _ := newOpenedService(t, wide)
	ctx := context.Background()

	_, _ = svc.Apply(ctx, testKey, dto.Command{Type: dto.CmdSelectSymbol, Symbol: "socket"})
	render, err := svc.Apply(ctx, testKey, pointerCmd(dto.CmdPointerDown, 50, 10))

	require.NoError(t, err, "letterbox 边缘点击是合法事件，只是没有效果")
	assert.Empty(t, render.Markers)
}

// --- 测试 Apply: 房间视图与级联删除 ---

func TestAnnotationService_Apply_RoomZoomAndCascadingDelete(t *testing.T) {
	// Arrange: 图纸预置一个房间、一个房间内标记、一个全局标记
	roomX, roomY := 50.0, 50.0
	d := testDrawing(testKey)
	d.Rooms = []domain.Room{{ID: "room-1", Name: "厨房", X: 20, Y: 30, Width: 40, Height: 20}}
	d.Markers = []domain.Marker{
		{ID: "m-in", Type: "socket", X: 40, Y: 40, RoomID: "room-1", RoomX: &roomX, RoomY: &roomY},
		{ID: "m-out", Type: "socket", X: 80, Y: 80},
	}
	svc, _, stateRepo, _ := newOpenedService(t, d)
	ctx := context.Background()

	// 进入房间放大视图
	render, err := svc.Apply(ctx, testKey, dto.Command{Type: dto.CmdEnterRoom, RoomID: "room-1"})
	require.NoError(t, err)
	assert.Equal(t, "room", render.ViewMode)
	assert.Equal(t, "room-1", render.ActiveRoomID)
	require.NotNil(t, render.Transform)
	assert.InDelta(t, 5.0, render.Transform.Scale, 1e-9, "40x20 的房间缩放应为 max(100/40, 100/20)")
	require.Len(t, render.Markers, 1, "ROOM 视图只渲染该房间的标记")
	assert.Equal(t, "m-in", render.Markers[0].ID)
	assert.Equal(t, map[string]int{"socket": 1}, render.Counts, "ROOM 视图统计限定到活动房间")

	// 删除活动房间：级联删除标记并退回 FULL 视图
	render, err = svc.Apply(ctx, testKey, dto.Command{Type: dto.CmdDeleteRoom, RoomID: "room-1"})
	require.NoError(t, err)
	assert.Equal(t, "full", render.ViewMode)
	assert.Empty(t, render.ActiveRoomID)
	assert.Empty(t, render.Rooms)
	require.Len(t, render.Markers, 1, "级联删除不影响全局标记")
	assert.Equal(t, "m-out", render.Markers[0].ID)

	stateRepo.AssertCalled(t, "SetLiveDrawing", mock.Anything, mock.Anything, mock.Anything)
}

// --- 测试 fire-and-forget 持久化 ---

func TestAnnotationService_Apply_PersistFailureDoesNotBlockEditing(t *testing.T) {
	drawing := testDrawing(testKey)
	drawingRepo := new(mocks.DrawingRepository)
	stateRepo := new(mocks.StateRepository)
	enqueuer := new(mockEnqueuer)

	stateRepo.On("GetLiveDrawing", mock.Anything, testKey).Return(nil, repository.ErrDrawingNotFound).Once()
	drawingRepo.On("Get", mock.Anything, testKey).Return(drawing, nil).Once()
	// 镜像写入和任务入队都失败
	stateRepo.On("SetLiveDrawing", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	enqueuer.On("Enqueue", mock.Anything).Return(nil, errors.New("queue down"))

	svc := service.NewAnnotationService(drawingRepo, stateRepo, enqueuer, time.Hour)
	ctx := context.Background()
	_, err := svc.Open(ctx, testKey)
	require.NoError(t, err)

	_, _ = svc.Apply(ctx, testKey, dto.Command{Type: dto.CmdSelectSymbol, Symbol: "socket"})
	render, err := svc.Apply(ctx, testKey, pointerCmd(dto.CmdPointerDown, 25, 75))

	// 持久化失败只记日志，编辑状态照常前进
	require.NoError(t, err, "持久化失败不应阻塞编辑")
	assert.Len(t, render.Markers, 1)
}

// --- 测试 CreateDrawing / Close ---

func TestAnnotationService_CreateDrawing_Validation(t *testing.T) {
	svc := service.NewAnnotationService(new(mocks.DrawingRepository), new(mocks.StateRepository), new(mockEnqueuer), time.Hour)
	ctx := context.Background()

	badType := domain.DrawingKey{OwnerID: 1, Project: "p", DrawingType: "hvac"}
	_, err := svc.CreateDrawing(ctx, badType, domain.ImageRef{NaturalWidth: 100, NaturalHeight: 100})
	assert.True(t, errors.Is(err, service.ErrInvalidDrawingType))

	_, err = svc.CreateDrawing(ctx, testKey, domain.ImageRef{URL: "x"})
	assert.True(t, errors.Is(err, service.ErrInvalidCommand), "缺少自然尺寸的图片引用应被拒绝")
}

func TestAnnotationService_CreateDrawing_ReplaceKeepsAnnotations(t *testing.T) {
	// 重新上传图片替换 ImageRef，既有房间和标记保留
	existing := testDrawing(testKey)
	existing.Rooms = []domain.Room{{ID: "room-1", Name: "厨房", X: 10, Y: 10, Width: 20, Height: 20}}

	drawingRepo := new(mocks.DrawingRepository)
	drawingRepo.On("Get", mock.Anything, testKey).Return(existing, nil).Once()
	drawingRepo.On("Set", mock.Anything, mock.MatchedBy(func(d *domain.Drawing) bool {
		return d.Image.URL == "https://cdn.example.com/plans/b.png" && len(d.Rooms) == 1
	})).Return(nil).Once()

	svc := service.NewAnnotationService(drawingRepo, new(mocks.StateRepository), new(mockEnqueuer), time.Hour)
	d, err := svc.CreateDrawing(context.Background(), testKey, domain.ImageRef{
		URL: "https://cdn.example.com/plans/b.png", NaturalWidth: 300, NaturalHeight: 400,
	})

	require.NoError(t, err)
	assert.Len(t, d.Rooms, 1, "替换图片应保留既有标注")
	drawingRepo.AssertExpectations(t)
}

func TestAnnotationService_Close_PersistsAndClearsMirror(t *testing.T) {
	svc, drawingRepo, stateRepo, _ := newOpenedService(t, testDrawing(testKey))
	drawingRepo.On("Set", mock.Anything, mock.Anything).Return(nil).Once()
	stateRepo.On("RemoveLiveDrawing", mock.Anything, testKey).Return(nil).Once()

	svc.Close(context.Background(), testKey)

	drawingRepo.AssertExpectations(t)
	stateRepo.AssertExpectations(t)

	// 会话已关闭，再 Apply 应要求重新 Open
	_, err := svc.Apply(context.Background(), testKey, dto.Command{Type: dto.CmdExitRoom})
	assert.True(t, errors.Is(err, service.ErrDrawingNotFound))
}
