package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/dto"
	"interior-planboard/internal/engine"
	"interior-planboard/internal/geometry"
	"interior-planboard/internal/repository"
	"interior-planboard/internal/session"
	"interior-planboard/internal/tasks"
)

// TaskEnqueuer 抽象 asynq.Client 的入队操作，便于在测试中替换。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AnnotationService 负责图纸标注的业务逻辑：
// 维护每张打开图纸的内存编辑状态（权威），把客户端指令送入手势状态机，
// 将副作用落到 RoomRegistry/MarkerStore，并在每次变更后做 fire-and-forget 持久化
// （Redis 实时镜像 + asynq 落库任务）。持久化失败只记日志，不回滚内存状态。
type AnnotationService struct {
	drawingRepo repository.DrawingRepository
	stateRepo   repository.StateRepository
	enqueuer    TaskEnqueuer
	liveTTL     time.Duration

	mu     sync.Mutex
	boards map[domain.DrawingKey]*board
}

// NewAnnotationService 创建 AnnotationService 实例。
func NewAnnotationService(drawingRepo repository.DrawingRepository, stateRepo repository.StateRepository, enqueuer TaskEnqueuer, liveTTL time.Duration) *AnnotationService {
	if drawingRepo == nil {
		panic("DrawingRepository cannot be nil for AnnotationService")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for AnnotationService")
	}
	if enqueuer == nil {
		panic("TaskEnqueuer cannot be nil for AnnotationService")
	}
	if liveTTL <= 0 {
		liveTTL = 24 * time.Hour
	}
	return &AnnotationService{
		drawingRepo: drawingRepo,
		stateRepo:   stateRepo,
		enqueuer:    enqueuer,
		liveTTL:     liveTTL,
		boards:      make(map[domain.DrawingKey]*board),
	}
}

// board 是一张打开图纸的内存编辑状态。
// 单张图纸同一时间只有一个编辑者；board 自己的互斥锁把指令串行化，
// 每条指令在一次锁持有期内完成，没有跨指令的挂起操作。
type board struct {
	mu sync.Mutex

	key   domain.DrawingKey
	image domain.ImageRef

	rooms    *engine.RoomRegistry
	markers  *engine.MarkerStore
	viewport *engine.Viewport

	state    session.State
	workMode session.WorkMode
	symbol   string
	preview  *geometry.Rect

	updatedAt time.Time
}

func newBoard(d *domain.Drawing) *board {
	return &board{
		key:       d.Key,
		image:     d.Image,
		rooms:     engine.NewRoomRegistry(d.Rooms),
		markers:   engine.NewMarkerStore(d.Markers),
		viewport:  engine.NewViewport(),
		state:     session.NewState(),
		workMode:  session.ModeMarker,
		updatedAt: d.UpdatedAt,
	}
}

// snapshot 导出当前状态为 Drawing（持久化和渲染以外的读取都用它）。
func (b *board) snapshot() *domain.Drawing {
	return &domain.Drawing{
		Key:       b.key,
		Image:     b.image,
		Rooms:     b.rooms.List(),
		Markers:   b.markers.List(),
		UpdatedAt: b.updatedAt,
	}
}

// activeRoom 返回 ROOM 视图下的活动房间，FULL 视图下返回 nil。
func (b *board) activeRoom() *domain.Room {
	if b.viewport.Mode() != engine.ViewRoom {
		return nil
	}
	return b.rooms.Get(b.viewport.ActiveRoomID())
}

// CreateDrawing 处理图片接入：为 (owner, project, drawingType) 创建图纸，
// 已存在时替换图片引用并保留既有房间和标记（百分比坐标不依赖像素尺寸）。
func (s *AnnotationService) CreateDrawing(ctx context.Context, key domain.DrawingKey, image domain.ImageRef) (*domain.Drawing, error) {
	logCtx := logrus.WithField("drawing", key.String())

	if !domain.KnownDrawingType(key.DrawingType) {
		return nil, ErrInvalidDrawingType
	}
	if image.NaturalWidth <= 0 || image.NaturalHeight <= 0 {
		logCtx.Warn("CreateDrawing: image reference without natural dimensions")
		return nil, ErrInvalidCommand
	}

	d, err := s.drawingRepo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrDrawingNotFound) {
			logCtx.WithError(err).Error("CreateDrawing: repository error")
			return nil, ErrInternalServer
		}
		d = &domain.Drawing{Key: key}
	}
	d.Image = image
	d.UpdatedAt = time.Now()

	if err := s.drawingRepo.Set(ctx, d); err != nil {
		logCtx.WithError(err).Error("CreateDrawing: failed to save drawing")
		return nil, ErrInternalServer
	}

	// 打开中的旧会话基于被替换的图片，直接废弃
	s.evictBoard(key)
	logCtx.Info("Drawing created from image intake")
	return d, nil
}

// GetDrawing 读取图纸：打开中的编辑状态优先，其次 Redis 镜像，最后数据库。
func (s *AnnotationService) GetDrawing(ctx context.Context, key domain.DrawingKey) (*domain.Drawing, error) {
	if b := s.boardFor(key); b != nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.snapshot(), nil
	}
	return s.loadDrawing(ctx, key)
}

// Counts 返回按符号类型的标记数量；roomID 非空时限定该房间。
func (s *AnnotationService) Counts(ctx context.Context, key domain.DrawingKey, roomID string) (map[string]int, error) {
	d, err := s.GetDrawing(ctx, key)
	if err != nil {
		return nil, err
	}
	return engine.CountAll(d.Markers, roomID), nil
}

// DeleteDrawing 删除图纸：关闭会话、清掉镜像、删库。
func (s *AnnotationService) DeleteDrawing(ctx context.Context, key domain.DrawingKey) error {
	logCtx := logrus.WithField("drawing", key.String())
	s.evictBoard(key)

	if err := s.stateRepo.RemoveLiveDrawing(ctx, key); err != nil {
		// 镜像带 TTL，清理失败可以容忍
		logCtx.WithError(err).Warn("DeleteDrawing: failed to remove live mirror")
	}
	if err := s.drawingRepo.Remove(ctx, key); err != nil {
		if errors.Is(err, repository.ErrDrawingNotFound) {
			return ErrDrawingNotFound
		}
		logCtx.WithError(err).Error("DeleteDrawing: repository error")
		return ErrInternalServer
	}
	logCtx.Info("Drawing deleted")
	return nil
}

// ClearAll 删除某个 owner 的全部图纸，返回删除数量。
func (s *AnnotationService) ClearAll(ctx context.Context, ownerID uint) (int64, error) {
	logCtx := logrus.WithField("owner_id", ownerID)

	s.mu.Lock()
	for key := range s.boards {
		if key.OwnerID == ownerID {
			delete(s.boards, key)
		}
	}
	s.mu.Unlock()

	n, err := s.drawingRepo.ClearAll(ctx, ownerID)
	if err != nil {
		logCtx.WithError(err).Error("ClearAll: repository error")
		return 0, ErrInternalServer
	}
	logCtx.WithField("deleted", n).Info("Drawings cleared")
	return n, nil
}

// Open 打开一张图纸的编辑会话并返回初始渲染模型。
// 恢复顺序：Redis 实时镜像（可能含未落库编辑）优先于数据库行。
func (s *AnnotationService) Open(ctx context.Context, key domain.DrawingKey) (*dto.RenderModel, error) {
	s.mu.Lock()
	if b, ok := s.boards[key]; ok {
		s.mu.Unlock()
		b.mu.Lock()
		defer b.mu.Unlock()
		return s.renderModel(b), nil
	}
	s.mu.Unlock()

	d, err := s.loadDrawing(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		// 不变量破损的数据不允许进入编辑会话
		logrus.WithField("drawing", key.String()).WithError(err).Error("Open: stored drawing violates marker invariants")
		return nil, ErrInternalServer
	}

	b := newBoard(d)
	s.mu.Lock()
	if existing, ok := s.boards[key]; ok {
		// 并发 Open 竞争时保留先注册的会话
		b = existing
	} else {
		s.boards[key] = b
	}
	s.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	logrus.WithField("drawing", key.String()).Info("Annotation session opened")
	return s.renderModel(b), nil
}

// Close 结束编辑会话：同步做最后一次落库，成功后清掉镜像。
func (s *AnnotationService) Close(ctx context.Context, key domain.DrawingKey) {
	logCtx := logrus.WithField("drawing", key.String())

	s.mu.Lock()
	b, ok := s.boards[key]
	if ok {
		delete(s.boards, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	b.mu.Lock()
	d := b.snapshot()
	b.mu.Unlock()

	if err := s.drawingRepo.Set(ctx, d); err != nil {
		logCtx.WithError(err).Warn("Close: final persist failed, live mirror kept for sweep")
		return
	}
	if err := s.stateRepo.RemoveLiveDrawing(ctx, key); err != nil {
		logCtx.WithError(err).Warn("Close: failed to remove live mirror")
	}
	logCtx.Info("Annotation session closed")
}

// Apply 处理一条客户端指令并返回更新后的渲染模型。
// 指令要求图纸已经 Open；每条指令在一次事件处理回合内同步完成。
func (s *AnnotationService) Apply(ctx context.Context, key domain.DrawingKey, cmd dto.Command) (*dto.RenderModel, error) {
	b := s.boardFor(key)
	if b == nil {
		return nil, ErrDrawingNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	mutated := false
	switch cmd.Type {
	case dto.CmdSelectSymbol:
		if cmd.Symbol == "" {
			return nil, ErrInvalidCommand
		}
		b.symbol = cmd.Symbol

	case dto.CmdToggleMode:
		switch cmd.Mode {
		case string(session.ModeMarker):
			b.workMode = session.ModeMarker
		case string(session.ModeRoom):
			b.workMode = session.ModeRoom
		default:
			return nil, ErrInvalidCommand
		}

	case dto.CmdEnterRoom:
		if b.rooms.Get(cmd.RoomID) == nil {
			return nil, ErrInvalidCommand
		}
		b.viewport.EnterRoom(cmd.RoomID)

	case dto.CmdExitRoom:
		b.viewport.ExitToFull()

	case dto.CmdDeleteRoom:
		mutated = s.deleteRoom(b, cmd.RoomID)

	case dto.CmdDeleteMarker:
		mutated = b.markers.Remove(cmd.MarkerID)

	case dto.CmdPointerDown, dto.CmdPointerMove, dto.CmdPointerUp,
		dto.CmdConfirmRoomName, dto.CmdCancelRoomName:
		ev, ok := eventFromCommand(b, cmd)
		if !ok {
			return nil, ErrInvalidCommand
		}
		env := session.Env{
			Mode:          b.workMode,
			SymbolCapable: domain.SymbolCapable(key.DrawingType),
		}
		next, effects := session.Transition(b.state, ev, env)
		b.state = next
		mutated = s.applyEffects(b, effects, cmd.Detail)

	default:
		return nil, ErrInvalidCommand
	}

	if mutated {
		b.updatedAt = time.Now()
		s.persist(ctx, b.snapshot())
	}
	return s.renderModel(b), nil
}

// deleteRoom 删除房间并级联：删除归属标记；活动视口指向该房间时退回 FULL。
func (s *AnnotationService) deleteRoom(b *board, roomID string) bool {
	room, ok := b.rooms.Remove(roomID)
	if !ok {
		return false
	}
	removed := b.markers.RemoveByRoom(roomID)
	if b.viewport.ActiveRoomID() == roomID {
		b.viewport.ExitToFull()
	}
	logrus.WithFields(logrus.Fields{
		"drawing":         b.key.String(),
		"room_id":         room.ID,
		"markers_removed": removed,
	}).Info("Room deleted with cascading markers")
	return true
}

// eventFromCommand 把客户端指令翻译成状态机事件。
// 指针类指令在这里统一经过 geometry.MapToPercent —— 这是整个子系统里
// 唯一一处指针到百分比的换算。
func eventFromCommand(b *board, cmd dto.Command) (session.Event, bool) {
	switch cmd.Type {
	case dto.CmdPointerDown, dto.CmdPointerMove, dto.CmdPointerUp:
		pt, mapped := geometry.MapToPercent(
			geometry.Point{X: cmd.X, Y: cmd.Y},
			geometry.Size{Width: cmd.ContainerWidth, Height: cmd.ContainerHeight},
			geometry.Size{Width: b.image.NaturalWidth, Height: b.image.NaturalHeight},
		)
		kind := session.PointerDown
		switch cmd.Type {
		case dto.CmdPointerMove:
			kind = session.PointerMove
		case dto.CmdPointerUp:
			kind = session.PointerUp
		}
		return session.Event{Kind: kind, Point: pt, Mapped: mapped, HitMarkerID: cmd.MarkerID}, true

	case dto.CmdConfirmRoomName:
		if cmd.Name == "" {
			return session.Event{}, false
		}
		return session.Event{Kind: session.ConfirmName, Name: cmd.Name}, true

	case dto.CmdCancelRoomName:
		return session.Event{Kind: session.CancelName}, true
	}
	return session.Event{}, false
}

// applyEffects 把状态机产出的副作用落到引擎组件，返回是否发生了持久化变更。
func (s *AnnotationService) applyEffects(b *board, effects []session.Effect, detail string) bool {
	mutated := false
	for _, e := range effects {
		switch e.Kind {
		case session.EffectAddMarker:
			if b.symbol == "" {
				// 尚未选择符号类型时的画布点击不放置标记
				continue
			}
			b.markers.Add(e.Point.X, e.Point.Y, b.symbol, detail, b.activeRoom())
			mutated = true

		case session.EffectMoveMarker:
			if b.markers.Move(e.MarkerID, e.Point.X, e.Point.Y, b.activeRoom()) {
				mutated = true
			}

		case session.EffectAddRoom:
			if _, ok := b.rooms.Add(e.Rect, e.Name); ok {
				mutated = true
			}

		case session.EffectPreview:
			rect := e.Rect
			b.preview = &rect

		case session.EffectClearPreview:
			b.preview = nil
		}
	}
	return mutated
}

// persist 做一次 fire-and-forget 持久化：刷新 Redis 镜像、入队落库任务。
// 任一失败只记 Warn，内存状态不回滚；
// sweep 任务随后会用镜像补偿丢失的落库写入。
func (s *AnnotationService) persist(ctx context.Context, d *domain.Drawing) {
	logCtx := logrus.WithField("drawing", d.Key.String())

	if err := s.stateRepo.SetLiveDrawing(ctx, d, s.liveTTL); err != nil {
		logCtx.WithError(err).Warn("Persist: live mirror write failed, session continues with unsynced edits")
	}

	payload, err := tasks.NewDrawingPersistenceTask(*d)
	if err != nil {
		logCtx.WithError(err).Error("Persist: failed to encode persistence task")
		return
	}
	if _, err := s.enqueuer.Enqueue(asynq.NewTask(tasks.TypeDrawingPersistence, payload)); err != nil {
		logCtx.WithError(err).Warn("Persist: failed to enqueue persistence task, session continues with unsynced edits")
	}
}

// loadDrawing 按恢复顺序读取图纸：Redis 镜像优先，数据库兜底。
func (s *AnnotationService) loadDrawing(ctx context.Context, key domain.DrawingKey) (*domain.Drawing, error) {
	d, err := s.stateRepo.GetLiveDrawing(ctx, key)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, repository.ErrDrawingNotFound) {
		logrus.WithField("drawing", key.String()).WithError(err).Warn("loadDrawing: live mirror unavailable, falling back to database")
	}

	d, err = s.drawingRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrDrawingNotFound) {
			return nil, ErrDrawingNotFound
		}
		logrus.WithField("drawing", key.String()).WithError(err).Error("loadDrawing: repository error")
		return nil, ErrInternalServer
	}
	return d, nil
}

func (s *AnnotationService) boardFor(key domain.DrawingKey) *board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boards[key]
}

func (s *AnnotationService) evictBoard(key domain.DrawingKey) {
	s.mu.Lock()
	delete(s.boards, key)
	s.mu.Unlock()
}

// renderModel 构建发给客户端的渲染模型。调用方必须持有 b.mu。
func (s *AnnotationService) renderModel(b *board) *dto.RenderModel {
	activeRoom := b.activeRoom()

	var markers []engine.RenderMarker
	var counts map[string]int
	if activeRoom != nil {
		markers = b.markers.ListForRender(engine.ScopeRoom, activeRoom)
		counts = engine.CountAll(b.markers.List(), activeRoom.ID)
	} else {
		markers = b.markers.ListForRender(engine.ScopeAll, nil)
		counts = engine.CountAll(b.markers.List(), "")
	}

	rooms := b.rooms.List()
	roomViews := make([]dto.RoomView, 0, len(rooms))
	for _, r := range rooms {
		roomViews = append(roomViews, dto.RoomView{
			ID: r.ID, Name: r.Name,
			X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
		})
	}

	return &dto.RenderModel{
		Type:         "render",
		ViewMode:     string(b.viewport.Mode()),
		ActiveRoomID: b.viewport.ActiveRoomID(),
		Transform:    b.viewport.Transform(activeRoom),
		WorkMode:     string(b.workMode),
		Symbol:       b.symbol,
		Rooms:        roomViews,
		Markers:      markers,
		Preview:      b.preview,
		Naming:       b.state.Kind == session.NamingRoom,
		Counts:       counts,
	}
}
