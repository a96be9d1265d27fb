// Package hub 管理打开中图纸的 WebSocket 会话。
// 每张图纸同一时间只有一个编辑者，后续连接以只读观看者身份加入；
// 编辑指令在 Hub 主循环内按到达顺序同步处理，保证手势事件不乱序。
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/dto"
	"interior-planboard/internal/service"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type    string // "register", "unregister", "command"
	Key     domain.DrawingKey
	UserID  uint
	Client  *Client
	RawData []byte // 仅用于 command (原始 WebSocket 消息)
}

// drawingSession 是一张打开图纸上的客户端集合。
type drawingSession struct {
	editor  *Client
	viewers []*Client
}

func (s *drawingSession) clients() []*Client {
	all := make([]*Client, 0, len(s.viewers)+1)
	if s.editor != nil {
		all = append(all, s.editor)
	}
	return append(all, s.viewers...)
}

// Hub 维护活跃客户端集合并协调指令处理
type Hub struct {
	messageChan chan HubMessage

	sessions   map[domain.DrawingKey]*drawingSession
	sessionsMu sync.RWMutex

	annotationService *service.AnnotationService
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(annotationService *service.AnnotationService) *Hub {
	if annotationService == nil {
		panic("AnnotationService cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		sessions:    make(map[domain.DrawingKey]*drawingSession),

		annotationService: annotationService,
	}
}

// QueueMessage 非阻塞地向 Hub 投递消息。通道满时返回 false。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		return false
	}
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "command":
			// 指令同步处理：一张图纸上的手势事件必须保持到达顺序
			h.handleClientCommand(msg)
		default:
			log.Warnf("Hub: Received unknown message type: %s from user %d", msg.Type, msg.UserID)
		}
	}
	log.Info("Hub is shutting down...")
}

// registerClient 把客户端接入对应图纸的会话。
// 第一个连接成为编辑者，之后的连接一律只读。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	key := client.Key()
	logCtx := logrus.WithFields(logrus.Fields{
		"drawing": key.String(),
		"user_id": client.UserID(),
		"action":  "registerClient",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	render, err := h.annotationService.Open(ctx, key)
	cancel()
	if err != nil {
		logCtx.WithError(err).Warn("Hub: Failed to open annotation session")
		h.sendJSON(client, dto.ErrorDTO{Type: "error", Message: "failed to open drawing"})
		client.CloseConn()
		return
	}

	role := "viewer"
	h.sessionsMu.Lock()
	sess, ok := h.sessions[key]
	if !ok {
		sess = &drawingSession{}
		h.sessions[key] = sess
	}
	if sess.editor == nil {
		sess.editor = client
		role = "editor"
	} else {
		sess.viewers = append(sess.viewers, client)
	}
	h.sessionsMu.Unlock()

	logCtx.WithField("role", role).Info("Client registered to Hub")
	h.sendJSON(client, dto.RoleDTO{Type: "role", Role: role})
	h.sendJSON(client, render)
}

// unregisterClient 把客户端移出会话。
// 编辑者离开时优先提升最早的观看者，没有观看者则关闭编辑会话。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	key := client.Key()
	logCtx := logrus.WithFields(logrus.Fields{
		"drawing": key.String(),
		"user_id": client.UserID(),
		"action":  "unregisterClient",
	})

	h.sessionsMu.Lock()
	sess, ok := h.sessions[key]
	if !ok {
		h.sessionsMu.Unlock()
		return
	}

	var promoted *Client
	closeSession := false
	if sess.editor == client {
		if len(sess.viewers) > 0 {
			promoted = sess.viewers[0]
			sess.viewers = sess.viewers[1:]
			sess.editor = promoted
		} else {
			sess.editor = nil
			delete(h.sessions, key)
			closeSession = true
		}
	} else {
		for i, v := range sess.viewers {
			if v == client {
				sess.viewers = append(sess.viewers[:i], sess.viewers[i+1:]...)
				break
			}
		}
		if sess.editor == nil && len(sess.viewers) == 0 {
			delete(h.sessions, key)
			closeSession = true
		}
	}
	h.sessionsMu.Unlock()

	client.CloseSend()
	logCtx.Info("Client unregistered from Hub")

	if promoted != nil {
		logCtx.WithField("promoted_user", promoted.UserID()).Info("Viewer promoted to editor")
		h.sendJSON(promoted, dto.RoleDTO{Type: "role", Role: "editor"})
	}
	if closeSession {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		h.annotationService.Close(ctx, key)
		cancel()
	}
}

// handleClientCommand 处理一条编辑指令并把渲染模型广播给该图纸的所有客户端。
func (h *Hub) handleClientCommand(msg HubMessage) {
	logCtx := logrus.WithFields(logrus.Fields{
		"drawing": msg.Key.String(),
		"user_id": msg.UserID,
	})

	h.sessionsMu.RLock()
	sess, ok := h.sessions[msg.Key]
	var isEditor bool
	if ok {
		isEditor = sess.editor == msg.Client
	}
	h.sessionsMu.RUnlock()
	if !ok {
		logCtx.Warn("Hub: Command for drawing without session")
		return
	}
	if !isEditor {
		h.sendJSON(msg.Client, dto.ErrorDTO{Type: "error", Message: "read-only session: another editor is active"})
		return
	}

	var cmd dto.Command
	if err := json.Unmarshal(msg.RawData, &cmd); err != nil {
		logCtx.WithError(err).Warn("Hub: Malformed command payload")
		h.sendJSON(msg.Client, dto.ErrorDTO{Type: "error", Message: "malformed command"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	render, err := h.annotationService.Apply(ctx, msg.Key, cmd)
	cancel()
	if err != nil {
		if errors.Is(err, service.ErrInvalidCommand) {
			h.sendJSON(msg.Client, dto.ErrorDTO{Type: "error", Message: "invalid command"})
		} else {
			logCtx.WithError(err).Error("Hub: Command processing failed")
			h.sendJSON(msg.Client, dto.ErrorDTO{Type: "error", Message: "internal error"})
		}
		return
	}

	h.broadcast(msg.Key, render)
}

// broadcast 把渲染模型发给一张图纸的全部客户端。
func (h *Hub) broadcast(key domain.DrawingKey, render *dto.RenderModel) {
	data, err := json.Marshal(render)
	if err != nil {
		logrus.WithField("drawing", key.String()).WithError(err).Error("Hub: Failed to marshal render model")
		return
	}

	h.sessionsMu.RLock()
	var targets []*Client
	if sess, ok := h.sessions[key]; ok {
		targets = sess.clients()
	}
	h.sessionsMu.RUnlock()

	for _, c := range targets {
		c.Send(data)
	}
}

func (h *Hub) sendJSON(client *Client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Error("Hub: Failed to marshal outgoing message")
		return
	}
	client.Send(data)
}

// Shutdown 关闭所有编辑会话（做最后一次落库）。进程退出前调用。
func (h *Hub) Shutdown() {
	h.sessionsMu.Lock()
	keys := make([]domain.DrawingKey, 0, len(h.sessions))
	for key, sess := range h.sessions {
		for _, c := range sess.clients() {
			c.CloseConn()
		}
		keys = append(keys, key)
	}
	h.sessions = make(map[domain.DrawingKey]*drawingSession)
	h.sessionsMu.Unlock()

	for _, key := range keys {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		h.annotationService.Close(ctx, key)
		cancel()
	}
	logrus.WithField("component", "hub").Info("All annotation sessions closed")
}
