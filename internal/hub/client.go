package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"interior-planboard/internal/domain"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	key    domain.DrawingKey // 客户端打开的图纸
	userID uint
	send   chan []byte // 用于向此客户端发送消息的缓冲通道

	closeOnce sync.Once
}

// NewClient 创建一个新的 Client 实例
func NewClient(hub *Hub, conn *websocket.Conn, key domain.DrawingKey, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		key:    key,
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump 将消息从 WebSocket 连接泵送到 Hub 的 messageChan。
// 它在自己的 goroutine 中运行。
func (c *Client) ReadPump() {
	defer func() {
		// 清理操作：请求 Hub 注销此客户端
		unregisterMsg := HubMessage{Type: "unregister", Client: c, Key: c.key, UserID: c.userID}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "drawing": c.key.String()}).Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "drawing": c.key.String()}).Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "drawing": c.key.String()})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break
		}

		if messageType != websocket.TextMessage {
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "drawing": c.key.String()}).Debugf("Received non-text message type: %d", messageType)
			continue
		}

		commandMsg := HubMessage{
			Type:    "command",
			Key:     c.key,
			UserID:  c.userID,
			Client:  c,
			RawData: message,
		}
		if !c.hub.QueueMessage(commandMsg) {
			// Hub 处理不过来时丢弃该指令
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "drawing": c.key.String()}).Warn("Hub message channel full, dropping client command")
		}
	}
}

// WritePump 将消息从 Client 的 send 通道泵送到 WebSocket 连接。
// 它在自己的 goroutine 中运行。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "drawing": c.key.String()}).Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Hub 关闭了（注销时）
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "drawing": c.key.String()}).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "drawing": c.key.String()}).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

// Send 非阻塞地向客户端投递一条消息，客户端写缓冲满时丢弃。
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "drawing": c.key.String()}).Warn("Client send buffer full, dropping message")
	}
}

// CloseSend 关闭发送通道，促使 writePump 退出。只能调用一次。
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) Key() domain.DrawingKey { return c.key }
func (c *Client) UserID() uint           { return c.userID }
func (c *Client) CloseConn()             { c.conn.Close() }
