package websocket

import (
	"errors"
	"net/http"
	"strings"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/hub"
	"interior-planboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册。
// URL 预期格式: /ws/drawings/{project}/{dtype}，图纸归属取自 JWT 用户。
type WebSocketHandler struct {
	upgrader          websocket.Upgrader
	hub               *hub.Hub
	annotationService *service.AnnotationService // 升级前验证图纸存在
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub, annotationService *service.AnnotationService) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if annotationService == nil {
		panic("AnnotationService cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:          upgrader,
		hub:               h,
		annotationService: annotationService,
	}
}

// HandleConnection 处理 WebSocket 连接请求
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	// 1. 获取认证用户 ID (由 Auth 中间件设置)
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return // 返回 HTTP 错误，因为此时还未升级到 WebSocket
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	// 2. 从 URL 参数组装图纸标识
	project := c.Param("project")
	drawingType := c.Param("dtype")
	if project == "" || strings.Contains(project, ":") {
		logCtx.Warnf("WS Handler: Invalid project name: %s", project)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project name"})
		return
	}
	if !domain.KnownDrawingType(drawingType) {
		logCtx.Warnf("WS Handler: Unknown drawing type: %s", drawingType)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown drawing type"})
		return
	}
	key := domain.DrawingKey{OwnerID: userID, Project: project, DrawingType: drawingType}
	logCtx = logCtx.WithField("drawing", key.String())

	// 3. 验证图纸存在（必须先通过接入接口上传图片）
	if _, err := h.annotationService.GetDrawing(c.Request.Context(), key); err != nil {
		if errors.Is(err, service.ErrDrawingNotFound) {
			logCtx.Warn("WS Handler: Drawing not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Drawing not found, upload a plan image first"})
		} else {
			logCtx.WithError(err).Error("WS Handler: Error checking drawing existence")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate drawing"})
		}
		return
	}
	logCtx.Debug("WS Handler: Drawing validated")

	// 4. 升级 HTTP 连接到 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 方法会自动发送 HTTP 错误响应，所以这里只需要记录日志
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	// 5. 创建 Client 并请求 Hub 注册
	client := hub.NewClient(h.hub, conn, key, userID)

	registerMsg := hub.HubMessage{
		Type:   "register",
		Client: client,
		Key:    key,
		UserID: userID,
	}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	// 6. 启动客户端的读写 goroutine，之后由 ReadPump/WritePump 接管连接
	client.Run()
	logCtx.Info("WS Handler: Client read/write pumps started")
}
