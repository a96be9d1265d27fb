package http

import (
	"net/http"
	"strings"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DrawingHandler 封装了图纸管理相关的 HTTP 处理逻辑。
// 图纸由 (登录用户, 项目, 图纸类型) 唯一标识，标注编辑走 WebSocket，
// 这里只负责接入、查询和删除。
type DrawingHandler struct {
	annotationService *service.AnnotationService
}

// NewDrawingHandler 创建 DrawingHandler 实例
func NewDrawingHandler(annotationService *service.AnnotationService) *DrawingHandler {
	return &DrawingHandler{annotationService: annotationService}
}

// currentUserID 从 Gin 上下文取出 Auth 中间件写入的用户 ID。
func currentUserID(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("Handler: User ID not found in context, middleware missing or failed?")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error processing user ID"})
		return 0, false
	}
	return userID, true
}

// drawingKeyFromPath 组装图纸标识，校验 URL 参数。
// 项目名不允许包含冒号，因为冒号是图纸键的分隔符。
func drawingKeyFromPath(c *gin.Context, ownerID uint) (domain.DrawingKey, bool) {
	project := c.Param("project")
	drawingType := c.Param("dtype")

	if project == "" || strings.Contains(project, ":") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project name"})
		return domain.DrawingKey{}, false
	}
	if !domain.KnownDrawingType(drawingType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown drawing type: " + drawingType})
		return domain.DrawingKey{}, false
	}
	return domain.DrawingKey{OwnerID: ownerID, Project: project, DrawingType: drawingType}, true
}

// IntakeRequest 定义图片接入请求的结构体
type IntakeRequest struct {
	ImageURL      string  `json:"image_url" binding:"required"`
	NaturalWidth  float64 `json:"natural_width" binding:"required,gt=0"`
	NaturalHeight float64 `json:"natural_height" binding:"required,gt=0"`
}

// Intake 处理图纸图片接入请求 (PUT /api/drawings/:project/:dtype)。
// 对已存在的图纸是替换图片：房间和标记保留，百分比坐标不依赖图片像素尺寸。
func (h *DrawingHandler) Intake(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	key, ok := drawingKeyFromPath(c, userID)
	if !ok {
		return
	}
	logCtx := logrus.WithField("drawing", key.String())

	var req IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.Intake: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	drawing, err := h.annotationService.CreateDrawing(c.Request.Context(), key, domain.ImageRef{
		URL:           req.ImageURL,
		NaturalWidth:  req.NaturalWidth,
		NaturalHeight: req.NaturalHeight,
	})
	if err != nil {
		logCtx.WithError(err).Warn("Handler.Intake: Failed to create drawing")
		HandleServiceError(c, err)
		return
	}

	logCtx.Info("Handler.Intake: Drawing image accepted")
	SuccessResponse(c, http.StatusOK, gin.H{
		"message": "Drawing image accepted",
		"drawing": drawing,
	})
}

// GetDrawing 返回一张图纸的完整标注数据 (GET /api/drawings/:project/:dtype)
func (h *DrawingHandler) GetDrawing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	key, ok := drawingKeyFromPath(c, userID)
	if !ok {
		return
	}

	drawing, err := h.annotationService.GetDrawing(c.Request.Context(), key)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, drawing)
}

// Counts 返回按符号类型的标记统计 (GET /api/drawings/:project/:dtype/counts)。
// 可选查询参数 room_id 把统计范围限定到一个房间。
func (h *DrawingHandler) Counts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	key, ok := drawingKeyFromPath(c, userID)
	if !ok {
		return
	}

	counts, err := h.annotationService.Counts(c.Request.Context(), key, c.Query("room_id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"counts": counts})
}

// DeleteDrawing 删除一张图纸及其全部标注 (DELETE /api/drawings/:project/:dtype)
func (h *DrawingHandler) DeleteDrawing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	key, ok := drawingKeyFromPath(c, userID)
	if !ok {
		return
	}

	if err := h.annotationService.DeleteDrawing(c.Request.Context(), key); err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithField("drawing", key.String()).Info("Handler.DeleteDrawing: Drawing deleted")
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Drawing deleted"})
}

// ClearAll 删除当前用户的全部图纸 (DELETE /api/drawings)
func (h *DrawingHandler) ClearAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	deleted, err := h.annotationService.ClearAll(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "deleted": deleted}).Info("Handler.ClearAll: Drawings cleared")
	SuccessResponse(c, http.StatusOK, gin.H{
		"message": "All drawings cleared",
		"deleted": deleted,
	})
}
