package controller

import (
	"errors"
	"path/filepath"
	"strconv"

	"qa_forum_backend/internal/service"
	"qa_forum_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const maxAvatarSize = 5 << 20 // 5MB

type UserController struct {
	UserService         *service.UserService
	NotificationService *service.NotificationService
	Hub                 *service.NotificationHub
}

func NewUserController(userService *service.UserService, notificationService *service.NotificationService, hub *service.NotificationHub) *UserController {
	return &UserController{
		UserService:         userService,
		NotificationService: notificationService,
		Hub:                 hub,
	}
}

// GetUser godoc
// @Summary 用户公开信息
// @Description 返回用户资料及其实时在线状态
// @Tags 用户
// @Produce  json
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	user, err := c.UserService.GetProfile(uint(id))
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"user":   user,
		"online": c.Hub.IsUserOnline(user.ID),
	})
}

// UploadAvatar godoc
// @Summary 上传头像
// @Description multipart 上传，支持 jpg/png/gif/webp，大小不超过 5MB
// @Tags 用户
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   avatar formData file true "头像文件"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "文件不合法"
// @Router /api/users/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("avatar")
	if err != nil {
		util.BadRequest(ctx, "avatar file is required")
		return
	}
	if fileHeader.Size > maxAvatarSize {
		util.BadRequest(ctx, "avatar exceeds 5MB limit")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !util.IsImage(contentType) {
		util.BadRequest(ctx, "unsupported image type")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.UserService.UpdateAvatar(
		ctx.Request.Context(),
		claims.UserID,
		filepath.Ext(fileHeader.Filename),
		file,
		fileHeader.Size,
		contentType,
	)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"avatar": url})
}

// ListUsers godoc
// @Summary 用户列表
// @Description 管理员分页查看用户
// @Tags 管理
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Param   search query string false "姓名或邮箱搜索"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	users, total, err := c.UserService.ListUsers(page, limit, ctx.Query("search"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  users,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

type adminMessageRequest struct {
	RecipientID uint   `json:"recipientId" binding:"required"`
	Message     string `json:"message" binding:"required"`
	Link        string `json:"link"`
}

// SendAdminMessage godoc
// @Summary 管理员站内通知
// @Description 向指定用户推送一条管理员消息
// @Tags 管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body adminMessageRequest true "通知内容"
// @Success 201 {object} util.Response{data=model.Notification}
// @Router /api/admin/notifications [post]
func (c *UserController) SendAdminMessage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req adminMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	notification, err := c.NotificationService.NotifyAdminMessage(req.RecipientID, claims.UserID, req.Message, req.Link)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, notification)
}
