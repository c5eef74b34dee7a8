package controller

import (
	"errors"
	"strconv"

	"qa_forum_backend/internal/model"
	"qa_forum_backend/internal/service"
	"qa_forum_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QAService *service.QAService
}

func NewQuestionController(qaService *service.QAService) *QuestionController {
	return &QuestionController{
		QAService: qaService,
	}
}

// CreateQuestion godoc
// @Summary 发布问题
// @Description 创建新问题，标签 1-5 个并统一小写
// @Tags 问答
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.QuestionRequest true "问题内容"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "标签不合法"
// @Router /api/questions [post]
func (c *QuestionController) CreateQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QAService.CreateQuestion(claims.UserID, req)
	if err != nil {
		respondQAError(ctx, err)
		return
	}

	util.Created(ctx, question)
}

// GetQuestions godoc
// @Summary 问题列表
// @Description 分页查询问题，支持标签过滤、关键字搜索和未回答筛选；非管理员只看到已通过的问题
// @Tags 问答
// @Produce  json
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Param   tag query string false "标签过滤"
// @Param   search query string false "标题关键字"
// @Param   sort query string false "unanswered 表示只看未回答"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/questions [get]
func (c *QuestionController) GetQuestions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	claims := util.GetUserFromContext(ctx)
	isAdmin := claims != nil && claims.Role == model.RoleAdmin

	items, total, err := c.QAService.GetQuestions(
		page, limit,
		ctx.Query("tag"),
		ctx.Query("search"),
		ctx.Query("sort"),
		isAdmin,
	)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  items,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetQuestion godoc
// @Summary 问题详情
// @Description 返回问题及其全部回答，回答按得分降序
// @Tags 问答
// @Produce  json
// @Param   id path string true "问题ID"
// @Success 200 {object} util.Response{data=service.QuestionDetail}
// @Failure 404 {object} util.Response "问题不存在"
// @Router /api/questions/{id} [get]
func (c *QuestionController) GetQuestion(ctx *gin.Context) {
	detail, err := c.QAService.GetQuestionDetail(ctx.Param("id"))
	if err != nil {
		respondQAError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// UpdateQuestion godoc
// @Summary 编辑问题
// @Description 仅提问者本人可编辑
// @Tags 问答
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "问题ID"
// @Param   body body service.QuestionUpdateRequest true "更新字段"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 403 {object} util.Response "无权操作"
// @Failure 404 {object} util.Response "问题不存在"
// @Router /api/questions/{id} [put]
func (c *QuestionController) UpdateQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuestionUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QAService.UpdateQuestion(ctx.Param("id"), claims.UserID, req)
	if err != nil {
		respondQAError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// DeleteQuestion godoc
// @Summary 删除问题
// @Description 提问者或管理员可删，回答随问题级联删除
// @Tags 问答
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "问题ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "无权操作"
// @Failure 409 {object} util.Response "级联删除未完成"
// @Router /api/questions/{id} [delete]
func (c *QuestionController) DeleteQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	err := c.QAService.DeleteQuestion(ctx.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		respondQAError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// AcceptAnswer godoc
// @Summary 采纳回答
// @Description 仅提问者本人可采纳；换采纳直接覆盖原采纳
// @Tags 问答
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "问题ID"
// @Param   answerId path string true "回答ID"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 403 {object} util.Response "非提问者"
// @Failure 409 {object} util.Response "回答不属于该问题"
// @Router /api/questions/{id}/accept/{answerId} [put]
func (c *QuestionController) AcceptAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	question, err := c.QAService.AcceptAnswer(ctx.Param("id"), ctx.Param("answerId"), claims.UserID)
	if err != nil {
		respondQAError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

type statusRequest struct {
	Status model.QuestionStatus `json:"status" binding:"required"`
}

// SetQuestionStatus godoc
// @Summary 审核问题
// @Description 管理员设置问题状态（pending_approval / approved / rejected）
// @Tags 管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "问题ID"
// @Param   body body statusRequest true "目标状态"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "状态值不合法"
// @Router /api/admin/questions/{id}/status [put]
func (c *QuestionController) SetQuestionStatus(ctx *gin.Context) {
	var req statusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QAService.SetQuestionStatus(ctx.Param("id"), req.Status)
	if err != nil {
		respondQAError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// respondQAError 把业务错误映射为 HTTP 状态码
func respondQAError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrAnswerNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrForbidden):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrInvalidTags),
		errors.Is(err, util.ErrInvalidVoteType),
		errors.Is(err, util.ErrInvalidStatus):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrAnswerMismatch),
		errors.Is(err, util.ErrCascadeIncomplete):
		util.Conflict(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
