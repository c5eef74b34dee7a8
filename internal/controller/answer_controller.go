package controller

import (
	"qa_forum_backend/internal/model"
	"qa_forum_backend/internal/service"
	"qa_forum_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnswerController struct {
	QAService   *service.QAService
	AuthService *service.AuthService
}

func NewAnswerController(qaService *service.QAService, authService *service.AuthService) *AnswerController {
	return &AnswerController{
		QAService:   qaService,
		AuthService: authService,
	}
}

// CreateAnswer godoc
// @Summary 发布回答
// @Description 在指定问题下创建回答，并向提问者推送通知
// @Tags 问答
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "问题ID"
// @Param   body body service.AnswerRequest true "回答内容"
// @Success 201 {object} util.Response{data=model.Answer}
// @Failure 404 {object} util.Response "问题不存在"
// @Router /api/questions/{id}/answers [post]
func (c *AnswerController) CreateAnswer(ctx *gin.Context) {
	author := c.AuthService.GetCurrentUser(ctx)
	if author == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.QAService.CreateAnswer(ctx.Param("id"), author, req.Content)
	if err != nil {
		respondQAError(ctx, err)
		return
	}
	util.Created(ctx, answer)
}

type voteRequest struct {
	Vote model.VoteType `json:"vote" binding:"required"`
}

// VoteAnswer godoc
// @Summary 回答投票
// @Description 切换式投票：重复同向投票即撤销，反向投票先清掉原方向
// @Tags 问答
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "回答ID"
// @Param   body body voteRequest true "upvote 或 downvote"
// @Success 200 {object} util.Response{data=model.Answer}
// @Failure 400 {object} util.Response "投票类型不合法"
// @Failure 404 {object} util.Response "回答不存在"
// @Router /api/answers/{id}/vote [put]
func (c *AnswerController) VoteAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req voteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.QAService.VoteAnswer(ctx.Param("id"), claims.UserID, req.Vote)
	if err != nil {
		respondQAError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// DeleteAnswer godoc
// @Summary 删除回答
// @Description 回答者或管理员可删；删除已采纳回答时一并清除问题的采纳状态
// @Tags 问答
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "回答ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "无权操作"
// @Failure 409 {object} util.Response "级联更新未完成"
// @Router /api/answers/{id} [delete]
func (c *AnswerController) DeleteAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.QAService.DeleteAnswer(ctx.Param("id"), claims.UserID, claims.Role); err != nil {
		respondQAError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
