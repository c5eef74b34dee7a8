package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"qa_forum_backend/internal/model"
	"qa_forum_backend/internal/repository"
	"qa_forum_backend/internal/util"
	"qa_forum_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuestionStore / AnswerStore 是问答数据的持久化边界，
// 由 repository 层实现，测试用内存假实现替换。
type QuestionStore interface {
	Create(question *model.Question) error
	FindByID(id string) (*model.Question, error)
	Save(question *model.Question) error
	FindWithPagination(offset, limit int, tag, search string, unanswered, includeUnapproved bool) ([]model.Question, int64, error)
	DeleteCascade(id string) error
}

type AnswerStore interface {
	FindByID(id string) (*model.Answer, error)
	FindByQuestionID(questionID string) ([]model.Answer, error)
	Save(answer *model.Answer) error
	CreateWithParent(answer *model.Answer, question *model.Question) error
	DeleteWithParent(answer *model.Answer, question *model.Question) error
}

var _ QuestionStore = (*repository.QuestionRepository)(nil)
var _ AnswerStore = (*repository.AnswerRepository)(nil)

type QAService struct {
	Questions     QuestionStore
	Answers       AnswerStore
	Notifications *NotificationService
}

func NewQAService(questions QuestionStore, answers AnswerStore, notifications *NotificationService) *QAService {
	return &QAService{
		Questions:     questions,
		Answers:       answers,
		Notifications: notifications,
	}
}

type QuestionRequest struct {
	Title   string   `json:"title" binding:"required"`
	Content string   `json:"content" binding:"required"`
	Tags    []string `json:"tags" binding:"required"`
}

type QuestionUpdateRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type AnswerRequest struct {
	Content string `json:"content" binding:"required"`
}

type QuestionListItem struct {
	ID               string               `json:"id"`
	Title            string               `json:"title"`
	Content          string               `json:"content"`
	Tags             []string             `json:"tags"`
	Status           model.QuestionStatus `json:"status"`
	Author           string               `json:"author"`
	AuthorID         uint                 `json:"authorId"`
	AnswerCount      int                  `json:"answerCount"`
	AcceptedAnswerID *string              `json:"acceptedAnswerId"`
	CreatedAt        time.Time            `json:"createdAt"`
}

type QuestionDetail struct {
	Question *model.Question `json:"question"`
	Answers  []model.Answer  `json:"answers"`
}

const (
	maxTagCount    = 5
	maxTagLength   = 20
	listExcerptLen = 200
)

// normalizeTags 标签校验并统一小写，1-5 个、每个不超过 20 字符
func normalizeTags(tags []string) (model.StringList, error) {
	if len(tags) == 0 || len(tags) > maxTagCount {
		return nil, util.ErrInvalidTags
	}
	out := make(model.StringList, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || len([]rune(tag)) > maxTagLength {
			return nil, util.ErrInvalidTags
		}
		if !out.Contains(tag) {
			out = append(out, tag)
		}
	}
	return out, nil
}

func (s *QAService) CreateQuestion(authorID uint, req QuestionRequest) (*model.Question, error) {
	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	question := &model.Question{
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Tags:      tags,
		Status:    model.StatusApproved,
		AuthorID:  authorID,
		AnswerIDs: model.StringList{},
	}

	if err := s.Questions.Create(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QAService) GetQuestions(page, limit int, tag, search, sort string, isAdmin bool) ([]QuestionListItem, int64, error) {
	offset := (page - 1) * limit
	unanswered := sort == "unanswered"

	questions, total, err := s.Questions.FindWithPagination(offset, limit, strings.ToLower(tag), search, unanswered, isAdmin)
	if err != nil {
		return nil, 0, err
	}

	items := make([]QuestionListItem, len(questions))
	for i, q := range questions {
		items[i] = QuestionListItem{
			ID:    q.ID,
			Title: q.Title,
			// 列表页只带正文摘要，全文在详情接口
			Content: util.Truncate(q.Content, listExcerptLen),
			Tags:             q.Tags,
			Status:           q.Status,
			Author:           q.Author.Name,
			AuthorID:         q.AuthorID,
			AnswerCount:      len(q.AnswerIDs),
			AcceptedAnswerID: q.AcceptedAnswerID,
			CreatedAt:        q.CreatedAt,
		}
	}
	return items, total, nil
}

// GetQuestionDetail 问题详情，回答按得分降序排列，
// 同分时按创建顺序（父问题成员列表中的位置）兜底。
func (s *QAService) GetQuestionDetail(id string) (*QuestionDetail, error) {
	question, err := s.Questions.FindByID(id)
	if err != nil {
		return nil, mapQuestionErr(err)
	}

	answers, err := s.Answers.FindByQuestionID(id)
	if err != nil {
		return nil, err
	}

	sortAnswers(question, answers)

	return &QuestionDetail{
		Question: question,
		Answers:  answers,
	}, nil
}

func sortAnswers(question *model.Question, answers []model.Answer) {
	position := func(id string) int {
		if i := question.AnswerIDs.IndexOf(id); i >= 0 {
			return i
		}
		return len(question.AnswerIDs)
	}
	sort.SliceStable(answers, func(i, j int) bool {
		si, sj := answers[i].Score(), answers[j].Score()
		if si != sj {
			return si > sj
		}
		return position(answers[i].ID) < position(answers[j].ID)
	})
}

func (s *QAService) UpdateQuestion(id string, actorID uint, req QuestionUpdateRequest) (*model.Question, error) {
	question, err := s.Questions.FindByID(id)
	if err != nil {
		return nil, mapQuestionErr(err)
	}

	// 只有提问者本人可以编辑
	if question.AuthorID != actorID {
		return nil, util.ErrForbidden
	}

	if req.Title != "" {
		question.Title = strings.TrimSpace(req.Title)
	}
	if req.Content != "" {
		question.Content = req.Content
	}
	if req.Tags != nil {
		tags, err := normalizeTags(req.Tags)
		if err != nil {
			return nil, err
		}
		question.Tags = tags
	}

	if err := s.Questions.Save(question); err != nil {
		return nil, err
	}
	return question, nil
}

// DeleteQuestion 级联删除：先删光全部回答再删问题本身。
// 级联失败对调用方必须可见，残留状态视为冲突而不是静默吞掉。
func (s *QAService) DeleteQuestion(id string, actorID uint, role model.UserRole) error {
	question, err := s.Questions.FindByID(id)
	if err != nil {
		return mapQuestionErr(err)
	}

	if question.AuthorID != actorID && role != model.RoleAdmin {
		return util.ErrForbidden
	}

	if err := s.Questions.DeleteCascade(id); err != nil {
		return fmt.Errorf("%w: %v", util.ErrCascadeIncomplete, err)
	}
	return nil
}

// CreateAnswer 创建回答并维护父问题的成员列表（仅追加，顺序即创建顺序），
// 随后触发通知分发。通知失败不影响已创建的回答。
func (s *QAService) CreateAnswer(questionID string, author *model.User, content string) (*model.Answer, error) {
	question, err := s.Questions.FindByID(questionID)
	if err != nil {
		return nil, mapQuestionErr(err)
	}

	answer := &model.Answer{
		QuestionID:   questionID,
		AuthorID:     author.ID,
		Content:      content,
		UpvoterIDs:   model.UserIDSet{},
		DownvoterIDs: model.UserIDSet{},
	}

	if err := s.Answers.CreateWithParent(answer, question); err != nil {
		return nil, err
	}

	if s.Notifications != nil {
		if _, err := s.Notifications.NotifyNewAnswer(question, author); err != nil {
			logger.Log.Warn("answer notification not persisted",
				zap.Error(err),
				zap.String("questionId", questionID),
				zap.String("answerId", answer.ID))
		}
	}

	return answer, nil
}

func (s *QAService) VoteAnswer(answerID string, userID uint, vote model.VoteType) (*model.Answer, error) {
	answer, err := s.Answers.FindByID(answerID)
	if err != nil {
		return nil, mapAnswerErr(err)
	}

	if err := ApplyVote(answer, userID, vote); err != nil {
		return nil, err
	}

	if err := s.Answers.Save(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// AcceptAnswer 采纳回答。纯赋值而非切换：换采纳直接覆盖，
// 重复采纳同一回答是无操作，不存在显式的取消采纳。
func (s *QAService) AcceptAnswer(questionID, answerID string, actorID uint) (*model.Question, error) {
	question, err := s.Questions.FindByID(questionID)
	if err != nil {
		return nil, mapQuestionErr(err)
	}

	if question.AuthorID != actorID {
		return nil, util.ErrForbidden
	}

	answer, err := s.Answers.FindByID(answerID)
	if err != nil {
		return nil, mapAnswerErr(err)
	}
	if answer.QuestionID != questionID {
		return nil, util.ErrAnswerMismatch
	}

	if question.AcceptedAnswerID != nil && *question.AcceptedAnswerID == answerID {
		return question, nil
	}

	question.AcceptedAnswerID = &answerID
	if err := s.Questions.Save(question); err != nil {
		return nil, err
	}
	return question, nil
}

// DeleteAnswer 删除回答：从父问题的成员列表摘除，
// 被删回答若正是已采纳回答则一并清除采纳状态（保持引用一致）。
func (s *QAService) DeleteAnswer(answerID string, actorID uint, role model.UserRole) error {
	answer, err := s.Answers.FindByID(answerID)
	if err != nil {
		return mapAnswerErr(err)
	}

	if answer.AuthorID != actorID && role != model.RoleAdmin {
		return util.ErrForbidden
	}

	question, err := s.Questions.FindByID(answer.QuestionID)
	if err != nil {
		return mapQuestionErr(err)
	}

	question.AnswerIDs = question.AnswerIDs.Without(answerID)
	if question.AcceptedAnswerID != nil && *question.AcceptedAnswerID == answerID {
		question.AcceptedAnswerID = nil
	}

	if err := s.Answers.DeleteWithParent(answer, question); err != nil {
		return fmt.Errorf("%w: %v", util.ErrCascadeIncomplete, err)
	}
	return nil
}

// SetQuestionStatus 管理员审核
func (s *QAService) SetQuestionStatus(id string, status model.QuestionStatus) (*model.Question, error) {
	switch status {
	case model.StatusPendingApproval, model.StatusApproved, model.StatusRejected:
	default:
		return nil, util.ErrInvalidStatus
	}

	question, err := s.Questions.FindByID(id)
	if err != nil {
		return nil, mapQuestionErr(err)
	}

	question.Status = status
	if err := s.Questions.Save(question); err != nil {
		return nil, err
	}
	return question, nil
}

func mapQuestionErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuestionNotFound
	}
	return err
}

func mapAnswerErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrAnswerNotFound
	}
	return err
}
