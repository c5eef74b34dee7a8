package repository

import (
	"fmt"

	"qa_forum_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *QuestionRepository) FindByID(id string) (*model.Question, error) {
	var question model.Question
	err := r.DB.Preload("Author").First(&question, "id = ?", id).Error
	return &question, err
}

func (r *QuestionRepository) Save(question *model.Question) error {
	return r.DB.Save(question).Error
}

// FindWithPagination 列表查询：标签过滤、模糊搜索、未回答筛选
// includeUnapproved 仅管理员为 true，普通用户只能看到已通过的问题
func (r *QuestionRepository) FindWithPagination(offset, limit int, tag, search string, unanswered, includeUnapproved bool) ([]model.Question, int64, error) {
	var questions []model.Question
	var total int64

	query := r.DB.Model(&model.Question{})

	if tag != "" {
		// Tags 以 JSON 数组落库，元素带引号，按带引号子串匹配避免前缀误命中
		query = query.Where("tags LIKE ?", fmt.Sprintf(`%%"%s"%%`, tag))
	}

	if search != "" {
		query = query.Where("title LIKE ? OR content LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if unanswered {
		query = query.Where("answer_ids = ? OR answer_ids IS NULL OR answer_ids = ?", "[]", "")
	}

	if !includeUnapproved {
		query = query.Where("status = ?", model.StatusApproved)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Preload("Author").
		Find(&questions).Error
	if err != nil {
		return nil, 0, err
	}

	return questions, total, nil
}

// DeleteCascade 级联删除问题及其全部回答，事务内执行
func (r *QuestionRepository) DeleteCascade(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		// 1. 删除该问题下的所有回答
		if err := tx.Where("question_id = ?", id).Delete(&model.Answer{}).Error; err != nil {
			return err
		}
		// 2. 删除问题本身
		return tx.Delete(&model.Question{}, "id = ?", id).Error
	})
}
