package repository

import (
	"qa_forum_backend/internal/model"

	"gorm.io/gorm"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

func (r *AnswerRepository) FindByID(id string) (*model.Answer, error) {
	var answer model.Answer
	err := r.DB.Preload("Author").First(&answer, "id = ?", id).Error
	return &answer, err
}

func (r *AnswerRepository) FindByQuestionID(questionID string) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.Where("question_id = ?", questionID).
		Preload("Author").
		Find(&answers).Error
	return answers, err
}

func (r *AnswerRepository) Save(answer *model.Answer) error {
	return r.DB.Save(answer).Error
}

// CreateWithParent 创建回答并把新 id 追加到父问题的成员列表，事务内执行
func (r *AnswerRepository) CreateWithParent(answer *model.Answer, question *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		question.AnswerIDs = append(question.AnswerIDs, answer.ID)
		return tx.Save(question).Error
	})
}

// DeleteWithParent 删除回答并保存调用方已摘除该 id 的父问题，事务内执行
func (r *AnswerRepository) DeleteWithParent(answer *model.Answer, question *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(question).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Answer{}, "id = ?", answer.ID).Error
	})
}
