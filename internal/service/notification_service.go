package service

import (
	"fmt"

	"qa_forum_backend/internal/model"
	"qa_forum_backend/internal/repository"
	"qa_forum_backend/pkg/logger"

	"go.uber.org/zap"
)

// NotificationStore 通知的持久化边界
type NotificationStore interface {
	Create(n *model.Notification) error
	FindByRecipient(recipientID uint, offset, limit int) ([]model.Notification, int64, error)
	CountUnread(recipientID uint) (int64, error)
	MarkAllRead(recipientID uint) error
	DeleteRead(recipientID uint) error
}

// NotificationPublisher 实时推送边界，推送失败不影响已落库的通知
type NotificationPublisher interface {
	PublishToUser(userID uint, msg WSMessage) error
}

var _ NotificationStore = (*repository.NotificationRepository)(nil)
var _ NotificationPublisher = (*NotificationHub)(nil)

type NotificationService struct {
	Store NotificationStore
	Hub   NotificationPublisher
}

func NewNotificationService(store NotificationStore, hub NotificationPublisher) *NotificationService {
	return &NotificationService{
		Store: store,
		Hub:   hub,
	}
}

// titleExcerptLen 通知正文里问题标题的保留长度
const titleExcerptLen = 30

// NotifyNewAnswer 回答创建后的通知分发：先落库，成功后再实时推送。
// 回答者即提问者时完全跳过，返回 (nil, nil)。
// 推送失败只记日志，落库记录是唯一有保证的产物。
func (s *NotificationService) NotifyNewAnswer(question *model.Question, answerAuthor *model.User) (*model.Notification, error) {
	if answerAuthor.ID == question.AuthorID {
		return nil, nil
	}

	excerpt := []rune(question.Title)
	if len(excerpt) > titleExcerptLen {
		excerpt = excerpt[:titleExcerptLen]
	}

	notification := &model.Notification{
		RecipientID: question.AuthorID,
		SenderID:    answerAuthor.ID,
		Type:        model.NotificationNewAnswer,
		Message:     fmt.Sprintf(`%s answered your question: "%s..."`, answerAuthor.Name, string(excerpt)),
		Link:        "/questions/" + question.ID,
	}

	if err := s.Store.Create(notification); err != nil {
		return nil, err
	}

	s.publish(notification)
	return notification, nil
}

// NotifyAdminMessage 管理员手动给指定用户发送系统通知
func (s *NotificationService) NotifyAdminMessage(recipientID, senderID uint, message, link string) (*model.Notification, error) {
	if recipientID == senderID {
		return nil, nil
	}

	notification := &model.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        model.NotificationAdminMessage,
		Message:     message,
		Link:        link,
	}

	if err := s.Store.Create(notification); err != nil {
		return nil, err
	}

	s.publish(notification)
	return notification, nil
}

func (s *NotificationService) publish(n *model.Notification) {
	if s.Hub == nil {
		return
	}
	err := s.Hub.PublishToUser(n.RecipientID, WSMessage{
		Type: "new_notification",
		Data: n,
	})
	if err != nil {
		// 实时送达尽力而为，落库成功即视为完成
		logger.Log.Warn("live notification delivery failed",
			zap.Error(err),
			zap.Uint("recipientId", n.RecipientID),
			zap.String("notificationId", n.ID))
	}
}

func (s *NotificationService) List(recipientID uint, page, limit int) ([]model.Notification, int64, error) {
	offset := (page - 1) * limit
	return s.Store.FindByRecipient(recipientID, offset, limit)
}

func (s *NotificationService) UnreadCount(recipientID uint) (int64, error) {
	return s.Store.CountUnread(recipientID)
}

func (s *NotificationService) MarkAllRead(recipientID uint) error {
	return s.Store.MarkAllRead(recipientID)
}

func (s *NotificationService) ClearRead(recipientID uint) error {
	return s.Store.DeleteRead(recipientID)
}
