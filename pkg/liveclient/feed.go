package liveclient

import (
	"errors"
	"sync"

	"qa_forum_backend/internal/model"
)

var ErrUnknownAnswer = errors.New("answer not present in local state")

// NotificationFeed 客户端通知列表，最新的在最前
type NotificationFeed struct {
	mu    sync.Mutex
	items []model.Notification
}

func NewNotificationFeed() *NotificationFeed {
	return &NotificationFeed{}
}

// Push 头插新通知
func (f *NotificationFeed) Push(n model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]model.Notification{n}, f.items...)
}

// Items 返回通知副本
func (f *NotificationFeed) Items() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Notification, len(f.items))
	copy(out, f.items)
	return out
}

func (f *NotificationFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Clear 一次清空全部通知
func (f *NotificationFeed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
}

// MarkAllRead 本地全部置为已读
func (f *NotificationFeed) MarkAllRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		f.items[i].IsRead = true
	}
}
