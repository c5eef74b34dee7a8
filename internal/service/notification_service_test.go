package service

import (
	"errors"
	"strings"
	"testing"

	"qa_forum_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotifyFixture() (*NotificationService, *fakeNotificationStore, *fakePublisher) {
	store := &fakeNotificationStore{}
	publisher := &fakePublisher{}
	return NewNotificationService(store, publisher), store, publisher
}

func askerQuestion(title string) *model.Question {
	q := &model.Question{Title: title, AuthorID: 1}
	q.ID = "q-1"
	return q
}

func TestNotifyNewAnswer_MessageFormat(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "short title keeps full text with trailing ellipsis",
			title: "Short",
			want:  `bob answered your question: "Short..."`,
		},
		{
			name:  "long title truncated to 30 characters",
			title: strings.Repeat("x", 45),
			want:  `bob answered your question: "` + strings.Repeat("x", 30) + `..."`,
		},
		{
			name:  "exactly 30 characters untouched",
			title: strings.Repeat("y", 30),
			want:  `bob answered your question: "` + strings.Repeat("y", 30) + `..."`,
		},
		{
			name:  "multibyte title truncated by runes not bytes",
			title: strings.Repeat("问", 40),
			want:  `bob answered your question: "` + strings.Repeat("问", 30) + `..."`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newNotifyFixture()
			answerer := &model.User{Name: "bob"}
			answerer.ID = 2

			n, err := svc.NotifyNewAnswer(askerQuestion(tt.title), answerer)
			require.NoError(t, err)
			require.NotNil(t, n)
			assert.Equal(t, tt.want, n.Message)
			assert.Equal(t, "/questions/q-1", n.Link)
			assert.Equal(t, uint(1), n.RecipientID)
			assert.Equal(t, uint(2), n.SenderID)
			assert.Equal(t, model.NotificationNewAnswer, n.Type)
			require.Len(t, store.created, 1)
		})
	}
}

func TestNotifyNewAnswer_SelfAnswerSkipped(t *testing.T) {
	svc, store, publisher := newNotifyFixture()
	self := &model.User{Name: "alice"}
	self.ID = 1

	n, err := svc.NotifyNewAnswer(askerQuestion("whatever"), self)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, store.created)
	assert.Empty(t, publisher.published)
}

func TestNotifyNewAnswer_PersistedBeforePublished(t *testing.T) {
	svc, store, publisher := newNotifyFixture()
	answerer := &model.User{Name: "bob"}
	answerer.ID = 2

	// 落库失败则不推送
	store.failErr = errors.New("db down")
	_, err := svc.NotifyNewAnswer(askerQuestion("t"), answerer)
	require.Error(t, err)
	assert.Empty(t, publisher.published)
}

func TestNotifyNewAnswer_PublishFailureNotEscalated(t *testing.T) {
	svc, store, publisher := newNotifyFixture()
	answerer := &model.User{Name: "bob"}
	answerer.ID = 2

	publisher.failErr = errors.New("socket gone")
	n, err := svc.NotifyNewAnswer(askerQuestion("t"), answerer)
	require.NoError(t, err)
	require.NotNil(t, n)
	// 推送失败不影响已落库的通知
	require.Len(t, store.created, 1)
}

func TestNotifyNewAnswer_PublishEnvelope(t *testing.T) {
	svc, _, publisher := newNotifyFixture()
	answerer := &model.User{Name: "bob"}
	answerer.ID = 2

	_, err := svc.NotifyNewAnswer(askerQuestion("t"), answerer)
	require.NoError(t, err)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, "new_notification", publisher.published[0].Type)
	assert.Equal(t, []uint{1}, publisher.targets)
}

func TestNotifyAdminMessage(t *testing.T) {
	svc, store, publisher := newNotifyFixture()

	n, err := svc.NotifyAdminMessage(5, 9, "please update your profile", "/profile")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, model.NotificationAdminMessage, n.Type)
	require.Len(t, store.created, 1)
	require.Len(t, publisher.published, 1)

	// 自己发给自己直接跳过
	n, err = svc.NotifyAdminMessage(9, 9, "echo", "")
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Len(t, store.created, 1)
}

func TestNotificationQueries(t *testing.T) {
	svc, _, _ := newNotifyFixture()
	answerer := &model.User{Name: "bob"}
	answerer.ID = 2

	for i := 0; i < 3; i++ {
		_, err := svc.NotifyNewAnswer(askerQuestion("t"), answerer)
		require.NoError(t, err)
	}

	count, err := svc.UnreadCount(1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	require.NoError(t, svc.MarkAllRead(1))
	count, err = svc.UnreadCount(1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	require.NoError(t, svc.ClearRead(1))
	list, total, err := svc.List(1, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, list)
}
