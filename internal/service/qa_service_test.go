package service

import (
	"errors"
	"fmt"
	"testing"

	"qa_forum_backend/internal/model"
	"qa_forum_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ---- 内存假实现 ----

type fakeQuestionStore struct {
	seq       int
	questions map[string]model.Question
	failErr   error
	cascade   func(questionID string) // 级联删除回答，由 fixture 接上
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{questions: make(map[string]model.Question)}
}

func (f *fakeQuestionStore) Create(q *model.Question) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.seq++
	q.ID = fmt.Sprintf("q-%d", f.seq)
	f.questions[q.ID] = *q
	return nil
}

func (f *fakeQuestionStore) FindByID(id string) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := q
	return &out, nil
}

func (f *fakeQuestionStore) Save(q *model.Question) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.questions[q.ID] = *q
	return nil
}

func (f *fakeQuestionStore) FindWithPagination(offset, limit int, tag, search string, unanswered, includeUnapproved bool) ([]model.Question, int64, error) {
	var out []model.Question
	for _, q := range f.questions {
		if !includeUnapproved && q.Status != model.StatusApproved {
			continue
		}
		if tag != "" && !q.Tags.Contains(tag) {
			continue
		}
		if unanswered && len(q.AnswerIDs) > 0 {
			continue
		}
		out = append(out, q)
	}
	return out, int64(len(out)), nil
}

type fakeAnswerStore struct {
	seq       int
	answers   map[string]model.Answer
	questions *fakeQuestionStore
	failErr   error
}

func newFakeAnswerStore(questions *fakeQuestionStore) *fakeAnswerStore {
	return &fakeAnswerStore{answers: make(map[string]model.Answer), questions: questions}
}

func (f *fakeQuestionStore) DeleteCascade(id string) error {
	if f.failErr != nil {
		return f.failErr
	}
	if f.cascade != nil {
		f.cascade(id)
	}
	delete(f.questions, id)
	return nil
}

func (f *fakeAnswerStore) FindByID(id string) (*model.Answer, error) {
	a, ok := f.answers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := a
	return &out, nil
}

func (f *fakeAnswerStore) FindByQuestionID(questionID string) ([]model.Answer, error) {
	var out []model.Answer
	for _, a := range f.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAnswerStore) Save(a *model.Answer) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.answers[a.ID] = *a
	return nil
}

func (f *fakeAnswerStore) CreateWithParent(a *model.Answer, q *model.Question) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.seq++
	a.ID = fmt.Sprintf("a-%d", f.seq)
	f.answers[a.ID] = *a
	q.AnswerIDs = append(q.AnswerIDs, a.ID)
	return f.questions.Save(q)
}

func (f *fakeAnswerStore) DeleteWithParent(a *model.Answer, q *model.Question) error {
	if f.failErr != nil {
		return f.failErr
	}
	if err := f.questions.Save(q); err != nil {
		return err
	}
	delete(f.answers, a.ID)
	return nil
}

func (f *fakeAnswerStore) deleteByQuestion(questionID string) {
	for id, a := range f.answers {
		if a.QuestionID == questionID {
			delete(f.answers, id)
		}
	}
}

type fakeNotificationStore struct {
	created []model.Notification
	failErr error
}

func (f *fakeNotificationStore) Create(n *model.Notification) error {
	if f.failErr != nil {
		return f.failErr
	}
	n.ID = fmt.Sprintf("n-%d", len(f.created)+1)
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeNotificationStore) FindByRecipient(recipientID uint, offset, limit int) ([]model.Notification, int64, error) {
	var out []model.Notification
	for i := len(f.created) - 1; i >= 0; i-- {
		if f.created[i].RecipientID == recipientID {
			out = append(out, f.created[i])
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationStore) CountUnread(recipientID uint) (int64, error) {
	var n int64
	for _, c := range f.created {
		if c.RecipientID == recipientID && !c.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotificationStore) MarkAllRead(recipientID uint) error {
	for i := range f.created {
		if f.created[i].RecipientID == recipientID {
			f.created[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationStore) DeleteRead(recipientID uint) error {
	kept := f.created[:0]
	for _, c := range f.created {
		if c.RecipientID == recipientID && c.IsRead {
			continue
		}
		kept = append(kept, c)
	}
	f.created = kept
	return nil
}

type fakePublisher struct {
	published []WSMessage
	targets   []uint
	failErr   error
}

func (f *fakePublisher) PublishToUser(userID uint, msg WSMessage) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.targets = append(f.targets, userID)
	f.published = append(f.published, msg)
	return nil
}

type qaFixture struct {
	svc       *QAService
	questions *fakeQuestionStore
	answers   *fakeAnswerStore
	store     *fakeNotificationStore
	publisher *fakePublisher
}

func newQAFixture(t *testing.T) *qaFixture {
	t.Helper()
	questions := newFakeQuestionStore()
	answers := newFakeAnswerStore(questions)
	store := &fakeNotificationStore{}
	publisher := &fakePublisher{}
	questions.cascade = answers.deleteByQuestion
	notifications := NewNotificationService(store, publisher)
	return &qaFixture{
		svc:       NewQAService(questions, answers, notifications),
		questions: questions,
		answers:   answers,
		store:     store,
		publisher: publisher,
	}
}

func (fx *qaFixture) seedQuestion(t *testing.T, authorID uint, title string) *model.Question {
	t.Helper()
	q, err := fx.svc.CreateQuestion(authorID, QuestionRequest{
		Title:   title,
		Content: "content",
		Tags:    []string{"go"},
	})
	require.NoError(t, err)
	return q
}

// ---- 问题 ----

func TestCreateQuestion_TagValidation(t *testing.T) {
	tests := []struct {
		name    string
		tags    []string
		wantErr bool
		want    model.StringList
	}{
		{name: "lowercased and trimmed", tags: []string{" Go ", "MySQL"}, want: model.StringList{"go", "mysql"}},
		{name: "duplicates collapse", tags: []string{"go", "Go", "GO"}, want: model.StringList{"go"}},
		{name: "empty list rejected", tags: []string{}, wantErr: true},
		{name: "more than five rejected", tags: []string{"a", "b", "c", "d", "e", "f"}, wantErr: true},
		{name: "blank tag rejected", tags: []string{"go", "   "}, wantErr: true},
		{name: "overlong tag rejected", tags: []string{"aaaaaaaaaaaaaaaaaaaaa"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newQAFixture(t)
			q, err := fx.svc.CreateQuestion(1, QuestionRequest{Title: "t", Content: "c", Tags: tt.tags})
			if tt.wantErr {
				require.ErrorIs(t, err, util.ErrInvalidTags)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Tags)
			assert.Equal(t, model.StatusApproved, q.Status)
			assert.Empty(t, q.AnswerIDs)
		})
	}
}

func TestUpdateQuestion_AuthorOnly(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "original")

	_, err := fx.svc.UpdateQuestion(q.ID, 2, QuestionUpdateRequest{Title: "hijacked"})
	require.ErrorIs(t, err, util.ErrForbidden)

	updated, err := fx.svc.UpdateQuestion(q.ID, 1, QuestionUpdateRequest{Title: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Title)
	// 未提供的字段保持原值
	assert.Equal(t, "content", updated.Content)
}

func TestDeleteQuestion_CascadeRemovesAnswers(t *testing.T) {
	fx := newQAFixture(t)
	author := &model.User{Name: "bob"}
	author.ID = 2
	q := fx.seedQuestion(t, 1, "to delete")

	_, err := fx.svc.CreateAnswer(q.ID, author, "first")
	require.NoError(t, err)
	_, err = fx.svc.CreateAnswer(q.ID, author, "second")
	require.NoError(t, err)

	// 非提问者且非管理员不可删除
	err = fx.svc.DeleteQuestion(q.ID, 3, model.RoleUser)
	require.ErrorIs(t, err, util.ErrForbidden)

	err = fx.svc.DeleteQuestion(q.ID, 1, model.RoleUser)
	require.NoError(t, err)

	_, err = fx.svc.GetQuestionDetail(q.ID)
	require.ErrorIs(t, err, util.ErrQuestionNotFound)
	remaining, _ := fx.answers.FindByQuestionID(q.ID)
	assert.Empty(t, remaining)
}

func TestDeleteQuestion_AdminOverride(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "moderated away")

	err := fx.svc.DeleteQuestion(q.ID, 99, model.RoleAdmin)
	require.NoError(t, err)
}

func TestDeleteQuestion_CascadeFailureSurfaces(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "stubborn")

	fx.questions.failErr = errors.New("disk on fire")
	err := fx.svc.DeleteQuestion(q.ID, 1, model.RoleUser)
	require.ErrorIs(t, err, util.ErrCascadeIncomplete)
}

func mustFind(t *testing.T, store *fakeQuestionStore, id string) *model.Question {
	t.Helper()
	q, err := store.FindByID(id)
	require.NoError(t, err)
	return q
}

// ---- 回答 ----

func TestCreateAnswer_AppendsMembershipAndNotifies(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "how do goroutines work")

	answerer := &model.User{Name: "bob"}
	answerer.ID = 2

	a1, err := fx.svc.CreateAnswer(q.ID, answerer, "like this")
	require.NoError(t, err)
	a2, err := fx.svc.CreateAnswer(q.ID, answerer, "or like that")
	require.NoError(t, err)

	parent := mustFind(t, fx.questions, q.ID)
	assert.Equal(t, model.StringList{a1.ID, a2.ID}, parent.AnswerIDs)

	// 提问者收到通知并实时推送
	require.Len(t, fx.store.created, 2)
	assert.Equal(t, uint(1), fx.store.created[0].RecipientID)
	assert.Equal(t, model.NotificationNewAnswer, fx.store.created[0].Type)
	assert.Equal(t, []uint{1, 1}, fx.publisher.targets)
}

func TestCreateAnswer_SelfAnswerNoNotification(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "note to self")

	self := &model.User{Name: "alice"}
	self.ID = 1

	_, err := fx.svc.CreateAnswer(q.ID, self, "answering my own question")
	require.NoError(t, err)

	assert.Empty(t, fx.store.created)
	assert.Empty(t, fx.publisher.published)
}

func TestCreateAnswer_QuestionMissing(t *testing.T) {
	fx := newQAFixture(t)
	author := &model.User{Name: "bob"}
	author.ID = 2

	_, err := fx.svc.CreateAnswer("nope", author, "into the void")
	require.ErrorIs(t, err, util.ErrQuestionNotFound)
}

func TestGetQuestionDetail_AnswerOrdering(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "ordering")
	author := &model.User{Name: "bob"}
	author.ID = 2

	a1, err := fx.svc.CreateAnswer(q.ID, author, "first, low score")
	require.NoError(t, err)
	a2, err := fx.svc.CreateAnswer(q.ID, author, "second, high score")
	require.NoError(t, err)
	a3, err := fx.svc.CreateAnswer(q.ID, author, "third, tied with first")
	require.NoError(t, err)

	_, err = fx.svc.VoteAnswer(a2.ID, 3, model.VoteUp)
	require.NoError(t, err)
	_, err = fx.svc.VoteAnswer(a2.ID, 4, model.VoteUp)
	require.NoError(t, err)

	detail, err := fx.svc.GetQuestionDetail(q.ID)
	require.NoError(t, err)
	require.Len(t, detail.Answers, 3)

	// 得分降序，平分按创建顺序
	assert.Equal(t, a2.ID, detail.Answers[0].ID)
	assert.Equal(t, a1.ID, detail.Answers[1].ID)
	assert.Equal(t, a3.ID, detail.Answers[2].ID)
}

func TestVoteAnswer_PersistsToggle(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "votable")
	author := &model.User{Name: "bob"}
	author.ID = 2
	a, err := fx.svc.CreateAnswer(q.ID, author, "vote me")
	require.NoError(t, err)

	voted, err := fx.svc.VoteAnswer(a.ID, 3, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, voted.Score())

	// 落库后再查仍是切换后的状态
	again, err := fx.svc.VoteAnswer(a.ID, 3, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Score())
	assert.Empty(t, again.UpvoterIDs)
}

// ---- 采纳 ----

func TestAcceptAnswer(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "acceptance")
	other := fx.seedQuestion(t, 1, "unrelated")
	author := &model.User{Name: "bob"}
	author.ID = 2

	a1, err := fx.svc.CreateAnswer(q.ID, author, "candidate one")
	require.NoError(t, err)
	a2, err := fx.svc.CreateAnswer(q.ID, author, "candidate two")
	require.NoError(t, err)
	foreign, err := fx.svc.CreateAnswer(other.ID, author, "belongs elsewhere")
	require.NoError(t, err)

	t.Run("only asker may accept", func(t *testing.T) {
		_, err := fx.svc.AcceptAnswer(q.ID, a1.ID, 2)
		require.ErrorIs(t, err, util.ErrForbidden)
		_, err = fx.svc.AcceptAnswer(q.ID, a1.ID, 99)
		require.ErrorIs(t, err, util.ErrForbidden)
	})

	t.Run("answer must belong to question", func(t *testing.T) {
		_, err := fx.svc.AcceptAnswer(q.ID, foreign.ID, 1)
		require.ErrorIs(t, err, util.ErrAnswerMismatch)
	})

	t.Run("missing answer", func(t *testing.T) {
		_, err := fx.svc.AcceptAnswer(q.ID, "ghost", 1)
		require.ErrorIs(t, err, util.ErrAnswerNotFound)
	})

	t.Run("accept then replace then no-op", func(t *testing.T) {
		got, err := fx.svc.AcceptAnswer(q.ID, a1.ID, 1)
		require.NoError(t, err)
		require.NotNil(t, got.AcceptedAnswerID)
		assert.Equal(t, a1.ID, *got.AcceptedAnswerID)

		// 换采纳直接覆盖
		got, err = fx.svc.AcceptAnswer(q.ID, a2.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, a2.ID, *got.AcceptedAnswerID)

		// 重复采纳同一回答是无操作
		got, err = fx.svc.AcceptAnswer(q.ID, a2.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, a2.ID, *got.AcceptedAnswerID)
	})
}

func TestDeleteAnswer_ClearsAcceptanceAndMembership(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "cleanup")
	author := &model.User{Name: "bob"}
	author.ID = 2

	a1, err := fx.svc.CreateAnswer(q.ID, author, "keep me")
	require.NoError(t, err)
	a2, err := fx.svc.CreateAnswer(q.ID, author, "delete me")
	require.NoError(t, err)

	_, err = fx.svc.AcceptAnswer(q.ID, a2.ID, 1)
	require.NoError(t, err)

	// 他人不可删除
	err = fx.svc.DeleteAnswer(a2.ID, 3, model.RoleUser)
	require.ErrorIs(t, err, util.ErrForbidden)

	// 回答作者可删除，且采纳状态一并清除
	err = fx.svc.DeleteAnswer(a2.ID, 2, model.RoleUser)
	require.NoError(t, err)

	parent := mustFind(t, fx.questions, q.ID)
	assert.Equal(t, model.StringList{a1.ID}, parent.AnswerIDs)
	assert.Nil(t, parent.AcceptedAnswerID)

	_, err = fx.answers.FindByID(a2.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteAnswer_UnacceptedLeavesAcceptance(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "partial cleanup")
	author := &model.User{Name: "bob"}
	author.ID = 2

	a1, err := fx.svc.CreateAnswer(q.ID, author, "accepted")
	require.NoError(t, err)
	a2, err := fx.svc.CreateAnswer(q.ID, author, "doomed")
	require.NoError(t, err)

	_, err = fx.svc.AcceptAnswer(q.ID, a1.ID, 1)
	require.NoError(t, err)

	err = fx.svc.DeleteAnswer(a2.ID, 1, model.RoleAdmin)
	require.NoError(t, err)

	parent := mustFind(t, fx.questions, q.ID)
	require.NotNil(t, parent.AcceptedAnswerID)
	assert.Equal(t, a1.ID, *parent.AcceptedAnswerID)
}

// ---- 审核 ----

func TestSetQuestionStatus(t *testing.T) {
	fx := newQAFixture(t)
	q := fx.seedQuestion(t, 1, "pending review")

	_, err := fx.svc.SetQuestionStatus(q.ID, model.QuestionStatus("published"))
	require.ErrorIs(t, err, util.ErrInvalidStatus)

	got, err := fx.svc.SetQuestionStatus(q.ID, model.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)
}

func TestGetQuestions_VisibilityAndFilters(t *testing.T) {
	fx := newQAFixture(t)
	approved := fx.seedQuestion(t, 1, "visible")
	hidden := fx.seedQuestion(t, 1, "hidden")
	_, err := fx.svc.SetQuestionStatus(hidden.ID, model.StatusPendingApproval)
	require.NoError(t, err)

	items, total, err := fx.svc.GetQuestions(1, 10, "", "", "", false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, approved.ID, items[0].ID)

	// 管理员看到全部
	_, total, err = fx.svc.GetQuestions(1, 10, "", "", "", true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
