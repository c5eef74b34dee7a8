package liveclient

import (
	"errors"
	"testing"

	"qa_forum_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedState() *QuestionState {
	q := model.Question{
		Title:     "local copy",
		Tags:      model.StringList{"go"},
		AnswerIDs: model.StringList{"a-1", "a-2"},
		AuthorID:  1,
	}
	q.ID = "q-1"

	a1 := model.Answer{QuestionID: "q-1", UpvoterIDs: model.UserIDSet{5}, DownvoterIDs: model.UserIDSet{}}
	a1.ID = "a-1"
	a2 := model.Answer{QuestionID: "q-1", UpvoterIDs: model.UserIDSet{}, DownvoterIDs: model.UserIDSet{}}
	a2.ID = "a-2"

	return &QuestionState{Question: q, Answers: []model.Answer{a1, a2}}
}

func TestStore_ApplyCommitSuccessKeepsMutation(t *testing.T) {
	store := NewStore(seedState())

	err := store.Apply(func(s *QuestionState) error {
		s.Question.Title = "edited"
		return nil
	}, func() error { return nil })
	require.NoError(t, err)

	assert.Equal(t, "edited", store.State().Question.Title)
}

func TestStore_CommitFailureRollsBackSnapshot(t *testing.T) {
	store := NewStore(seedState())

	err := store.Apply(func(s *QuestionState) error {
		s.Question.Title = "speculative"
		s.Answers[0].UpvoterIDs = s.Answers[0].UpvoterIDs.Add(9)
		return nil
	}, func() error { return errors.New("server said no") })
	require.Error(t, err)

	state := store.State()
	assert.Equal(t, "local copy", state.Question.Title)
	assert.Equal(t, model.UserIDSet{5}, state.Answers[0].UpvoterIDs)
}

func TestStore_MutateFailureNeverCommits(t *testing.T) {
	store := NewStore(seedState())
	committed := false

	err := store.Apply(func(s *QuestionState) error {
		s.Question.Title = "half done"
		return errors.New("bad input")
	}, func() error {
		committed = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, committed)
	assert.Equal(t, "local copy", store.State().Question.Title)
}

func TestStore_OptimisticVoteMatchesServerSemantics(t *testing.T) {
	store := NewStore(seedState())

	// 本地预演与服务端共用同一切换逻辑
	require.NoError(t, store.OptimisticVote("a-2", 7, model.VoteUp, func() error { return nil }))
	assert.Equal(t, model.UserIDSet{7}, store.State().Answers[1].UpvoterIDs)

	require.NoError(t, store.OptimisticVote("a-2", 7, model.VoteUp, func() error { return nil }))
	assert.Empty(t, store.State().Answers[1].UpvoterIDs)

	err := store.OptimisticVote("ghost", 7, model.VoteUp, func() error { return nil })
	require.ErrorIs(t, err, ErrUnknownAnswer)
}

func TestStore_OptimisticVoteRollback(t *testing.T) {
	store := NewStore(seedState())

	err := store.OptimisticVote("a-1", 5, model.VoteDown, func() error {
		return errors.New("network")
	})
	require.Error(t, err)

	// 回滚后原投票原样恢复
	state := store.State()
	assert.Equal(t, model.UserIDSet{5}, state.Answers[0].UpvoterIDs)
	assert.Empty(t, state.Answers[0].DownvoterIDs)
}

func TestStore_OptimisticAccept(t *testing.T) {
	store := NewStore(seedState())

	require.NoError(t, store.OptimisticAccept("a-2", func() error { return nil }))
	state := store.State()
	require.NotNil(t, state.Question.AcceptedAnswerID)
	assert.Equal(t, "a-2", *state.Question.AcceptedAnswerID)

	err := store.OptimisticAccept("a-1", func() error { return errors.New("403") })
	require.Error(t, err)
	state = store.State()
	assert.Equal(t, "a-2", *state.Question.AcceptedAnswerID)
}

func TestQuestionState_CloneIsDeep(t *testing.T) {
	original := seedState()
	clone := original.Clone()

	clone.Question.Tags[0] = "rust"
	clone.Question.AnswerIDs = clone.Question.AnswerIDs.Without("a-1")
	clone.Answers[0].UpvoterIDs = clone.Answers[0].UpvoterIDs.Add(99)

	assert.Equal(t, model.StringList{"go"}, original.Question.Tags)
	assert.Equal(t, model.StringList{"a-1", "a-2"}, original.Question.AnswerIDs)
	assert.Equal(t, model.UserIDSet{5}, original.Answers[0].UpvoterIDs)
}
