// Package liveclient 是面向 Go 客户端的配套 SDK：
// 本地乐观更新、失败回滚，以及通知流的实时接收。
package liveclient

import (
	"sync"

	"qa_forum_backend/internal/model"
	"qa_forum_backend/internal/service"
)

// QuestionState 是问题及其回答在客户端的本地副本
type QuestionState struct {
	Question model.Question
	Answers  []model.Answer
}

// Clone 深拷贝，快照与在用状态互不共享底层切片
func (s *QuestionState) Clone() *QuestionState {
	if s == nil {
		return nil
	}
	out := &QuestionState{Question: s.Question}

	out.Question.Tags = append(model.StringList{}, s.Question.Tags...)
	out.Question.AnswerIDs = append(model.StringList{}, s.Question.AnswerIDs...)
	if s.Question.AcceptedAnswerID != nil {
		id := *s.Question.AcceptedAnswerID
		out.Question.AcceptedAnswerID = &id
	}

	out.Answers = make([]model.Answer, len(s.Answers))
	for i, a := range s.Answers {
		out.Answers[i] = a
		out.Answers[i].UpvoterIDs = append(model.UserIDSet{}, a.UpvoterIDs...)
		out.Answers[i].DownvoterIDs = append(model.UserIDSet{}, a.DownvoterIDs...)
	}
	return out
}

func (s *QuestionState) findAnswer(answerID string) *model.Answer {
	for i := range s.Answers {
		if s.Answers[i].ID == answerID {
			return &s.Answers[i]
		}
	}
	return nil
}

// Store 持有本地状态并执行乐观更新。
// Apply 先做本地变更再执行提交函数（通常是 HTTP 请求）；
// 提交失败时整体恢复到变更前的快照。回滚是全量覆盖，
// 提交期间发生的其他本地变更会一并丢弃。
type Store struct {
	mu    sync.Mutex
	state *QuestionState
}

func NewStore(initial *QuestionState) *Store {
	return &Store{state: initial.Clone()}
}

// State 返回当前状态的副本
func (st *Store) State() *QuestionState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Clone()
}

// Replace 用服务器返回的权威状态覆盖本地状态
func (st *Store) Replace(state *QuestionState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = state.Clone()
}

// Apply 乐观更新：mutate 失败则不提交；commit 失败则回滚快照
func (st *Store) Apply(mutate func(*QuestionState) error, commit func() error) error {
	st.mu.Lock()
	snapshot := st.state.Clone()
	if err := mutate(st.state); err != nil {
		st.state = snapshot
		st.mu.Unlock()
		return err
	}
	st.mu.Unlock()

	if err := commit(); err != nil {
		st.mu.Lock()
		st.state = snapshot
		st.mu.Unlock()
		return err
	}
	return nil
}

// OptimisticVote 本地预演投票。切换语义与服务端共用同一实现，
// 确认响应到达前界面已是最终形态。
func (st *Store) OptimisticVote(answerID string, userID uint, vote model.VoteType, commit func() error) error {
	return st.Apply(func(s *QuestionState) error {
		answer := s.findAnswer(answerID)
		if answer == nil {
			return ErrUnknownAnswer
		}
		return service.ApplyVote(answer, userID, vote)
	}, commit)
}

// OptimisticAccept 本地预演采纳
func (st *Store) OptimisticAccept(answerID string, commit func() error) error {
	return st.Apply(func(s *QuestionState) error {
		if s.findAnswer(answerID) == nil {
			return ErrUnknownAnswer
		}
		s.Question.AcceptedAnswerID = &answerID
		return nil
	}, commit)
}
