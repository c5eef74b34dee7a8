package model

// QuestionStatus 问题审核状态
type QuestionStatus string

const (
	StatusPendingApproval QuestionStatus = "pending_approval"
	StatusApproved        QuestionStatus = "approved"
	StatusRejected        QuestionStatus = "rejected"
)

// VoteType 投票类型，封闭枚举，其他取值一律拒绝
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// StringList 以 JSON 形式落库的有序字符串列表
type StringList []string

func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Without 返回删除指定元素后的新列表，保持原有顺序
func (l StringList) Without(s string) StringList {
	out := make(StringList, 0, len(l))
	for _, v := range l {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// IndexOf 元素位置，不存在返回 -1
func (l StringList) IndexOf(s string) int {
	for i, v := range l {
		if v == s {
			return i
		}
	}
	return -1
}

// UserIDSet 以 JSON 形式落库的用户 ID 集合，保持插入顺序
type UserIDSet []uint

func (s UserIDSet) Has(id uint) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add 幂等追加
func (s UserIDSet) Add(id uint) UserIDSet {
	if s.Has(id) {
		return s
	}
	return append(s, id)
}

func (s UserIDSet) Remove(id uint) UserIDSet {
	out := make(UserIDSet, 0, len(s))
	for _, v := range s {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type Question struct {
	UUIDBase
	Title   string     `gorm:"size:255;not null" json:"title"`
	Content string     `gorm:"type:text;not null" json:"content"`
	Tags    StringList `gorm:"serializer:json;type:varchar(512)" json:"tags"`
	// 管理员审核用，默认直接通过
	Status   QuestionStatus `gorm:"type:enum('pending_approval','approved','rejected');default:'approved'" json:"status"`
	AuthorID uint           `gorm:"index;type:bigint unsigned" json:"authorId"`
	Author   User           `gorm:"foreignKey:AuthorID" json:"author"`
	// AnswerIDs 是回答成员关系的权威列表，按创建顺序追加
	AnswerIDs        StringList `gorm:"serializer:json;type:text" json:"answerIds"`
	AcceptedAnswerID *string    `gorm:"type:varchar(36)" json:"acceptedAnswerId"`
}

func (Question) TableName() string {
	return "questions"
}

type Answer struct {
	UUIDBase
	// QuestionID 创建后不可变，是指向父问题的规范反向引用
	QuestionID   string    `gorm:"index;type:varchar(36);not null" json:"questionId"`
	AuthorID     uint      `gorm:"index;type:bigint unsigned" json:"authorId"`
	Author       User      `gorm:"foreignKey:AuthorID" json:"author"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	UpvoterIDs   UserIDSet `gorm:"serializer:json;type:text" json:"upvoterIds"`
	DownvoterIDs UserIDSet `gorm:"serializer:json;type:text" json:"downvoterIds"`
}

func (Answer) TableName() string {
	return "answers"
}

// Score 派生值，从不落库
func (a *Answer) Score() int {
	return len(a.UpvoterIDs) - len(a.DownvoterIDs)
}
