package service

import (
	"qa_forum_backend/internal/model"
	"qa_forum_backend/internal/util"
)

// ApplyVote 对回答执行切换式投票，单次遍历完成，不产生中间非法状态。
// 同一用户重复同向投票视为取消；反向投票先摘除旧票再落新票，
// 因此任意时刻一个用户最多出现在一个投票集合中。
func ApplyVote(answer *model.Answer, userID uint, vote model.VoteType) error {
	switch vote {
	case model.VoteUp:
		answer.DownvoterIDs = answer.DownvoterIDs.Remove(userID)
		if answer.UpvoterIDs.Has(userID) {
			answer.UpvoterIDs = answer.UpvoterIDs.Remove(userID)
		} else {
			answer.UpvoterIDs = answer.UpvoterIDs.Add(userID)
		}
	case model.VoteDown:
		answer.UpvoterIDs = answer.UpvoterIDs.Remove(userID)
		if answer.DownvoterIDs.Has(userID) {
			answer.DownvoterIDs = answer.DownvoterIDs.Remove(userID)
		} else {
			answer.DownvoterIDs = answer.DownvoterIDs.Add(userID)
		}
	default:
		return util.ErrInvalidVoteType
	}
	return nil
}
