package util

import "errors"

var (
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAnswerNotFound     = errors.New("answer not found")
	ErrForbidden          = errors.New("permission denied")
	ErrInvalidVoteType    = errors.New("invalid vote type")
	ErrAnswerMismatch     = errors.New("answer does not belong to this question")
	ErrInvalidTags        = errors.New("tags must be 1-5 entries of at most 20 characters")
	ErrInvalidStatus      = errors.New("invalid question status")
	ErrCascadeIncomplete  = errors.New("cascade delete incomplete, cleanup required")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)
