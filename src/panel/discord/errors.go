package discord

import (
	"errors"
	"strings"
)

var (
	// ErrNotConnected means no live gateway handle exists for the identity.
	ErrNotConnected = errors.New("bot not connected")
	// ErrAuthFailure wraps a token rejected by Discord.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrTargetNotFound means the channel or user could not be resolved.
	ErrTargetNotFound = errors.New("target not found")
	// ErrInvalidTarget means the target type is neither channel nor user.
	// Rejected before any external call.
	ErrInvalidTarget = errors.New("invalid target type")
	// ErrGuildNotFound means the bot has no membership for the guild.
	ErrGuildNotFound = errors.New("guild not found")
	// ErrSendRejected means Discord refused the outbound message.
	ErrSendRejected = errors.New("send rejected")
	// ErrInvalidActivityKind means the custom-status activity type is not
	// one of the five recognized kinds.
	ErrInvalidActivityKind = errors.New("invalid activity type")
)

// IsRateLimit reports whether an SDK error is a Discord rate limit.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}
