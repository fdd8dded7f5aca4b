package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySession    = errors.New("llmclient: session has no messages")
	ErrUnknownRole     = errors.New("llmclient: unknown message role")
	ErrUnknownProvider = errors.New("llmclient: unknown provider")
)

// StreamClient is one upstream chat model that emits text incrementally.
type StreamClient interface {
	Name() string
	// StreamChat sends the session and calls onChunk for every text fragment
	// in the order the provider produced it. A non-nil error from onChunk
	// aborts the stream and is returned.
	StreamChat(ctx context.Context, s Session, onChunk func(chunk string) error) error
	Close() error
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant, RoleSystem:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

type Message struct {
	Role    Role
	Content string
}

// Session is one streaming exchange: the system instruction plus the
// conversation so far.
type Session struct {
	System   string
	Messages []Message
}

// SplitSystem folds system-role messages into the system instruction for
// providers that only accept user/assistant turns.
func SplitSystem(s Session) (string, []Message) {
	var sys strings.Builder
	sys.WriteString(s.System)
	turns := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role != RoleSystem {
			turns = append(turns, m)
			continue
		}
		if sys.Len() > 0 {
			sys.WriteString("\n\n")
		}
		sys.WriteString(m.Content)
	}
	return sys.String(), turns
}
