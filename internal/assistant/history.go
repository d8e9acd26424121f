// Package assistant forwards citizen chat prompts to a hosted LLM.
package assistant

import (
	"fmt"
	"strings"

	"civicconnect/internal/domain"
)

// ChatRole is the speaker of a history turn.
type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// Turn is one normalised history entry.
type Turn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// IncomingTurn is a history entry as clients send it. Older clients use sender
// ("user" or "bot") instead of role.
type IncomingTurn struct {
	Role   string `json:"role"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

func (t IncomingTurn) role() (ChatRole, bool) {
	for _, v := range []string{t.Role, t.Sender} {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "user":
			return RoleUser, true
		case "model", "bot", "assistant":
			return RoleModel, true
		}
	}
	return "", false
}

// NormalizeHistory converts client history into typed turns. Leading model turns are
// dropped because a conversation must open with the user. Unknown speakers and empty
// texts are rejected.
func NormalizeHistory(in []IncomingTurn) ([]Turn, error) {
	out := make([]Turn, 0, len(in))
	var errs []domain.FieldError

	for i, t := range in {
		role, ok := t.role()
		if !ok {
			errs = append(errs, domain.FieldError{Field: fieldName(i, "role"), Message: "must be user or model"})
			continue
		}
		if strings.TrimSpace(t.Text) == "" {
			errs = append(errs, domain.FieldError{Field: fieldName(i, "text"), Message: "is required"})
			continue
		}
		if len(out) == 0 && role == RoleModel {
			continue
		}
		out = append(out, Turn{Role: role, Text: t.Text})
	}

	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}
	return out, nil
}

func fieldName(i int, field string) string {
	return fmt.Sprintf("history[%d].%s", i, field)
}
