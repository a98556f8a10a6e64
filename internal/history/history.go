package history

import (
	"context"
	"encoding/json"
	"fmt"

	"sage/internal/prompt"
	"sage/pkg/types"
)

// Key is the store key holding the transcript.
const Key = "chatHistory"

// Welcome is shown as the first assistant message of an empty transcript.
const Welcome = "Hi! I'm Sage, your personal AI assistant. I'm here to help you with anything you need - writing, planning, answering questions, or just chatting. What can I do for you today?"

// Record is one chat bubble.
type Record = types.ChatRecord

// Load returns the saved transcript, or nil when none is stored.
func Load(ctx context.Context, s Store) ([]Record, error) {
	raw, ok, err := s.Get(ctx, Key)
	if err != nil || !ok {
		return nil, err
	}
	var recs []Record
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", Key, err)
	}
	return recs, nil
}

// LoadOrWelcome is Load with a single welcome message in place of an empty
// transcript.
func LoadOrWelcome(ctx context.Context, s Store) ([]Record, error) {
	recs, err := Load(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return []Record{{Text: Welcome, IsUser: false}}, nil
	}
	return recs, nil
}

// Save replaces the transcript.
func Save(ctx context.Context, s Store, recs []Record) error {
	if recs == nil {
		recs = []Record{}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	return s.Set(ctx, Key, string(b))
}

// Append adds a user message and the assistant's reply.
func Append(ctx context.Context, s Store, userText, reply string) error {
	recs, err := LoadOrWelcome(ctx, s)
	if err != nil {
		return err
	}
	recs = append(recs, Record{Text: userText, IsUser: true}, Record{Text: reply, IsUser: false})
	return Save(ctx, s, recs)
}

// Clear removes the transcript.
func Clear(ctx context.Context, s Store) error {
	return s.Delete(ctx, Key)
}

// Turns converts the last n records into prompt turns.
func Turns(recs []Record, n int) []prompt.Turn {
	if n <= 0 {
		return nil
	}
	if len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	out := make([]prompt.Turn, len(recs))
	for i, r := range recs {
		role := prompt.RoleAssistant
		if r.IsUser {
			role = prompt.RoleUser
		}
		out[i] = prompt.Turn{Role: role, Content: r.Text}
	}
	return out
}
