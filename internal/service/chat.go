package service

import (
	"context"
	"strings"

	"sage/internal/generate"
	"sage/internal/history"
	"sage/internal/prompt"
	"sage/pkg/types"
)

// Chat answers req.Message, passing accepted text to onToken as it is
// produced. With UseSavedHistory the stored transcript supplies the history
// and the exchange is appended to it once the answer is complete.
func (s *Service) Chat(ctx context.Context, req types.ChatRequest, onToken func(string)) (types.StreamLine, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return types.StreamLine{}, BadRequest{Msg: "message is required"}
	}

	var turns []prompt.Turn
	if req.UseSavedHistory {
		recs, err := history.LoadOrWelcome(ctx, s.store)
		if err != nil {
			return types.StreamLine{}, err
		}
		turns = history.Turns(recs, s.cfg.HistoryTurns)
	} else {
		turns = make([]prompt.Turn, 0, len(req.History))
		for _, t := range req.History {
			turns = append(turns, prompt.Turn{Role: t.Role, Content: t.Content})
		}
	}

	res, err := s.driver.Run(ctx, generate.Request{
		Message:  msg,
		History:  turns,
		Progress: s.progress(nil),
	}, onToken)
	if err != nil {
		return types.StreamLine{}, err
	}
	if req.UseSavedHistory {
		s.histMu.Lock()
		err := history.Append(ctx, s.store, req.Message, res.Text)
		s.histMu.Unlock()
		if err != nil {
			s.log.Error().Str("event", "history_save_failed").Err(err).Msg("service")
		}
	}
	return types.StreamLine{Done: true, Content: res.Text, Cutoff: res.Cutoff}, nil
}

// History returns the saved transcript, starting with the welcome message
// when nothing has been saved.
func (s *Service) History(ctx context.Context) ([]types.ChatRecord, error) {
	return history.LoadOrWelcome(ctx, s.store)
}

// ClearHistory deletes the saved transcript.
func (s *Service) ClearHistory(ctx context.Context) error {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	return history.Clear(ctx, s.store)
}
