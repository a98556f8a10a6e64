package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sage/internal/generate"
	"sage/internal/rag"
	"sage/pkg/types"
)

// IngestDocument extracts text from data, indexes it in a new session and
// returns the session description. Partially extracted PDFs are indexed
// with a warning.
func (s *Service) IngestDocument(ctx context.Context, name, mimeType string, data []byte) (types.DocumentResponse, error) {
	text, err := rag.ExtractBytes(name, mimeType, data)
	warning := ""
	switch {
	case errors.Is(err, rag.ErrLimitedText):
		warning = err.Error()
	case err != nil:
		return types.DocumentResponse{}, BadRequest{Msg: err.Error()}
	}
	return s.ingest(ctx, name, text, warning)
}

// IngestText indexes text that is already extracted.
func (s *Service) IngestText(ctx context.Context, name, text string) (types.DocumentResponse, error) {
	return s.ingest(ctx, name, text, "")
}

func (s *Service) ingest(ctx context.Context, name, text, warning string) (types.DocumentResponse, error) {
	sess := rag.NewSession(s.embedder, s.cfg.ChunkSize)
	n, err := sess.Ingest(ctx, name, text)
	if errors.Is(err, rag.ErrEmptyDocument) {
		return types.DocumentResponse{}, BadRequest{Msg: err.Error()}
	}
	if err != nil {
		return types.DocumentResponse{}, err
	}
	s.docs.Put(sess)
	s.log.Info().Str("event", "document_ingested").Str("id", sess.ID).Str("name", name).Int("chunks", n).Msg("service")
	return types.DocumentResponse{ID: sess.ID, Name: name, Chunks: n, Warning: warning}, nil
}

// Documents lists open document sessions, oldest first.
func (s *Service) Documents() []types.DocumentResponse {
	list := s.docs.List()
	out := make([]types.DocumentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, types.DocumentResponse{ID: d.ID, Name: d.Name, Chunks: d.Index.Len()})
	}
	return out
}

// CloseDocument drops a session.
func (s *Service) CloseDocument(id string) error {
	if !s.docs.Delete(id) {
		return NotFound{ID: id}
	}
	return nil
}

// MaxAskPassages bounds AskRequest.Passages.
const MaxAskPassages = 8

// Ask answers req.Question using the best matching chunks of document id as
// context, joined best first. The final line carries the context that was
// used.
func (s *Service) Ask(ctx context.Context, id string, req types.AskRequest, onToken func(string)) (types.StreamLine, error) {
	sess, ok := s.docs.Get(id)
	if !ok {
		return types.StreamLine{}, NotFound{ID: id}
	}
	q := strings.TrimSpace(req.Question)
	if q == "" {
		return types.StreamLine{}, BadRequest{Msg: "question is required"}
	}
	if req.Passages < 0 || req.Passages > MaxAskPassages {
		return types.StreamLine{}, BadRequest{Msg: fmt.Sprintf("passages must be between 0 and %d", MaxAskPassages)}
	}
	matches, err := sess.Passages(ctx, q, req.Passages)
	if err != nil {
		return types.StreamLine{}, err
	}
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
		s.log.Debug().Str("event", "retrieved").Str("id", id).Float64("score", m.Score).Msg("service")
	}
	passage := strings.Join(texts, "\n\n")
	res, err := s.driver.Run(ctx, generate.Request{
		Message:  q,
		Passage:  passage,
		Progress: s.progress(nil),
	}, onToken)
	if err != nil {
		return types.StreamLine{}, err
	}
	return types.StreamLine{Done: true, Content: res.Text, Passage: passage, Cutoff: res.Cutoff}, nil
}
