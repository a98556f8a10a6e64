package manager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// openAICompletionRequest is the payload for POST /v1/completions.
type openAICompletionRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature"`
	TopP        float32  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stream      bool     `json:"stream"`
}

// openAIStreamChoice covers both the completions (text) and chat (delta)
// streaming shapes.
type openAIStreamChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type openAIStreamResponse struct {
	Choices []openAIStreamChoice `json:"choices"`
}

// streamCompletion posts req to baseURL and forwards streamed fragments to
// onToken until [DONE], EOF, or onToken returns false.
func streamCompletion(ctx context.Context, client *http.Client, log zerolog.Logger, baseURL string, req CompletionRequest, onToken func(string) bool) (Completion, error) {
	body, err := json.Marshal(openAICompletionRequest{
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		TopK:        req.TopK,
		Stop:        req.Stop,
		Seed:        req.Seed,
		Stream:      true,
	})
	if err != nil {
		return Completion{}, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
		return Completion{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Completion{}, fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var (
		out strings.Builder
		fin Completion
	)
	r := bufio.NewReader(resp.Body)
	for {
		line, rerr := r.ReadString('\n')
		if l := strings.TrimSpace(line); l != "" && strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				break
			}
			var msg openAIStreamResponse
			if err := json.Unmarshal([]byte(data), &msg); err != nil || len(msg.Choices) == 0 {
				log.Debug().Str("event", "unknown_stream_line").Str("line", l).Msg("llama-server")
			} else {
				c := msg.Choices[0]
				frag := c.Text
				if frag == "" {
					frag = c.Delta.Content
				}
				if c.FinishReason != "" {
					fin.FinishReason = c.FinishReason
				}
				if frag != "" {
					out.WriteString(frag)
					fin.Tokens++
					if !onToken(frag) {
						fin.FinishReason = "callback"
						break
					}
				}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return fin, ctx.Err()
			}
			return fin, rerr
		}
	}
	if ctx.Err() != nil {
		return fin, ctx.Err()
	}
	fin.Text = out.String()
	return fin, nil
}
