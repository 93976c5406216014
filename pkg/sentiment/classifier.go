package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Classifier maps message text to a political/sentiment verdict.
type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

const systemPrompt = "You are an assistant that classifies political messages and analyzes their sentiment."

const promptTemplate = `Classify the following message. Respond with one of the following options:
- If the message is political, respond with: 'Political: Sentiment: [score]' where score is between -10 (very negative) and 10 (very positive).
- If the message is not political, respond with: 'Not Political'.

Message: %q`

// ChatClassifierConfig holds configuration for the chat-completions classifier.
type ChatClassifierConfig struct {
	// BaseURL is the chat-completions endpoint, e.g.
	// "https://api.openai.com/v1/chat/completions".
	BaseURL string
	// APIKey is the bearer token. Required.
	APIKey string
	// Model is the model identifier sent with each request.
	Model string
	// Timeout bounds a single classification call.
	Timeout time.Duration
}

// NewChatClassifierDefaults provides a config with sensible defaults; the API
// key must still be supplied.
func NewChatClassifierDefaults() *ChatClassifierConfig {
	return &ChatClassifierConfig{
		BaseURL: "https://api.openai.com/v1/chat/completions",
		Model:   "gpt-4",
		Timeout: 60 * time.Second,
	}
}

// ChatClassifier calls an OpenAI-style chat-completions API and interprets the
// reply according to the Political/Not Political contract pinned by the prompt.
type ChatClassifier struct {
	cfg    ChatClassifierConfig
	client *http.Client
	logger zerolog.Logger
}

// NewChatClassifier validates the config and returns a ready classifier.
func NewChatClassifier(cfg *ChatClassifierConfig, logger zerolog.Logger) (*ChatClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("classifier base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ChatClassifier{
		cfg:    *cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "ChatClassifier").Logger(),
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends the text to the language model and parses its reply. Empty
// text short-circuits to the neutral verdict without an API call. Transport
// and API errors return the neutral verdict together with the error so callers
// can decide whether to log-and-absorb or propagate.
func (c *ChatClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	if text == "" {
		return Neutral(), nil
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, text)},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Neutral(), fmt.Errorf("marshal classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Neutral(), fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Neutral(), fmt.Errorf("classifier call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Neutral(), fmt.Errorf("classifier API returned status %d", resp.StatusCode)
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Neutral(), fmt.Errorf("decode classifier response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return Neutral(), fmt.Errorf("classifier returned no choices")
	}

	verdict := ParseReply(apiResp.Choices[0].Message.Content)
	c.logger.Debug().Bool("is_political", verdict.IsPolitical).Int("score", verdict.Score).Msg("Message classified.")
	return verdict, nil
}

// ParseReply interprets a model reply under the prompt's contract: a reply
// beginning with "Political" carries a score after a "Sentiment:" marker; any
// other reply, and any reply that cannot be parsed, is the neutral verdict.
func ParseReply(reply string) Verdict {
	reply = strings.TrimSpace(reply)
	if !strings.HasPrefix(strings.ToLower(reply), "political") {
		return Neutral()
	}

	_, after, found := strings.Cut(reply, "Sentiment:")
	if !found {
		return Neutral()
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return Neutral()
	}
	// The token must be a bare integer; decorated scores like "[5]" are
	// unparseable and fall back to neutral.
	score, err := strconv.Atoi(fields[0])
	if err != nil {
		return Neutral()
	}
	return Verdict{IsPolitical: true, Score: score}
}
