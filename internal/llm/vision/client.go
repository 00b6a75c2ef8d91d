// Package vision implements the llm.Completer contract against an
// OpenAI-compatible chat/completions endpoint, sending one text instruction
// plus one base64-encoded image per request.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type chatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// Complete sends the instruction and image to the backend and returns the
// first choice's text content.
func (c *Client) Complete(ctx context.Context, prompt, imagePath string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	dataURI, err := encodeImageToDataURI(imagePath)
	if err != nil {
		return "", fmt.Errorf("file error: %w", err)
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []message{{
			Role: "user",
			Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
				{Type: "text", Text: prompt},
			},
		}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.log.Info("vision.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"file", filepath.Base(imagePath),
		"content_length", len(bs),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("vision.send_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	defer func(b io.ReadCloser) {
		if cerr := b.Close(); cerr != nil {
			c.log.Warn("vision.body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	c.log.Info("vision.response",
		"req_id", rid,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("backend status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode backend response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in backend response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

// encodeImageToDataURI reads an image file and encodes it as a data URI the
// chat endpoint accepts.
func encodeImageToDataURI(path string) (string, error) {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("not a recognized image type: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
