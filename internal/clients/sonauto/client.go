package sonauto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"

	maxSongBytes = 64 << 20
)

type Config struct {
	APIKey  string
	BaseURL string
}

type GenerationRequest struct {
	Prompt   string   `json:"prompt,omitempty"`
	Lyrics   string   `json:"lyrics,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	NumSongs int      `json:"num_songs"`
}

type Generation struct {
	SongPaths []string `json:"song_paths"`
	Lyrics    string   `json:"lyrics"`
}

// Client is a thin wrapper over the music-generation REST API. Callers own the polling loop.
type Client interface {
	Submit(ctx context.Context, req GenerationRequest) (taskID string, err error)
	// Status returns the provider status string, e.g. SUCCESS, FAILURE or an in-progress phase.
	Status(ctx context.Context, taskID string) (string, error)
	Result(ctx context.Context, taskID string) (Generation, error)
	Download(ctx context.Context, songURL string) ([]byte, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("missing SONAUTO_API_KEY")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.sonauto.ai/v1"
	}
	return &client{
		log:        log.With("service", "SonautoClient"),
		baseURL:    base,
		apiKey:     key,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func (c *client) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	if req.NumSongs <= 0 {
		req.NumSongs = 1
	}
	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := httpx.DoJSON(ctx, c.httpClient, "sonauto", http.MethodPost, c.baseURL+"/generations", c.headers(), req, &out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", errors.New("sonauto: response has no task_id")
	}
	c.log.Debug("song generation submitted", "task_id", out.TaskID)
	return out.TaskID, nil
}

// Status tolerates both a bare JSON string and an object with a status field.
func (c *client) Status(ctx context.Context, taskID string) (string, error) {
	raw, _, err := httpx.Do(ctx, c.httpClient, "sonauto", http.MethodGet,
		c.baseURL+"/generations/status/"+url.PathEscape(taskID), c.headers(), nil)
	if err != nil {
		return "", err
	}
	return parseStatus(raw), nil
}

func parseStatus(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(s, "{"):
		var obj struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return ""
		}
		s = obj.Status
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal([]byte(s), &str); err != nil {
			return ""
		}
		s = str
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

func (c *client) Result(ctx context.Context, taskID string) (Generation, error) {
	var out Generation
	if err := httpx.DoJSON(ctx, c.httpClient, "sonauto", http.MethodGet,
		c.baseURL+"/generations/"+url.PathEscape(taskID), c.headers(), nil, &out); err != nil {
		return Generation{}, err
	}
	if len(out.SongPaths) == 0 || strings.TrimSpace(out.SongPaths[0]) == "" {
		return Generation{}, errors.New("sonauto: generation has no song_paths")
	}
	return out, nil
}

func (c *client) Download(ctx context.Context, songURL string) ([]byte, error) {
	raw, _, err := httpx.Download(ctx, c.httpClient, "sonauto", songURL, maxSongBytes)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
