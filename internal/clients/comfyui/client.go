package comfyui

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

//go:embed default_workflow.json
var defaultWorkflow []byte

// ErrNoOutput is returned when polling ran out before the output node produced an image.
var ErrNoOutput = errors.New("comfyui produced no output image")

const maxImageBytes = 32 << 20

type Config struct {
	BaseURL      string
	WorkflowPath string
	PromptNode   string
	OutputNode   string
	PollAttempts int
	PollInterval time.Duration
}

// Client renders one prompt through a ComfyUI workflow graph.
type Client interface {
	Render(ctx context.Context, prompt string) ([]byte, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	workflow   map[string]json.RawMessage
	promptNode string
	outputNode string
	poll       httpx.PollPolicy
	httpClient *http.Client
	clientID   string
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing COMFYUI_BASE_URL")
	}
	raw := defaultWorkflow
	if p := strings.TrimSpace(cfg.WorkflowPath); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read workflow %s: %w", p, err)
		}
		raw = b
	}
	var wf map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	promptNode := firstNonEmpty(cfg.PromptNode, "33")
	outputNode := firstNonEmpty(cfg.OutputNode, "9")
	if _, ok := wf[promptNode]; !ok {
		return nil, fmt.Errorf("workflow has no prompt node %q", promptNode)
	}
	if _, ok := wf[outputNode]; !ok {
		return nil, fmt.Errorf("workflow has no output node %q", outputNode)
	}
	attempts := cfg.PollAttempts
	if attempts <= 0 {
		attempts = 300
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &client{
		log:        log.With("service", "ComfyUIClient"),
		baseURL:    base,
		workflow:   wf,
		promptNode: promptNode,
		outputNode: outputNode,
		poll:       httpx.PollPolicy{Initial: interval, Multiplier: 1, MaxAttempts: attempts},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		clientID:   uuid.NewString(),
	}, nil
}

func firstNonEmpty(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

type node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
	Meta      any            `json:"_meta,omitempty"`
}

// graph returns a copy of the workflow with the prompt node's text replaced.
func (c *client) graph(prompt string) (map[string]json.RawMessage, error) {
	var pn node
	if err := json.Unmarshal(c.workflow[c.promptNode], &pn); err != nil {
		return nil, fmt.Errorf("decode prompt node: %w", err)
	}
	if pn.Inputs == nil {
		pn.Inputs = map[string]any{}
	}
	pn.Inputs["text"] = prompt
	patched, err := json.Marshal(pn)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(c.workflow))
	for k, v := range c.workflow {
		out[k] = v
	}
	out[c.promptNode] = patched
	return out, nil
}

type promptRequest struct {
	Prompt   map[string]json.RawMessage `json:"prompt"`
	ClientID string                     `json:"client_id"`
}

type promptResponse struct {
	PromptID string `json:"prompt_id"`
}

type imageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type historyEntry struct {
	Outputs map[string]struct {
		Images []imageRef `json:"images"`
	} `json:"outputs"`
	Status struct {
		StatusStr string `json:"status_str"`
		Completed bool   `json:"completed"`
	} `json:"status"`
}

func (c *client) Render(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("comfyui: empty prompt")
	}
	g, err := c.graph(prompt)
	if err != nil {
		return nil, err
	}
	var submitted promptResponse
	if err := httpx.DoJSON(ctx, c.httpClient, "comfyui", http.MethodPost, c.baseURL+"/prompt", nil,
		promptRequest{Prompt: g, ClientID: c.clientID}, &submitted); err != nil {
		return nil, fmt.Errorf("comfyui submit: %w", err)
	}
	if submitted.PromptID == "" {
		return nil, errors.New("comfyui: response has no prompt_id")
	}
	c.log.Debug("comfyui prompt queued", "prompt_id", submitted.PromptID)

	var img imageRef
	err = httpx.Poll(ctx, c.poll, func(ctx context.Context, attempt int) (bool, error) {
		var hist map[string]historyEntry
		if err := httpx.DoJSON(ctx, c.httpClient, "comfyui", http.MethodGet,
			c.baseURL+"/history/"+url.PathEscape(submitted.PromptID), nil, nil, &hist); err != nil {
			return false, fmt.Errorf("comfyui history: %w", err)
		}
		entry, ok := hist[submitted.PromptID]
		if !ok {
			return false, nil
		}
		if entry.Status.StatusStr == "error" {
			return false, fmt.Errorf("comfyui prompt %s failed", submitted.PromptID)
		}
		out, ok := entry.Outputs[c.outputNode]
		if !ok || len(out.Images) == 0 {
			return false, nil
		}
		img = out.Images[0]
		return true, nil
	})
	if errors.Is(err, httpx.ErrPollExhausted) {
		return nil, fmt.Errorf("%w after %d polls", ErrNoOutput, c.poll.MaxAttempts)
	}
	if err != nil {
		return nil, err
	}
	if img.Filename == "" {
		return nil, errors.New("comfyui: output image has no filename")
	}

	q := url.Values{}
	q.Set("filename", img.Filename)
	q.Set("subfolder", img.Subfolder)
	q.Set("type", firstNonEmpty(img.Type, "output"))
	raw, _, err := httpx.Download(ctx, c.httpClient, "comfyui", c.baseURL+"/view?"+q.Encode(), maxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("comfyui view: %w", err)
	}
	c.log.Debug("comfyui image fetched", "prompt_id", submitted.PromptID, "bytes", len(raw))
	return raw, nil
}
