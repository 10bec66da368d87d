package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/clients/redis"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/http/response"
	"github.com/cozi7266/aieng/internal/pkg/logger"
	"github.com/cozi7266/aieng/internal/services"
)

const maxDebugKeys = 500

type DebugHandlerDeps struct {
	Log    *logger.Logger
	Cache  redis.Cache
	Store  services.SessionStore
	Bucket gcp.BucketService
	// Catalog is nil when no database is configured.
	Catalog services.WordCatalog
}

// DebugHandler exposes cache, storage and catalog contents for operators.
type DebugHandler struct {
	log  *logger.Logger
	deps DebugHandlerDeps
}

func NewDebugHandler(deps DebugHandlerDeps) *DebugHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &DebugHandler{log: log.With("handler", "DebugHandler"), deps: deps}
}

func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxDebugKeys {
		return maxDebugKeys
	}
	return n
}

// GET /internal/debug/redis?pattern=Learning:*
func (h *DebugHandler) RedisKeys(c *gin.Context) {
	pattern := strings.TrimSpace(c.DefaultQuery("pattern", "*"))
	keys, err := h.deps.Cache.Keys(c.Request.Context(), pattern)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	total := len(keys)
	if limit := queryLimit(c, maxDebugKeys); len(keys) > limit {
		keys = keys[:limit]
	}
	response.RespondOK(c, gin.H{"pattern": pattern, "total": total, "keys": keys})
}

// GET /internal/debug/redis/user?userId=1&sessionId=2
// Without sessionId every cached Learning Record of the user is returned raw.
func (h *DebugHandler) RedisUser(c *gin.Context) {
	ctx := c.Request.Context()
	uid, err := parseID(c.Query("userId"), "userId")
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	if strings.TrimSpace(c.Query("sessionId")) == "" {
		keys, err := h.deps.Cache.Keys(ctx, services.LearningUserPattern(uid))
		if err != nil {
			response.RespondFailure(c, err)
			return
		}
		values := make(map[string]json.RawMessage, len(keys))
		for _, k := range keys {
			raw, ok, err := h.deps.Cache.Get(ctx, k)
			if errors.Is(err, redis.ErrWrongType) {
				continue
			}
			if err != nil {
				response.RespondFailure(c, err)
				return
			}
			if ok && json.Valid(raw) {
				values[k] = raw
			}
		}
		response.RespondOK(c, gin.H{"userId": uid, "records": values})
		return
	}
	sid, err := parseID(c.Query("sessionId"), "sessionId")
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	ref := domain.SessionRef{UserID: uid, SessionID: sid}
	records, err := h.deps.Store.Records(ctx, ref)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	song, err := h.deps.Store.Song(ctx, ref)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	status, err := h.deps.Store.SongStatus(ctx, ref)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"userId":     uid,
		"sessionId":  sid,
		"records":    records,
		"song":       song,
		"songStatus": status,
	})
}

// GET /internal/debug/storage?prefix=images/&limit=100
func (h *DebugHandler) Storage(c *gin.Context) {
	if h.deps.Bucket == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "storage_disabled", errors.New("object storage not configured"))
		return
	}
	prefix := c.Query("prefix")
	keys, err := h.deps.Bucket.ListKeys(c.Request.Context(), prefix, queryLimit(c, 100))
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prefix": prefix, "keys": keys})
}

// GET /internal/debug/db?limit=50
func (h *DebugHandler) Database(c *gin.Context) {
	if h.deps.Catalog == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "database_disabled", errors.New("database not configured"))
		return
	}
	words, err := h.deps.Catalog.Recent(c.Request.Context(), queryLimit(c, 50))
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, gin.H{"words": words})
}
