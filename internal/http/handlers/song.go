package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/http/response"
	"github.com/cozi7266/aieng/internal/pkg/logger"
	"github.com/cozi7266/aieng/internal/services"
)

type SongHandler struct {
	log      *logger.Logger
	pipeline services.SongPipeline
	store    services.SessionStore
}

func NewSongHandler(log *logger.Logger, pipeline services.SongPipeline, store services.SessionStore) *SongHandler {
	return &SongHandler{
		log:      log.With("handler", "SongHandler"),
		pipeline: pipeline,
		store:    store,
	}
}

type songRequest struct {
	UserID    int64  `json:"userId" binding:"required,gt=0"`
	SessionID int64  `json:"sessionId" binding:"required,gt=0"`
	MoodName  string `json:"moodName"`
	VoiceName string `json:"voiceName"`
}

type songResponse struct {
	SongURL  string `json:"songUrl"`
	Title    string `json:"title"`
	LyricsEn string `json:"lyricsEn"`
	LyricsKo string `json:"lyricsKo"`
}

func toSongResponse(rec domain.SongRecord) songResponse {
	return songResponse{
		SongURL:  rec.SongURL,
		Title:    rec.Title,
		LyricsEn: rec.LyricsEn,
		LyricsKo: rec.LyricsKo,
	}
}

// POST /songs
// body: { "userId": 1, "sessionId": 1, "moodName": "happy", "voiceName": "female" }
func (h *SongHandler) Generate(c *gin.Context) {
	var req songRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFailure(c, bindError(err))
		return
	}
	rec, err := h.pipeline.Run(c.Request.Context(), services.SongRequest{
		Ref:   domain.SessionRef{UserID: req.UserID, SessionID: req.SessionID},
		Mood:  req.MoodName,
		Voice: req.VoiceName,
	})
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, toSongResponse(rec))
}

// GET /songs/:userId/:sessionId
func (h *SongHandler) Get(c *gin.Context) {
	ref, err := sessionRefFromPath(c)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	ctx := c.Request.Context()
	status, err := h.store.SongStatus(ctx, ref)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	song, err := h.store.Song(ctx, ref)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	out := gin.H{"status": status}
	if song != nil {
		out["song"] = toSongResponse(*song)
	}
	response.RespondOK(c, out)
}
