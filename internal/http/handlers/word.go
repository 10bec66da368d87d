package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/http/response"
	"github.com/cozi7266/aieng/internal/pkg/logger"
	"github.com/cozi7266/aieng/internal/services"
)

type WordHandler struct {
	log      *logger.Logger
	pipeline services.WordPipeline
	store    services.SessionStore
}

func NewWordHandler(log *logger.Logger, pipeline services.WordPipeline, store services.SessionStore) *WordHandler {
	return &WordHandler{
		log:      log.With("handler", "WordHandler"),
		pipeline: pipeline,
		store:    store,
	}
}

type wordRequest struct {
	UserID      int64  `json:"userId" binding:"required,gt=0"`
	SessionID   int64  `json:"sessionId" binding:"required,gt=0"`
	WordEn      string `json:"wordEn" binding:"required"`
	Theme       string `json:"theme"`
	VoiceGender string `json:"voiceGender"`
	VoiceURL    string `json:"voiceUrl"`
}

type wordResponse struct {
	WordEn      string `json:"wordEn"`
	Sentence    string `json:"sentence"`
	Translation string `json:"translation"`
	ImagePrompt string `json:"imagePrompt"`
	ImageURL    string `json:"imageUrl"`
	AudioURL    string `json:"audioUrl"`
	Seq         int64  `json:"seq,omitempty"`
}

func toWordResponse(rec domain.LearningRecord) wordResponse {
	return wordResponse{
		WordEn:      rec.Word,
		Sentence:    rec.Sentence,
		Translation: rec.Translation,
		ImagePrompt: rec.ImagePrompt,
		ImageURL:    rec.ImageURL,
		AudioURL:    rec.AudioURL,
		Seq:         rec.Seq,
	}
}

// POST /words
// body: { "userId": 1, "sessionId": 1, "wordEn": "apple", "theme": "fruit", "voiceGender": "FEMALE", "voiceUrl": "" }
func (h *WordHandler) Generate(c *gin.Context) {
	var req wordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFailure(c, bindError(err))
		return
	}
	voice, err := domain.NewVoiceSpec(req.VoiceGender, req.VoiceURL)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	rec, err := h.pipeline.Run(c.Request.Context(), services.WordRequest{
		Ref:   domain.SessionRef{UserID: req.UserID, SessionID: req.SessionID},
		Word:  req.WordEn,
		Theme: req.Theme,
		Voice: voice,
	})
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, toWordResponse(rec))
}

// GET /words/:userId/:sessionId
func (h *WordHandler) List(c *gin.Context) {
	ref, err := sessionRefFromPath(c)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	records, err := h.store.Records(c.Request.Context(), ref)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	words := make([]wordResponse, 0, len(records))
	for _, r := range records {
		words = append(words, toWordResponse(r))
	}
	response.RespondOK(c, gin.H{
		"userId":    ref.UserID,
		"sessionId": ref.SessionID,
		"words":     words,
	})
}
