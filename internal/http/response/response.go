package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cozi7266/aieng/internal/domain"
)

// GenericFailureMessage is the only failure text clients ever see for internal errors.
const GenericFailureMessage = "콘텐츠 생성 중 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondFailure maps a pipeline error onto the envelope. Invalid requests are 400 with their
// message; everything else is 500 with the generic message and a coarse code. The error itself
// is attached to the gin context for the request log.
func RespondFailure(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, domain.ErrInvalidRequest) {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorEnvelope{
		Error: APIError{
			Message: GenericFailureMessage,
			Code:    FailureCode(err),
		},
	})
}

func FailureCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidationExhausted):
		return "sentence_unavailable"
	case errors.Is(err, domain.ErrInsufficientContent):
		return "insufficient_content"
	case errors.Is(err, domain.ErrRenderTimeout):
		return "render_timeout"
	case errors.Is(err, domain.ErrSongGenerationFailed):
		return "song_failed"
	default:
		return "internal_error"
	}
}
