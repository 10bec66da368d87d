package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cozi7266/aieng/internal/domain"
)

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidRequest, name)
	}
	return id, nil
}

// sessionRefFromPath reads :userId and :sessionId.
func sessionRefFromPath(c *gin.Context) (domain.SessionRef, error) {
	uid, err := parseID(c.Param("userId"), "userId")
	if err != nil {
		return domain.SessionRef{}, err
	}
	sid, err := parseID(c.Param("sessionId"), "sessionId")
	if err != nil {
		return domain.SessionRef{}, err
	}
	return domain.SessionRef{UserID: uid, SessionID: sid}, nil
}

func bindError(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
}
