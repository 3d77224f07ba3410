package server

import (
	"errors"
	"net/http"

	"planning-poker/internal/poker"

	"github.com/gin-gonic/gin"
)

const retryMessage = "connection problem, please retry"

// statusFor maps service errors onto HTTP statuses and user-facing messages.
// Expired and missing rooms stay distinguishable to the client.
func statusFor(err error) (int, string) {
	var verr *poker.ValidationError
	var serr *poker.SyncError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, poker.ErrRoomExpired):
		return http.StatusGone, "this room has expired"
	case errors.Is(err, poker.ErrRoomNotFound):
		return http.StatusNotFound, "room not found"
	case errors.Is(err, poker.ErrParticipantNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, poker.ErrInvalidCard):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, poker.ErrObserverVote), errors.Is(err, poker.ErrVotingClosed):
		return http.StatusConflict, err.Error()
	case errors.As(err, &serr):
		return http.StatusServiceUnavailable, retryMessage
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.FullPath(), "room_code", c.Param("code"), "error", err)
	}
	c.JSON(status, gin.H{"error": message})
}
