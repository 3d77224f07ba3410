package server

import (
	"net/http"

	"planning-poker/internal/poker"

	"github.com/gin-gonic/gin"
)

type roomQuery struct {
	ParticipantID string `form:"participant_id"`
}

type enterRoomRequest struct {
	Name     string `json:"name" binding:"required,name"`
	Observer bool   `json:"observer"`
}

type voteRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Value         string `json:"value" binding:"card"`
}

type storyRequest struct {
	Story string `json:"story" binding:"story"`
}

type leaveRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

type membershipResponse struct {
	RoomCode      string `json:"room_code"`
	ParticipantID string `json:"participant_id"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cards": poker.Deck})
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req enterRoomRequest
	if !bindJSON(c, &req, roomMessages) {
		return
	}
	code, participantID, err := s.poker.Create(c.Request.Context(), req.Name, req.Observer)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, membershipResponse{RoomCode: code, ParticipantID: participantID})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	var query roomQuery
	if !bindQuery(c, &query) {
		return
	}
	s.respondView(c, code, query.ParticipantID, http.StatusOK)
	if query.ParticipantID != "" && c.Writer.Status() == http.StatusOK {
		// A member polling the room is present even without a websocket.
		if err := s.poker.Touch(c.Request.Context(), code, query.ParticipantID); err != nil {
			s.log.Debugw("presence refresh failed", "room_code", code, "participant_id", query.ParticipantID, "error", err)
		}
	}
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	var req enterRoomRequest
	if !bindJSON(c, &req, roomMessages) {
		return
	}
	participantID, err := s.poker.Join(c.Request.Context(), code, req.Name, req.Observer)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, membershipResponse{
		RoomCode:      code,
		ParticipantID: participantID,
	})
}

func (s *Server) handleCastVote(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	var req voteRequest
	if !bindJSON(c, &req, voteMessages) {
		return
	}
	if err := s.poker.CastVote(c.Request.Context(), code, req.ParticipantID, req.Value); err != nil {
		s.writeError(c, err)
		return
	}
	s.respondView(c, code, req.ParticipantID, http.StatusOK)
}

func (s *Server) handleReveal(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	if err := s.poker.Reveal(c.Request.Context(), code); err != nil {
		s.writeError(c, err)
		return
	}
	s.respondView(c, code, "", http.StatusOK)
}

func (s *Server) handleReset(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	if err := s.poker.Reset(c.Request.Context(), code); err != nil {
		s.writeError(c, err)
		return
	}
	s.respondView(c, code, "", http.StatusOK)
}

func (s *Server) handleSetStory(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	var req storyRequest
	if !bindJSON(c, &req, storyMessages) {
		return
	}
	if err := s.poker.SetStory(c.Request.Context(), code, req.Story); err != nil {
		s.writeError(c, err)
		return
	}
	s.respondView(c, code, "", http.StatusOK)
}

func (s *Server) handleLeave(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	var req leaveRequest
	if !bindJSON(c, &req, leaveMessages) {
		return
	}
	if err := s.poker.Leave(c.Request.Context(), code, req.ParticipantID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondView answers with the room as selfID sees it right now.
func (s *Server) respondView(c *gin.Context, code, selfID string, status int) {
	room, err := s.poker.Check(c.Request.Context(), code)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(status, poker.ViewOf(room, selfID))
}
