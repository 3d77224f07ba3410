package server

import (
	"errors"
	"net/http"

	"planning-poker/internal/poker"
	"planning-poker/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

type joinQuery struct {
	Room string `form:"room"`
}

func (s *Server) handleHome(c *gin.Context) {
	templ.Handler(web.Home()).ServeHTTP(c.Writer, c.Request)
}

// handleJoinView serves a shared room link. The room is looked up first so a
// missing or expired room is reported before the visitor types a name.
func (s *Server) handleJoinView(c *gin.Context) {
	var query joinQuery
	if !bindQuery(c, &query) {
		return
	}
	page := web.JoinPage{Code: poker.NormalizeCode(query.Room), Status: string(poker.StatusActive)}
	status := http.StatusOK
	if page.Code == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if _, err := s.poker.Check(c.Request.Context(), page.Code); err != nil {
		status, page.Message = statusFor(err)
		switch {
		case errors.Is(err, poker.ErrRoomExpired):
			page.Status = string(poker.StatusExpired)
			page.Message = "This room has expired. Ask the host to start a new one."
		case errors.Is(err, poker.ErrRoomNotFound):
			page.Status = string(poker.StatusGone)
			page.Message = "No room with this code exists. Check the code and try again."
		default:
			page.Status = "unavailable"
		}
	}
	templ.Handler(web.JoinView(page), templ.WithStatus(status)).ServeHTTP(c.Writer, c.Request)
}
