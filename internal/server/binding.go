package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"planning-poker/internal/poker"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindMessages maps a JSON field name and a failed validation tag to the
// message returned to the client.
type bindMessages map[string]map[string]string

type roomURI struct {
	Code string `uri:"code" binding:"required"`
}

// bindRoom reads the :code path parameter. Codes are case-insensitive, so
// the normalized form is returned.
func bindRoom(c *gin.Context) (string, bool) {
	var uri roomURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": poker.ErrRoomNotFound.Error()})
		return "", false
	}
	return poker.NormalizeCode(uri.Code), true
}

func bindJSON(c *gin.Context, req any, messages bindMessages) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": resolveBindError(err, messages)})
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return false
	}
	return true
}

func resolveBindError(err error, messages bindMessages) string {
	var (
		verrs     validator.ValidationErrors
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		return "request body is required"
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "request body must be valid JSON"
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return typeErr.Field + " has the wrong type"
		}
		return "request body must be a JSON object"
	case errors.As(err, &verrs):
		for _, verr := range verrs {
			if msg, ok := messages[verr.Field()][verr.Tag()]; ok {
				return msg
			}
		}
		if len(verrs) > 0 {
			return verrs[0].Field() + " is invalid"
		}
	}
	return "invalid request"
}
