package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ParseIDParam reads a UUID path parameter, answering 400 when it is malformed.
func ParseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails("Invalid "+name+" format."))
		return uuid.Nil, false
	}
	return id, true
}
