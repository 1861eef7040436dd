package server

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
)

type errorBody struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError writes err as JSON with the status its AppError code maps to.
// Internal causes are not echoed to the client.
func respondError(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	msg := "internal server error"

	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.Code != common.CodeInternal {
		msg = appErr.Message
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody{
		Code:      common.ErrorCode(err),
		Error:     msg,
		RequestID: GetRequestID(c),
	})
}
