package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-service/pkg/apperr"
)

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Success writes {success:true, data:...} with the given status.
func Success(c *gin.Context, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, envelope{Success: true, Data: data})
}

// Fail resolves err to its failure kind and writes
// {success:false, error:{code,type,message,details}}.
func Fail(c *gin.Context, err error) {
	e := apperr.From(err)
	status := e.Status()
	if status >= http.StatusInternalServerError {
		if v, ok := c.Get("logger"); ok {
			if logger, ok := v.(*logrus.Logger); ok {
				logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
			}
		}
	}
	msg := e.Message
	if e.Type == apperr.TypeInternal {
		// Never leak internals to the client.
		msg = "internal server error"
	}
	c.JSON(status, envelope{Success: false, Error: &ErrorBody{
		Code:    status,
		Type:    string(e.Type),
		Message: msg,
		Details: e.Details,
	}})
}

// AbortFail is Fail for middleware: it also stops the handler chain.
func AbortFail(c *gin.Context, err error) {
	Fail(c, err)
	c.Abort()
}
