package response

import "github.com/gin-gonic/gin"

// Response is the envelope of every JSON answer except the raw access decision.
type Response struct {
	Status     string      `json:"status"` // "success" or "error"
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func Success(statusCode int, data interface{}) Response {
	return Response{Status: "success", StatusCode: statusCode, Data: data}
}

func Error(statusCode int, err string) Response {
	return Response{Status: "error", StatusCode: statusCode, Error: err}
}

// Abort stops the handler chain with an error envelope.
func Abort(c *gin.Context, statusCode int, err string) {
	c.AbortWithStatusJSON(statusCode, Error(statusCode, err))
}
