package tool

import (
	"maps"

	"github.com/gin-gonic/gin"
)

func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

// FastReturnErrorKind adds a stable machine readable kind next to the message.
func FastReturnErrorKind(kind, msg string) gin.H {
	return gin.H{
		"error": msg,
		"kind":  kind,
	}
}

func FastReturnSuccess() gin.H {
	return gin.H{
		"status": "ok",
	}
}

func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"status": "ok",
		"data":   data,
	}
}

// FastReturnErrorWithData merges extra fields (summary, raw content) into an error body.
func FastReturnErrorWithData(kind, msg string, data map[string]any) gin.H {
	resp := FastReturnErrorKind(kind, msg)
	maps.Copy(resp, data)
	return resp
}
