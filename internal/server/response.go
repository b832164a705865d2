package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// envelope is the fixed response shape of every endpoint: the HTTP status
// code repeated in the body, a human message and an operation result.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

func respond(c *gin.Context, code int, message string, result any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(envelope{Code: code, Message: message, Result: result})
}

func respondOK(c *gin.Context, message string, result any) {
	respond(c, http.StatusOK, message, result)
}

func badRequest(c *gin.Context, message string, result any) {
	respond(c, http.StatusBadRequest, message, result)
}

func notFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, message, nil)
}

func internalError(c *gin.Context, message string, result any) {
	respond(c, http.StatusInternalServerError, message, result)
}

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}

// orNil maps empty strings to JSON null, matching the original status shape.
func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
