package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"productcatalog/internal/apperr"
)

type errorBody struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// renderErrors turns the last error a handler pushed with c.Error into the
// JSON envelope. Causes are logged, never sent.
func renderErrors(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		e := apperr.As(c.Errors.Last().Err)
		status := e.HTTPStatus()
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("route", c.FullPath()),
				zap.String("kind", e.Kind.String()),
				zap.Error(e))
		}
		c.JSON(status, errorBody{Message: e.Message, Fields: e.Fields})
	}
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		log.Error("panic", zap.String("path", c.Request.URL.Path), zap.Any("recovered", rec))
		_ = c.Error(fmt.Errorf("panic: %v", rec))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Message: "An unknown error occurred!"})
	})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorBody{Message: "Could not find this route."})
}

// fail records err for renderErrors and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
