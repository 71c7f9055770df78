package handlers

import (
	jwtkit "github.com/PaulFidika/duekit/jwt"
	"github.com/gin-gonic/gin"
)

// HandleJWKSGET serves the public session keys.
func HandleJWKSGET(keys jwtkit.KeySource) gin.HandlerFunc {
	return func(c *gin.Context) {
		jwtkit.ServeJWKS(c.Writer, c.Request, jwtkit.PublicJWKS(keys))
	}
}
