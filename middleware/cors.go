// middleware/cors.go
package middleware

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware provides a Gin middleware function for handling Cross-Origin Resource Sharing.
// The allowed origin defaults to the local frontend dev server and can be
// overridden with FE_ORIGIN for deployments. Avoid "*" in production.
func CORSMiddleware() gin.HandlerFunc {
	origin := "http://localhost:3000"
	if env := os.Getenv("FE_ORIGIN"); env != "" {
		origin = env
	}

	return cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"POST", "OPTIONS", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "Accept", "Origin", "Cache-Control", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
