package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// NoStore disables caching for dynamic endpoints.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// PublicCache allows short-lived shared caching, used for the display feed
// which many screens poll in lockstep.
func PublicCache(maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age="+strconv.Itoa(maxAgeSeconds))
		c.Next()
	}
}
