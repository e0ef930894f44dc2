package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/infopanel-api/pkg/config"
)

const (
	allowHeaders = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods = "GET, POST, DELETE, OPTIONS"
)

// New returns a CORS middleware for the infopanel displays and admin UI.
// An empty origin list allows every origin.
func New(cfg config.CORSConfig) gin.HandlerFunc {
	allowAll := len(cfg.AllowedOrigins) == 0
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		origins[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && (allowAll || allowed(origins, origin)):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		case origin == "" && allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		h := c.Writer.Header()
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func allowed(origins map[string]struct{}, origin string) bool {
	_, ok := origins[strings.TrimRight(origin, "/")]
	return ok
}
