package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/parksafe/parksafe/internal/config"
)

// CORSMiddleware allows the configured browser origins to call the API
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	})
}
