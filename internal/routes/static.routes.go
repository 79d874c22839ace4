package routes

import (
	"wallboard/internal/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterStaticRoutes sends every unrouted path to the file server
func RegisterStaticRoutes(r *gin.Engine, root string, listDirectories bool) {
	r.NoRoute(controllers.StaticFallback(root, listDirectories))
}
