package routes

import (
	"wallboard/internal/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterLiveRoutes(r *gin.Engine, path string, lc *controllers.LiveController) {
	r.GET(path, lc.HandleWebSocket)
}
