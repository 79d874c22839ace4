package routes

import (
	"wallboard/internal/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterDashboardRoutes(r *gin.Engine, dc *controllers.DashboardController) {
	r.GET("/", dc.Show)
	r.HEAD("/", dc.Show)
	r.GET("/index.html", dc.Show)
	r.HEAD("/index.html", dc.Show)
}
