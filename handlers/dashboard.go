package handlers

import (
	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"

	"examwatch/templates"
)

func Dashboard(c *gin.Context) {
	component := templates.Dashboard()
	templ.Handler(component).ServeHTTP(c.Writer, c.Request)
}
