package handlers

import (
	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"

	"examwatch/templates"
)

func Join(c *gin.Context) {
	component := templates.Join()
	templ.Handler(component).ServeHTTP(c.Writer, c.Request)
}
