package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"examwatch/report"
	"examwatch/templates"
)

// Report builds the exam report from the transition log on every
// request. A missing log is an explicit no-data page, not an error.
func Report(logPath string, opts report.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := report.BuildFromFile(logPath, opts)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				templ.Handler(templates.NoData()).ServeHTTP(c.Writer, c.Request)
				return
			}
			log.Error().Err(err).Str("path", logPath).Msg("failed to read transition log")
			c.String(http.StatusInternalServerError, "report unavailable")
			return
		}

		if len(rep.Students) == 0 {
			templ.Handler(templates.NoData()).ServeHTTP(c.Writer, c.Request)
			return
		}

		templ.Handler(templates.ReportPage(rep)).ServeHTTP(c.Writer, c.Request)
	}
}
