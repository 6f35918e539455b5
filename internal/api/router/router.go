package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/jpg-converter/internal/api/handlers/converter"
	"github.com/aliskhannn/jpg-converter/internal/middleware"
)

func Setup(h *converter.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/files", h.Upload)             // adding files to the queue
	api.GET("/files", h.List)                // listing the queue
	api.DELETE("/files", h.Clear)            // clearing the queue
	api.DELETE("/files/:id", h.Remove)       // removing one file
	api.GET("/files/:id/preview", h.Preview) // preview image of a file
	api.GET("/mode", h.GetMode)              // active mode
	api.PUT("/mode", h.SetMode)              // switching mode
	api.GET("/progress", h.Progress)         // export progress
	api.POST("/export", h.Export)            // converting and downloading the archive

	return r
}
