// Package httpapi exposes the catalog over HTTP for the upload client.
package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/imgvault/internal/logging"
	"github.com/dmitrijs2005/imgvault/internal/server/relay"
	"github.com/dmitrijs2005/imgvault/internal/server/services"
)

// Options carries everything the router needs.
type Options struct {
	Uploads *services.UploadService
	Catalog *services.CatalogService
	Folders *services.FolderService
	Dedup   *services.DedupService
	Relay   relay.Relay
	Log     logging.Logger

	// RateLimitRPS / RateLimitBurst throttle uploads per client address.
	RateLimitRPS   int
	RateLimitBurst int
}

type router struct {
	uploads *services.UploadService
	catalog *services.CatalogService
	folders *services.FolderService
	dedup   *services.DedupService
	relay   relay.Relay
	log     logging.Logger
}

// NewRouter builds the gin engine with all API routes registered.
func NewRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	engine.Use(cors.New(corsConfig))

	r := &router{
		uploads: opts.Uploads,
		catalog: opts.Catalog,
		folders: opts.Folders,
		dedup:   opts.Dedup,
		relay:   opts.Relay,
		log:     opts.Log,
	}

	limiter := newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst)

	api := engine.Group("/api")
	{
		api.POST("/upload", limiter.middleware(), r.upload)
		api.GET("/history", r.history)
		api.POST("/delete", r.deleteRecords)
		api.GET("/folders", r.listFolders)
		api.POST("/folders/rename", r.renameFolder)
		api.POST("/folders/delete", r.deleteFolder)
		api.POST("/folders/move", r.moveImages)
		api.POST("/folders/copy", r.copyImages)
		api.POST("/dedup", r.runDedup)
		// Relay refs contain slashes, so this one is a wildcard route.
		api.GET("/get_photo/*ref", r.getPhoto)
		api.GET("/stats", r.stats)
	}

	return engine
}
