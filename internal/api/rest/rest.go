package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/isrcanalytics/streamledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// Everything under /api/v1 is tenant-scoped and authenticated
	v1 := router.Group("/api/v1", middleware.Auth(authCfg))
	{
		// Stream delta endpoints
		v1.GET("/streams/total-daily", handler.GetTotalsDaily)
		v1.GET("/streams/top-deltas", handler.GetTopDeltas)
		v1.GET("/streams/dates", handler.GetSnapshotDates)
		v1.GET("/streams/tracks/:id/series", handler.GetTrackSeries)

		// Playlist follower endpoints
		v1.GET("/playlists", handler.ListPlaylists)
		v1.POST("/playlists", handler.CreatePlaylist)
		v1.GET("/playlists/:id/series", handler.GetPlaylistSeries)
		v1.POST("/playlists/total-series", handler.GetTotalFollowerSeries)

		// Catalogue endpoints
		v1.GET("/catalogue/size-series", handler.GetCatalogueSizeSeries)
		v1.GET("/catalogue/health-heatmap", handler.GetHealthHeatmap)
		v1.GET("/catalogue/tracks", handler.ListTracks)
		v1.POST("/catalogue/tracks", handler.CreateTrack)
		v1.PUT("/catalogue/tracks/:id", handler.UpdateTrack)
		v1.DELETE("/catalogue/tracks/:id", handler.DeleteTrack)

		// Artist aggregation endpoints
		v1.GET("/artists/top-share", handler.GetTopArtistShare)

		// Reconciliation transparency endpoints
		v1.GET("/reconciliation/lag-credits", handler.GetLagCredits)
		v1.GET("/reconciliation/conservation", handler.GetConservation)
	}
}
