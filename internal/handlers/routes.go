package handlers

import (
	"github.com/gin-gonic/gin"
)

// RouteMiddleware is the per-route middleware the router needs. Nil entries
// are skipped.
type RouteMiddleware struct {
	RequireAuth  gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	AuthLimit    gin.HandlerFunc
	UploadLimit  gin.HandlerFunc
	SearchCache  gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// RegisterRoutes mounts the /api/v1 routes and /health on router
func (h *Handlers) RegisterRoutes(router *gin.Engine, mw RouteMiddleware) {
	router.GET("/health", h.Health)

	api := router.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", chain(mw.AuthLimit, h.Register)...)
		authGroup.POST("/login", chain(mw.AuthLimit, h.Login)...)
		authGroup.GET("/confirm", chain(mw.AuthLimit, h.ConfirmEmail)...)
		authGroup.POST("/logout", chain(mw.RequireAuth, h.Logout)...)
		authGroup.PUT("/password", chain(mw.AuthLimit, mw.RequireAuth, h.ChangePassword)...)
		authGroup.GET("/me", chain(mw.RequireAuth, h.Me)...)
	}

	api.GET("/feed", chain(mw.OptionalAuth, h.GetFeed)...)

	posts := api.Group("/posts")
	{
		posts.POST("", chain(mw.RequireAuth, mw.UploadLimit, h.CreatePost)...)
		posts.GET("/:id", chain(mw.OptionalAuth, h.GetPost)...)
		posts.DELETE("/:id", chain(mw.RequireAuth, h.DeletePost)...)
		posts.POST("/:id/like", chain(mw.RequireAuth, h.ToggleLike)...)
		posts.GET("/:id/comments", h.ListComments)
		posts.POST("/:id/comments", chain(mw.RequireAuth, h.CreateComment)...)
	}

	api.DELETE("/comments/:id", chain(mw.RequireAuth, h.DeleteComment)...)

	storyGroup := api.Group("/stories")
	{
		storyGroup.GET("", chain(mw.OptionalAuth, h.GetStories)...)
		storyGroup.POST("", chain(mw.RequireAuth, mw.UploadLimit, h.CreateStory)...)
		storyGroup.POST("/:id/view", chain(mw.RequireAuth, h.ViewStory)...)
		storyGroup.DELETE("/:id", chain(mw.RequireAuth, h.DeleteStory)...)
	}

	users := api.Group("/users")
	{
		users.GET("/suggestions", chain(mw.RequireAuth, h.GetSuggestions)...)
		users.PUT("/me", chain(mw.RequireAuth, h.UpdateMe)...)
		users.POST("/me/avatar", chain(mw.RequireAuth, mw.UploadLimit, h.UploadAvatar)...)
		users.GET("/by-username/:username", chain(mw.OptionalAuth, h.GetUserByUsername)...)
		users.GET("/:id", chain(mw.OptionalAuth, h.GetUser)...)
		users.GET("/:id/posts", chain(mw.OptionalAuth, h.GetUserPosts)...)
		users.GET("/:id/followers", h.GetFollowers)
		users.GET("/:id/following", h.GetFollowing)
		users.POST("/:id/follow", chain(mw.RequireAuth, h.ToggleFollow)...)
	}

	notifications := api.Group("/notifications", chain(mw.RequireAuth)...)
	{
		notifications.GET("", h.GetNotifications)
		notifications.POST("/read-all", h.MarkAllNotificationsRead)
		notifications.POST("/:id/read", h.MarkNotificationRead)
	}

	api.GET("/search", chain(mw.OptionalAuth, mw.SearchCache, h.Search)...)

	if h.wsHandler != nil {
		api.GET("/ws", h.wsHandler.HandleWebSocket)
	}
}
