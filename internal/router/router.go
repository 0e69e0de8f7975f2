package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"cinehub/internal/auth"
	"cinehub/internal/config"
	"cinehub/internal/events"
	"cinehub/internal/handlers"
	"cinehub/internal/logger"
	"cinehub/internal/metrics"
	"cinehub/internal/middleware"
	"cinehub/internal/services"
	"cinehub/internal/store"
)

// authBurst is the bucket size of the strict limiter on sign-up and sign-in.
const authBurst = 20

// Deps is everything the HTTP layer is built from.
type Deps struct {
	Config  *config.Config
	Log     *logger.Logger
	Metrics *metrics.Metrics
	Store   store.Store
	Tokens  *auth.TokenIssuer
	Hub     *events.Hub

	Playlists *services.PlaylistService
	Forum     *services.ForumService
	Reviews   *services.ReviewService
	Users     *services.UserService
}

// New builds the engine with the middleware chain and every route.
func New(d Deps) (*gin.Engine, error) {
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	// Client IPs key the rate limiters; forwarded headers count only from
	// configured proxies.
	if err := r.SetTrustedProxies(d.Config.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS(d.Config.CORSOrigins))

	cookies := cookie.NewStore([]byte(d.Config.SessionSecret))
	cookies.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(d.Config.JWTTTL.Seconds()),
		HttpOnly: true,
		Secure:   d.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(middleware.SessionName, cookies))
	r.Use(middleware.Identity(d.Tokens))

	limiter, err := middleware.NewRateLimiter(d.Config.RateLimitRPS, d.Config.RateLimitBurst)
	if err != nil {
		return nil, err
	}
	r.Use(limiter.Middleware())

	if err := RegisterRoutes(r, d); err != nil {
		return nil, err
	}
	return r, nil
}

func RegisterRoutes(r *gin.Engine, d Deps) error {
	ids := handlers.Identities{TrustBodyUID: d.Config.TrustBodyUID}

	// Handlers
	playlistHandler := handlers.NewPlaylistHandler(d.Playlists, ids)
	playlistComments := handlers.NewCommentHandler(d.Playlists, ids)
	forumHandler := handlers.NewForumHandler(d.Forum, ids)
	threadComments := handlers.NewCommentHandler(d.Forum, ids)
	voteHandler := handlers.NewVoteHandler(d.Playlists, d.Forum, ids)
	reviewHandler := handlers.NewReviewHandler(d.Reviews)
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens)
	userHandler := handlers.NewUserHandler(d.Users)
	feedHandler := handlers.NewFeedHandler(d.Hub, d.Config.CORSOrigins)

	r.GET("/health", handlers.Health(d.Store))
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	r.GET("/ws", feedHandler.Stream)

	playlists := r.Group("/playlists")
	{
		playlists.GET("", playlistHandler.List)
		playlists.POST("", playlistHandler.Create)
		playlists.GET("/:id", playlistHandler.Get)
		playlists.PUT("/:id", playlistHandler.Update)
		playlists.DELETE("/:id", playlistHandler.Delete)
		playlists.POST("/:id/vote", voteHandler.Playlist)
		playlists.POST("/:id/movies", playlistHandler.AddMovie)
		playlists.DELETE("/:id/movies/:movieId", playlistHandler.RemoveMovie)

		playlists.GET("/:id/comments", playlistComments.List)
		playlists.POST("/:id/comments", playlistComments.Add)
		playlists.POST("/:id/comments/:commentId/vote", playlistComments.Upvote)
		playlists.DELETE("/:id/comments/:commentId", playlistComments.Delete)
	}

	forum := r.Group("/forum")
	{
		forum.GET("/movies", forumHandler.ListMovies)
		forum.POST("/movies", forumHandler.AddMovie)

		forum.GET("/threads", forumHandler.ListThreads)
		forum.POST("/threads", forumHandler.CreateThread)
		forum.GET("/threads/:id", forumHandler.GetThread)
		forum.DELETE("/threads/:id", forumHandler.DeleteThread)
		forum.POST("/threads/:id/vote", voteHandler.Thread)

		forum.GET("/threads/:id/comments", threadComments.List)
		forum.POST("/threads/:id/comments", threadComments.Add)
		forum.POST("/threads/:id/comments/:commentId/upvote", threadComments.Upvote)
		forum.DELETE("/threads/:id/comments/:commentId", threadComments.Delete)
	}

	r.GET("/reviews", reviewHandler.List)
	r.POST("/reviews", reviewHandler.Create)

	authLimiter, err := middleware.NewRateLimiter(d.Config.AuthRateLimitRPS, authBurst)
	if err != nil {
		return err
	}
	users := r.Group("/users")
	{
		users.POST("/register", authLimiter.Middleware(), authHandler.Register)
		users.POST("/auth", authLimiter.Middleware(), authHandler.Login)
		users.POST("/logout", authHandler.Logout)

		users.GET("/me", middleware.AuthRequired(), userHandler.Me)
		users.POST("", middleware.AuthRequired(), userHandler.Update)
	}
	return nil
}
