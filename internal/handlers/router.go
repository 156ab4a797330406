package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/middleware"
	"github.com/harentsoaR/testmanager-api/internal/respond"
)

type RouterOptions struct {
	DevMode     bool
	CORSOrigins []string
}

// NewRouter wires every route of the API onto a fresh gin engine.
func NewRouter(h *Handler, resolver *auth.Resolver, log logrus.FieldLogger, opts RouterOptions) *gin.Engine {
	respond.UseJSONFieldNames()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(respond.DevModeKey, opts.DevMode)
		c.Next()
	})
	r.Use(middleware.RequestLogger(log), middleware.Recovery(log))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/health", h.Health)

	authn := middleware.AuthMiddleware(resolver)
	admin := middleware.RequireAdmin()

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/login", h.Login)
		authRoutes.GET("/me", authn, h.Me)
		authRoutes.POST("/logout", authn, h.Logout)
		authRoutes.POST("/create-user", authn, admin, h.CreateUserAccount)
	}

	protected := api.Group("", authn)

	protected.POST("/admin/claims/:uid", admin, h.SetClaims)

	users := protected.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/me", h.GetCurrentUser)
		users.PUT("/me", h.UpdateCurrentUser)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
		users.PUT("/:id/password", h.ChangePassword)
	}

	clients := protected.Group("/clients")
	{
		clients.GET("", h.ListClients)
		clients.POST("", h.CreateClient)
		clients.GET("/stats", h.ClientStats)
		clients.GET("/:id", h.GetClient)
		clients.PATCH("/:id", h.UpdateClient)
		clients.DELETE("/:id", h.DeleteClient)
	}

	projects := protected.Group("/projects")
	{
		projects.GET("", h.ListProjects)
		projects.POST("", h.CreateProject)
		projects.GET("/stats", h.ProjectStats)
		projects.GET("/:projectId", h.GetProject)
		projects.PATCH("/:projectId", h.UpdateProject)
		projects.DELETE("/:projectId", h.DeleteProject)

		tests := projects.Group("/:projectId/tests")
		tests.GET("", h.ListTests)
		tests.POST("", h.CreateTest)
		tests.GET("/:testId", h.GetTest)
		tests.PATCH("/:testId", h.UpdateTest)
		tests.DELETE("/:testId", h.DeleteTest)

		evidence := tests.Group("/:testId/evidence")
		evidence.POST("", h.AddEvidence)
		evidence.DELETE("", h.RemoveEvidence)
		evidence.POST("/upload", h.UploadEvidence)
		evidence.GET("/file", h.DownloadEvidence)
	}

	r.NoRoute(h.NotFound)
	return r
}

// corsConfig allows every origin when none, or "*", is configured.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
