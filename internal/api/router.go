package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/recipeclip/internal/api/handler"
	"github.com/timmy/recipeclip/internal/api/middleware"
	"github.com/timmy/recipeclip/internal/auth"
	"github.com/timmy/recipeclip/internal/config"
	"github.com/timmy/recipeclip/internal/service"
)

// Services bundles the application services exposed over HTTP.
type Services struct {
	Discovery *service.DiscoveryService
	Accounts  *service.AccountService
	Recipes   *service.RecipeService
	Admin     *service.AdminService
	Importer  *service.ImportService
	Sources   handler.SourceResolver
	Checks    map[string]handler.Check
	Tokens    *auth.TokenManager
	Gatherer  prometheus.Gatherer
}

// SetupRouter configures the Gin router with all routes.
// Parameters:
//   - svc: services backing the handlers.
//   - cfg: server settings (mode, CORS, upload limit).
// Returns:
//   - *gin.Engine: configured router.
func SetupRouter(svc *Services, cfg *config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	maxUpload := cfg.MaxUploadMB << 20
	r.MaxMultipartMemory = 32 << 20

	healthHandler := handler.NewHealthHandler(svc.Checks)
	discoveryHandler := handler.NewDiscoveryHandler(svc.Discovery)
	accountHandler := handler.NewAccountHandler(svc.Accounts)
	recipeHandler := handler.NewRecipeHandler(svc.Recipes)
	adminHandler := handler.NewAdminHandler(svc.Admin)
	importHandler := handler.NewImportHandler(svc.Importer, svc.Sources)

	requireAuth := middleware.RequireAuth(svc.Tokens)
	optionalAuth := middleware.OptionalAuth(svc.Tokens)
	uploadLimit := middleware.BodyLimit(maxUpload)

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	if svc.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	{
		// Discovery
		v1.GET("/discover", optionalAuth, discoveryHandler.Browse)
		v1.GET("/search", optionalAuth, discoveryHandler.Search)
		v1.GET("/suggestions", discoveryHandler.Suggestions)

		// Accounts
		v1.POST("/auth/register", uploadLimit, accountHandler.Register)
		v1.POST("/auth/login", accountHandler.Login)

		me := v1.Group("/me", requireAuth)
		me.GET("", accountHandler.Me)
		me.PUT("", uploadLimit, accountHandler.UpdateMe)
		me.POST("/password", accountHandler.ChangePassword)

		// Recipes
		v1.GET("/recipes/:id", optionalAuth, recipeHandler.Get)
		v1.GET("/recipes/:id/comments", recipeHandler.ListComments)
		v1.POST("/recipes/:id/view", recipeHandler.RecordView)

		recipes := v1.Group("/recipes", requireAuth)
		recipes.POST("", uploadLimit, recipeHandler.Create)
		recipes.PUT("/:id", uploadLimit, recipeHandler.Update)
		recipes.DELETE("/:id", recipeHandler.Delete)
		recipes.POST("/:id/like", recipeHandler.ToggleLike)
		recipes.POST("/:id/comments", recipeHandler.PostComment)

		v1.GET("/dashboard", requireAuth, recipeHandler.Dashboard)

		// Admin
		admin := v1.Group("/admin", requireAuth, middleware.RequireAdmin())
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/users/:id", adminHandler.GetUser)
		admin.POST("/users/:id/role", adminHandler.ToggleRole)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
		admin.POST("/users/:id/password", adminHandler.ResetPassword)
		admin.POST("/import", importHandler.TriggerImport)
		admin.GET("/import/status", importHandler.Status)
	}

	return r
}
