package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
)

// RouterConfig collects the handlers and cross-cutting settings of the router.
type RouterConfig struct {
	Gate         Gate
	Auth         *AuthHandler
	Listings     *ListingHandler
	Reservations *ReservationHandler
	Pages        *PageHandler
	HealthChecks map[string]HealthCheck
	CORSOrigins  []string
	Logger       *logrus.Logger
	Middleware   []gin.HandlerFunc
}

// NewRouter builds the gin engine serving /api and the HTML pages.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(cfg.Logger))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "X-Session-Token"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	for _, middleware := range cfg.Middleware {
		if middleware != nil {
			router.Use(middleware)
		}
	}
	router.Use(OptionalSession(cfg.Gate))

	signedIn := RequireAPI(cfg.Gate, application.RequireSignedIn, cfg.Logger)
	admin := RequireAPI(cfg.Gate, application.RequireAdmin, cfg.Logger)

	api := router.Group("/api")
	api.GET("/health", healthHandler(cfg.HealthChecks, cfg.Logger))
	if cfg.Auth != nil {
		api.POST("/signup", cfg.Auth.SignUp)
		api.POST("/sessions", cfg.Auth.CreateSession)
		api.DELETE("/sessions/current", signedIn, cfg.Auth.DeleteCurrentSession)
		api.GET("/me", signedIn, cfg.Auth.Me)
	}
	if cfg.Listings != nil {
		api.GET("/listings", cfg.Listings.List)
		api.GET("/listings.geojson", cfg.Listings.GeoJSON)
		api.GET("/listings/filter", cfg.Listings.Filter)
		api.GET("/listings/:id", cfg.Listings.Get)

		adminListings := api.Group("/admin/listings", admin)
		adminListings.GET("", cfg.Listings.AdminList)
		adminListings.POST("", cfg.Listings.Save)
		adminListings.PATCH("/:id", cfg.Listings.Patch)
		adminListings.DELETE("/:id", cfg.Listings.Delete)
	}
	if cfg.Reservations != nil {
		api.GET("/intake", signedIn, cfg.Reservations.Intake)
		api.POST("/reservations", signedIn, cfg.Reservations.Submit)
		api.POST("/reservations/draft", signedIn, cfg.Reservations.StageDraft)
		api.GET("/reservations/draft", signedIn, cfg.Reservations.LoadDraft)
		api.DELETE("/reservations/draft", signedIn, cfg.Reservations.DiscardDraft)
		api.POST("/reservations/draft/confirm", signedIn, cfg.Reservations.ConfirmDraft)

		adminReservations := api.Group("/admin/reservations", admin)
		adminReservations.GET("", cfg.Reservations.AdminList)
		adminReservations.PUT("/:id/status", cfg.Reservations.SetStatus)
	}

	if cfg.Pages != nil {
		templates, err := parseTemplates()
		if err != nil {
			return nil, fmt.Errorf("parse page templates: %w", err)
		}
		router.SetHTMLTemplate(templates)

		pageSignedIn := func(loginAlert string) gin.HandlerFunc {
			return RequirePage(cfg.Gate, application.RequireSignedIn, loginAlert, cfg.Logger)
		}
		pageAdmin := RequirePage(cfg.Gate, application.RequireAdmin, "", cfg.Logger)

		router.GET("/", cfg.Pages.Catalog)
		router.GET("/login", cfg.Pages.LoginPage)
		router.POST("/login", cfg.Pages.Login)
		router.GET("/signup", cfg.Pages.SignupPage)
		router.POST("/signup", cfg.Pages.Signup)
		router.POST("/logout", cfg.Pages.Logout)
		router.GET("/listings/:id/book", cfg.Pages.Book)

		router.GET("/reservations/new", pageSignedIn("login_required"), cfg.Pages.IntakePage)
		router.POST("/reservations", pageSignedIn("login_first"), cfg.Pages.SubmitReservation)
		router.GET("/reservations/confirm", pageSignedIn("confirm_login"), cfg.Pages.ConfirmPage)
		router.POST("/reservations/confirm", pageSignedIn("confirm_login"), cfg.Pages.Confirm)
		router.POST("/reservations/confirm/cancel", pageSignedIn("confirm_login"), cfg.Pages.CancelDraft)

		adminPages := router.Group("/admin", pageAdmin)
		adminPages.GET("", cfg.Pages.AdminPage)
		adminPages.POST("/listings", cfg.Pages.SaveListing)
		adminPages.POST("/listings/:id/delete", cfg.Pages.DeleteListing)
		adminPages.POST("/reservations/:id/status", cfg.Pages.SetReservationStatus)
	}

	router.NoRoute(func(c *gin.Context) {
		newResponder(cfg.Logger).writeError(c, http.StatusNotFound, nil)
	})

	return router, nil
}
