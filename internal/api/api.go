package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/spf13/viper"

	"github.com/ougirez/placealloc/internal/api/controller"
	"github.com/ougirez/placealloc/internal/pkg/constants"
	"github.com/ougirez/placealloc/internal/pkg/logger"
	"github.com/ougirez/placealloc/internal/service/allocation"
	"github.com/ougirez/placealloc/internal/service/auth"
	"github.com/ougirez/placealloc/internal/service/practices"
	"github.com/ougirez/placealloc/internal/service/session"
)

type APIService struct {
	router            *echo.Echo
	practicesService  *practices.Service
	sessionService    *session.Service
	allocationService *allocation.Service
	authService       *auth.Service
}

func (svc *APIService) Serve(addr string) {
	if err := svc.router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(context.Background(), err)
	}
}

func (svc *APIService) Shutdown(ctx context.Context) error {
	return svc.router.Shutdown(ctx)
}

// Router exposes the echo instance, mostly for tests.
func (svc *APIService) Router() *echo.Echo {
	return svc.router
}

func NewAPIService(
	practicesService *practices.Service,
	sessionService *session.Service,
	allocationService *allocation.Service,
	authService *auth.Service,
) (*APIService, error) {
	svc := &APIService{
		router:            echo.New(),
		practicesService:  practicesService,
		sessionService:    sessionService,
		allocationService: allocationService,
		authService:       authService,
	}

	svc.router.HideBanner = true
	svc.router.Logger.SetLevel(log.WARN)
	svc.router.Validator = NewValidator()
	svc.router.Binder = NewBinder()
	svc.router.JSONSerializer = NewJSONSerializer()
	svc.router.Use(middleware.Logger())
	svc.router.Use(middleware.Recover())
	svc.router.HTTPErrorHandler = httpErrorHandler
	svc.router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  viper.GetStringSlice(constants.ViperHTTPAllowOriginsKey),
		AllowMethods:  []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, constants.HeaderSessionID},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))

	api := svc.router.Group("/api/v1")
	cntrl := controller.NewController(svc.practicesService, svc.sessionService, svc.allocationService, svc.authService)

	icbs := api.Group("/icbs")
	icbs.GET("", cntrl.ListICBs)
	icbs.GET("/:icb/districts", cntrl.ListDistricts)
	icbs.GET("/:icb/practices", cntrl.ListPractices)

	api.POST("/sessions", cntrl.CreateSession)
	sessions := api.Group("/sessions/:id", svc.SessionMiddleware)
	sessions.DELETE("", cntrl.DeleteSession)
	sessions.GET("/places", cntrl.ListPlaces)
	sessions.POST("/places", cntrl.CreatePlace)
	sessions.POST("/places/reset", cntrl.ResetPlaces)
	sessions.DELETE("/places/:label", cntrl.DeletePlace)
	sessions.GET("/document", cntrl.GetDocument)
	sessions.PUT("/document", cntrl.PutDocument)
	sessions.GET("/results", cntrl.GetResults)
	sessions.GET("/results/:label/summary", cntrl.GetSummary)
	sessions.GET("/export.csv", cntrl.ExportCSV)
	sessions.GET("/export.xlsx", cntrl.ExportXLSX)
	sessions.GET("/export.zip", cntrl.ExportBundle)

	admin := api.Group("/admin")
	admin.POST("/login", cntrl.LoginAdmin)
	admin.POST("/practices/backfill", cntrl.Backfill, svc.AdminMiddleware)

	return svc, nil
}
