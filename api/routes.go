package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rcopley/faved/digest"
	rh "github.com/rcopley/faved/route-handlers"
	"github.com/rcopley/faved/webutil"
)

const (
	loginPath     = "/login"
	callbackPath  = "/callback"
	logoutPath    = "/logout"
	bookmarksPath = "/bookmarks"
	markReadPath  = "/{id}/read"
	digestTick    = "/digest/tick"
)

func SetupRoutes(
	authHandler *rh.AuthHandler,
	bookmarksHandler *rh.BookmarksHandler,
	digestService *digest.Service,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Log every request
	r.Use(middleware.Recoverer) // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", webutil.MakeHandler(authHandler.HandleHome))
	r.Get(loginPath, webutil.MakeHandler(authHandler.HandleLogin))
	r.Get(callbackPath, webutil.MakeHandler(authHandler.HandleCallback))
	r.Get(logoutPath, webutil.MakeHandler(authHandler.HandleLogout))

	r.Route(bookmarksPath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(bookmarksHandler.HandleBookmarks))
		r.Post("/", webutil.MakeHandler(bookmarksHandler.HandleBookmarks))
		r.Post(markReadPath, webutil.MakeHandler(bookmarksHandler.HandleMarkRead))
	})

	// External cron entry point for the digest, alongside the in-process
	// schedule.
	r.Post(digestTick, digestService.HandleTick)

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)

	return r
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	webutil.RespondWithText(w, http.StatusOK, "OK")
}
