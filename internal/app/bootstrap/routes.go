// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	authgooglefeature "github.com/dalemusser/caseroom/internal/app/features/authgoogle"
	drivefilesfeature "github.com/dalemusser/caseroom/internal/app/features/drivefiles"
	filesfeature "github.com/dalemusser/caseroom/internal/app/features/files"
	healthfeature "github.com/dalemusser/caseroom/internal/app/features/health"
	importsfeature "github.com/dalemusser/caseroom/internal/app/features/imports"
	logoutfeature "github.com/dalemusser/caseroom/internal/app/features/logout"
	roomsfeature "github.com/dalemusser/caseroom/internal/app/features/rooms"
	userinfofeature "github.com/dalemusser/caseroom/internal/app/features/userinfo"
	"github.com/dalemusser/caseroom/internal/app/store/audit"
	"github.com/dalemusser/caseroom/internal/app/store/blob"
	contentstore "github.com/dalemusser/caseroom/internal/app/store/contents"
	credentialstore "github.com/dalemusser/caseroom/internal/app/store/credentials"
	membershipstore "github.com/dalemusser/caseroom/internal/app/store/memberships"
	"github.com/dalemusser/caseroom/internal/app/store/oauthstate"
	roomlinkstore "github.com/dalemusser/caseroom/internal/app/store/roomlinks"
	roomstore "github.com/dalemusser/caseroom/internal/app/store/rooms"
	userstore "github.com/dalemusser/caseroom/internal/app/store/users"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/auth"
	"github.com/dalemusser/caseroom/internal/app/system/drive"
	"github.com/dalemusser/caseroom/internal/app/system/importer"
	"github.com/dalemusser/caseroom/internal/app/system/ratelimit"
	"github.com/dalemusser/caseroom/internal/app/system/registry"
	"github.com/dalemusser/caseroom/internal/app/system/vault"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and the Startup hook have completed. It builds the store layer, the
// system services on top of it, and mounts one feature router per API
// area.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	blobs, err := blob.NewLocal(appCfg.StorageDir)
	if err != nil {
		logger.Error("blob store init failed", zap.Error(err))
		return nil, err
	}

	// Stores, one per collection.
	users := userstore.New(db)
	rooms := roomstore.New(db)
	members := membershipstore.New(db)
	links := roomlinkstore.New(db)
	contents := contentstore.New(db, blobs)
	creds := credentialstore.New(db)
	auditStore := audit.New(db)
	states := oauthstate.New(db)

	// System services.
	auditLog := auditlog.New(auditStore, logger)
	reg := registry.New(rooms, members, links, users, auditLog)

	googleAuth := authgooglefeature.NewHandler(
		states, users, creds,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL,
		logger,
	)
	tokenVault := vault.New(creds, &vault.OAuthRefresher{Config: googleAuth.OAuth2Config()}, logger)
	driveClient := drive.NewClient()
	imp := importer.New(tokenVault, driveClient, contents, links, reg, auditLog, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged
	// in, making the current user available via auth.CurrentUser(r).
	r.Use(auth.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication, rate limited per IP against OAuth state flooding.
	loginLimiter := ratelimit.New(20, time.Minute)
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(loginLimiter))
		r.Mount("/auth/google", authgooglefeature.Routes(googleAuth))
	})

	logoutHandler := logoutfeature.NewHandler(logger)
	userinfoHandler := userinfofeature.NewHandler(logger)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSignedIn)
		r.Mount("/auth/logout", logoutfeature.Routes(logoutHandler))
		r.Mount("/auth/me", userinfofeature.Routes(userinfoHandler))
	})

	// API surface, all behind a session.
	roomsHandler := roomsfeature.NewHandler(reg, contents, links, auditLog, logger)
	filesHandler := filesfeature.NewHandler(contents, links, auditLog, logger)
	importsHandler := importsfeature.NewHandler(imp, logger)
	driveHandler := drivefilesfeature.NewHandler(tokenVault, driveClient, logger)

	importLimiter := ratelimit.New(30, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireSignedIn)
		r.Mount("/rooms", roomsfeature.Routes(roomsHandler))
		r.Mount("/files", filesfeature.Routes(filesHandler))
		r.With(ratelimit.Middleware(importLimiter)).
			Mount("/import", importsfeature.Routes(importsHandler))
		r.Mount("/drive/files", drivefilesfeature.Routes(driveHandler))
	})

	return r, nil
}
