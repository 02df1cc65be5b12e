package main

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/boosthive/boosthive/internal/alerts"
	"github.com/boosthive/boosthive/internal/auth"
	"github.com/boosthive/boosthive/internal/chat"
	"github.com/boosthive/boosthive/internal/config"
	"github.com/boosthive/boosthive/internal/db"
	"github.com/boosthive/boosthive/internal/lifecycle"
	"github.com/boosthive/boosthive/internal/marketplace"
	mware "github.com/boosthive/boosthive/internal/middleware"
	"github.com/boosthive/boosthive/internal/moderator"
	"github.com/boosthive/boosthive/internal/throttle"
	"github.com/boosthive/boosthive/internal/user"
	"github.com/boosthive/boosthive/internal/wallet"
)

func main() {
	cfg := config.Load()

	// Initialize subsystems
	db.Init(cfg.DatabaseURL())
	alerts.Init(cfg.RedisAddr)
	defer alerts.Close()

	// Login throttle shared by every auth surface
	loginThrottle := throttle.New(throttle.Policy{
		MaxAttempts:     cfg.LoginMaxAttempts,
		AttemptWindow:   cfg.LoginAttemptWindow,
		LockoutDuration: cfg.LoginLockoutDuration,
		CleanupInterval: cfg.LoginCleanupInterval,
	}, throttle.NewMemoryLedger(), nil)

	// Lifecycle core
	store := lifecycle.NewPgStore(db.Conn)
	svc := lifecycle.NewService(store)
	engine := lifecycle.NewSettlementEngine(store, cfg.CommissionRate)

	authHandler := auth.NewHandler([]byte(cfg.JWTSecret), loginThrottle)
	requests := marketplace.NewRequestHandler(svc)
	settlement := moderator.NewHandler(engine)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "boosthive"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := db.Conn.Ping(context.Background()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Public routes
	// Auth routes with per-IP rate limiting on top of the account throttle
	authGroup := e.Group("/auth")
	authGroup.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/moderator/login", authHandler.ModeratorLogin)
	authGroup.POST("/moderator/bootstrap", auth.BootstrapModerator)

	e.GET("/games", marketplace.ListGames)
	e.GET("/offerings", marketplace.ListOfferings)
	e.GET("/offerings/:id", marketplace.GetOffering)
	e.GET("/users/:id/profile", user.GetPublicProfile)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWT([]byte(cfg.JWTSecret)))

	api.GET("/auth/me", authHandler.Me)
	api.PATCH("/user/profile", user.UpdateProfile)

	// Catalog management
	api.POST("/offerings", marketplace.CreateOffering, mware.RequireRoles("employee"))
	api.GET("/offerings/me/all", marketplace.MyOfferings, mware.RequireRoles("employee"))
	api.DELETE("/offerings/:id", marketplace.DeactivateOffering, mware.RequireRoles("employee"))

	// Request lifecycle
	api.POST("/requests", requests.Create, mware.RequireRoles("user"))
	api.GET("/requests", requests.ListMine)
	api.GET("/requests/:id", requests.Get)
	api.POST("/requests/:id/accept", requests.Accept, mware.RequireRoles("employee"))
	api.POST("/requests/:id/reject", requests.Reject, mware.RequireRoles("employee"))
	api.POST("/requests/:id/confirm", requests.Confirm, mware.RequireRoles("user"))
	api.POST("/requests/:id/cancel", requests.Cancel)
	api.POST("/requests/:id/complete", requests.Complete, mware.RequireRoles("employee"))

	// Chats
	api.GET("/chats", chat.MyChats)
	api.GET("/chats/:id/messages", chat.History)
	api.POST("/chats/:id/messages", chat.SendMessage)
	api.GET("/chats/:id/ws", chat.ChatWS)

	// Wallet
	api.GET("/wallet/balance", wallet.Balance)
	api.GET("/wallet/transactions", wallet.TransactionsHandler)

	// In-app notifications
	api.GET("/notifications", alerts.ListNotifications)
	api.GET("/notifications/unread", alerts.UnreadCount)
	api.POST("/notifications/:id/read", alerts.MarkNotificationRead)
	api.POST("/notifications/read_all", alerts.MarkAllRead)

	// Settlement actions
	api.POST("/completions/:id/approve", settlement.Approve, mware.ModeratorGuard)
	api.POST("/completions/:id/reopen", settlement.Reopen, mware.ModeratorGuard)

	// Moderator routes
	mod := e.Group("/moderator")
	mod.Use(mware.JWT([]byte(cfg.JWTSecret)))
	mod.Use(mware.ModeratorGuard)

	mod.GET("/stats", moderator.Stats)
	mod.GET("/completions", settlement.ListPending)
	mod.GET("/requests", moderator.ListRequests)
	mod.GET("/transactions", moderator.ListTransactions)
	mod.GET("/users", moderator.ListUsers)
	mod.POST("/users/:id/suspend", moderator.SetUserActive(false))
	mod.POST("/users/:id/reinstate", moderator.SetUserActive(true))
	mod.GET("/chats", chat.ListAll)
	mod.GET("/chats/:id/messages", chat.History)
	mod.POST("/games", marketplace.CreateGame)

	// Run the HTTP server and the throttle sweeper together
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return e.Start(":" + cfg.Port)
	})
	g.Go(func() error {
		return loginThrottle.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
