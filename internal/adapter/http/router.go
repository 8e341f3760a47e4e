package http

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
)

type Handlers struct {
	Orders   *OrderHandler
	Products *ProductHandler
	Users    *UserHandler
}

type RouterOptions struct {
	AllowOrigins []string // CORS disabled when empty
	ImageDir     string   // served under ImagePath when set (local storage)
	ImagePath    string
	Logger       *slog.Logger
}

func NewRouter(h Handlers, authz *middleware.Authz, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Idempotency-Key", "X-Request-Id"},
			ExposeHeaders: []string{"X-Request-Id", "Idempotent-Replayed"},
			MaxAge:        12 * time.Hour,
		}))
	}

	l := opts.Logger
	if l == nil {
		l = logging.New("http")
	}
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.ImageDir != "" && opts.ImagePath != "" {
		r.Static(opts.ImagePath, opts.ImageDir)
	}

	api := r.Group("/api")

	users := api.Group("/users")
	{
		users.POST("/register", h.Users.Register)
		users.POST("/login", h.Users.Login)
		users.GET("/renew-token", authz.Authenticate(), h.Users.RenewToken)
		users.POST("/make-admin", authz.Authenticate(), authz.Require(entity.RoleAdmin), h.Users.MakeAdmin)
		users.POST("/remove-admin", authz.Authenticate(), authz.Require(entity.RoleAdmin), h.Users.RemoveAdmin)
	}

	admin := authz.Require(entity.RoleAdmin)

	products := api.Group("/products", authz.Authenticate())
	{
		products.GET("", h.Products.List)
		products.GET("/search", h.Products.Search)
		products.GET("/recommendations", h.Products.Recommend)
		products.GET("/:id", h.Products.Get)
		products.POST("", admin, h.Products.Create)
		products.PUT("/:id", admin, h.Products.Update)
		products.PUT("/:id/stock", admin, h.Products.AdjustStock)
		products.PATCH("/:id", admin, h.Products.Patch)
		products.DELETE("/:id", admin, h.Products.Delete)
	}

	orders := api.Group("/orders", authz.Authenticate())
	{
		orders.GET("", admin, h.Orders.ListPlaced)
		orders.GET("/mine", h.Orders.ListMine)
		orders.GET("/cart", h.Orders.GetCart)
		orders.POST("/cart/items", h.Orders.AddItem)
		orders.PUT("/cart/confirm", h.Orders.Confirm)
		orders.DELETE("/cart", h.Orders.CancelCart)
		orders.DELETE("/cart/items/:productId", h.Orders.RemoveItem)
		orders.PUT("/:id/status", admin, h.Orders.AdvanceStatus)
		orders.GET("/:id/status", admin, h.Orders.GetStatus)
	}

	return r
}
