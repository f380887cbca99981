package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cargolink/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	tokenSvc *service.TokenService,
	authLimiter service.RateLimiter,
	authH *AuthHandler,
	productH *ProductHandler,
	deliveryH *DeliveryHandler,
) *gin.Engine {
	RegisterValidators()

	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	})

	// Los endpoints de auth llevan rate limiting de ventana fija por IP.
	auth := api.Group("/auth", rateLimitMiddleware(authLimiter))
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh-token", authH.RefreshToken)
	auth.POST("/verify-email", authH.VerifyEmail)
	auth.POST("/forgot-password", authH.ForgotPassword)
	auth.POST("/reset-password", authH.ResetPassword)

	authPriv := auth.Group("", AuthMiddleware(tokenSvc))
	authPriv.POST("/resend-verification", authH.ResendVerification)
	authPriv.POST("/change-password", authH.ChangePassword)
	authPriv.POST("/logout", authH.Logout)
	authPriv.GET("/profile", authH.GetProfile)
	authPriv.PUT("/profile", authH.UpdateProfile)

	products := api.Group("/products", AuthMiddleware(tokenSvc))
	products.POST("", productH.Create)
	products.GET("/my-products", productH.MyProducts)
	products.GET("/:id", productH.Get)
	products.PUT("/:id", productH.Update)
	products.DELETE("/:id", productH.Delete)

	deliveries := api.Group("/deliveries", AuthMiddleware(tokenSvc))
	deliveries.GET("/available", deliveryH.Available)
	deliveries.POST("/accept/:productId", deliveryH.Accept)
	deliveries.GET("/my-deliveries", deliveryH.MyDeliveries)
	deliveries.PUT("/:id/status", deliveryH.UpdateStatus)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Route not found"})
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// rateLimitMiddleware corta con 429 cuando la IP agota su ventana.
func rateLimitMiddleware(limiter service.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests, please try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}
