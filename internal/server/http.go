// Package server wires the Gin router for the auth API.
package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"user-auth-service/internal/server/handler"
	"user-auth-service/internal/server/middleware"
)

const serviceName = "user-auth-service"

// NewRouter wires Gin routes and middleware. Registration, login, refresh,
// and the OTP endpoints are public; session management and password change
// require a bearer token bound to a live session. Logout is deliberately
// outside the auth group: it must accept expired tokens.
func NewRouter(authHandler *handler.AuthHandler, authMiddleware *middleware.Auth) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/verify-otp", authHandler.VerifyOTP)
		auth.POST("/resend-code", authHandler.ResendCode)
		auth.POST("/logout", authHandler.Logout)

		protected := auth.Group("")
		protected.Use(authMiddleware.ValidateJWT)
		{
			protected.POST("/logout-device", authHandler.LogoutDevice)
			protected.POST("/logout-all", authHandler.LogoutAll)
			protected.GET("/sessions", authHandler.Sessions)
			protected.POST("/change-password", authHandler.ChangePassword)
		}
	}

	return r
}
