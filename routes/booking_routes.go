package routes

import (
	"github.com/gin-gonic/gin"

	handlers "bikerental/internal/handlers/shared"
	"bikerental/internal/middleware"
)

// SetupBookingRoutes sets up routes for the customer booking flow
func SetupBookingRoutes(r *gin.RouterGroup, bookingHandler *handlers.BookingHandler, jwtSecret string) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.AuthRequired(jwtSecret))
	{
		// Checkout
		bookings.POST("/order", bookingHandler.CreateOrder)
		bookings.POST("/verify", bookingHandler.VerifyPayment)

		// Booking history
		bookings.GET("/me", bookingHandler.GetMyBookings)
		bookings.GET("/:id", bookingHandler.GetBooking)
		bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
	}
}

// SetupBikeRoutes sets up the public catalog
func SetupBikeRoutes(r *gin.RouterGroup, bikeHandler *handlers.BikeHandler) {
	bikes := r.Group("/bikes")
	{
		bikes.GET("", bikeHandler.ListBikes)
		bikes.GET("/:id", bikeHandler.GetBike)
	}
}
