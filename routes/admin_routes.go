package routes

import (
	"github.com/gin-gonic/gin"

	"bikerental/internal/handlers/admin"
	"bikerental/internal/middleware"
)

func SetupAdminRoutes(r *gin.RouterGroup, inventoryHandler *admin.InventoryHandler, bookingHandler *admin.BookingHandler, paymentHandler *admin.PaymentHandler, jwtSecret string) {
	group := r.Group("/admin")
	group.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		// Inventory
		group.POST("/bikes", inventoryHandler.CreateBike)
		group.PATCH("/bikes/:id", inventoryHandler.UpdateBike)
		group.DELETE("/bikes/:id", inventoryHandler.DeleteBike)
		group.POST("/bikes/:id/vehicles", inventoryHandler.AddVehicle)
		group.PATCH("/bikes/:id/vehicles/:number/status", inventoryHandler.UpdateVehicleStatus)
		group.DELETE("/bikes/:id/vehicles/:number", inventoryHandler.RemoveVehicle)
		group.GET("/vehicles", inventoryHandler.GetVehiclesByStatus)

		// Bookings
		group.GET("/bookings", bookingHandler.ListBookings)
		group.POST("/bookings", bookingHandler.CreateBooking)
		group.PATCH("/bookings/:id", bookingHandler.UpdateBooking)
		group.POST("/bookings/:id/late-charge", bookingHandler.CalculateLateCharge)
		group.POST("/bookings/:id/settle", bookingHandler.SettleBooking)
		group.POST("/bookings/:id/complete", bookingHandler.CompleteBooking)
		group.GET("/bookings/:id/payment", paymentHandler.GetBookingPayment)

		// Payments
		group.GET("/payments", paymentHandler.ListPayments)
		group.GET("/payments/:id", paymentHandler.GetPayment)

		group.POST("/scheduler/run", bookingHandler.RunScheduler)
	}
}
