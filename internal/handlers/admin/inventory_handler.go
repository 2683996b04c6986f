package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	handlers "bikerental/internal/handlers/shared"
	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/services"
	"bikerental/internal/utils"
	"bikerental/internal/validators"
)

type InventoryHandler struct {
	inventoryService services.InventoryService
}

func NewInventoryHandler(inventoryService services.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// CreateBike adds a bike model with its initial fleet
func (h *InventoryHandler) CreateBike(c *gin.Context) {
	var request validators.BikeCreateRequest
	if !handlers.BindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateBikeCreate(&request); len(errs) > 0 {
		handlers.RespondError(c, errs)
		return
	}

	bike, err := h.inventoryService.CreateBike(c.Request.Context(), request.ToModel())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Bike created successfully", handlers.NewBikeResponse(bike))
}

// UpdateBike changes catalogue fields. Booked prices are not touched.
func (h *InventoryHandler) UpdateBike(c *gin.Context) {
	var request validators.BikeUpdateRequest
	if !handlers.BindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateBikeUpdate(&request); len(errs) > 0 {
		handlers.RespondError(c, errs)
		return
	}

	update := interfaces.BikeUpdate{
		Features: request.Features,
		IsActive: request.IsActive,
	}
	if request.ModelInfo != nil {
		info := request.ModelInfo.ToModel()
		update.ModelInfo = &info
	}
	if request.Pricing != nil {
		pricing := request.Pricing.ToModel()
		update.Pricing = &pricing
	}

	bike, err := h.inventoryService.UpdateBike(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Bike updated successfully", handlers.NewBikeResponse(bike))
}

func (h *InventoryHandler) DeleteBike(c *gin.Context) {
	if err := h.inventoryService.DeleteBike(c.Request.Context(), c.Param("id")); err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Bike deleted successfully", nil)
}

func (h *InventoryHandler) AddVehicle(c *gin.Context) {
	var request validators.VehicleCreateRequest
	if !handlers.BindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateVehicleCreate(&request); len(errs) > 0 {
		handlers.RespondError(c, errs)
		return
	}

	bike, err := h.inventoryService.AddVehicle(c.Request.Context(), c.Param("id"), request.ToModel())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Vehicle added successfully", handlers.NewBikeResponse(bike))
}

// UpdateVehicleStatus moves a vehicle in or out of service
func (h *InventoryHandler) UpdateVehicleStatus(c *gin.Context) {
	var request validators.VehicleStatusRequest
	if !handlers.BindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateVehicleStatus(&request); len(errs) > 0 {
		handlers.RespondError(c, errs)
		return
	}

	bike, err := h.inventoryService.UpdateVehicleStatus(c.Request.Context(), c.Param("id"), c.Param("number"), models.VehicleStatus(request.Status))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Vehicle status updated successfully", handlers.NewBikeResponse(bike))
}

func (h *InventoryHandler) RemoveVehicle(c *gin.Context) {
	if err := h.inventoryService.RemoveVehicle(c.Request.Context(), c.Param("id"), c.Param("number")); err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Vehicle removed successfully", nil)
}

// GetVehiclesByStatus lists vehicles across all bikes in the given status
func (h *InventoryHandler) GetVehiclesByStatus(c *gin.Context) {
	status := models.VehicleStatus(c.Query("status"))
	if !status.IsValid() {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_VEHICLE_STATUS", "Invalid vehicle status")
		return
	}

	vehicles, err := h.inventoryService.GetVehiclesByStatus(c.Request.Context(), status)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Vehicles retrieved successfully", vehicles)
}
