package handlers

import (
	"github.com/gin-gonic/gin"

	"bikerental/internal/models"
	"bikerental/internal/repositories/interfaces"
	"bikerental/internal/services"
	"bikerental/internal/utils"
	"bikerental/internal/validators"
)

type BikeHandler struct {
	inventoryService services.InventoryService
}

func NewBikeHandler(inventoryService services.InventoryService) *BikeHandler {
	return &BikeHandler{
		inventoryService: inventoryService,
	}
}

// BikeResponse is a catalog entry with its effective weekend price.
type BikeResponse struct {
	*models.Bike
	WeekendPrice float64 `json:"weekendPrice"`
}

func NewBikeResponse(bike *models.Bike) *BikeResponse {
	return &BikeResponse{
		Bike:         bike,
		WeekendPrice: utils.RoundCurrency(bike.Pricing.WeekendPrice()),
	}
}

// ListBikes returns the public catalog
func (h *BikeHandler) ListBikes(c *gin.Context) {
	var query validators.BikeListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequestResponse(c, "Invalid query: "+err.Error())
		return
	}
	if errs := validators.ValidateBikeListQuery(&query); len(errs) > 0 {
		RespondError(c, errs)
		return
	}

	params := utils.GetPaginationParams(c)
	bikes, total, err := h.inventoryService.ListBikes(c.Request.Context(), interfaces.BikeFilter{
		Category:     query.Category,
		Brand:        query.Brand,
		Model:        query.Model,
		Type:         query.Type,
		Transmission: query.Transmission,
		IsActive:     query.IsActive,
		MinPrice:     query.MinPrice,
		MaxPrice:     query.MaxPrice,
	}, params)
	if err != nil {
		RespondError(c, err)
		return
	}

	response := make([]*BikeResponse, 0, len(bikes))
	for _, bike := range bikes {
		response = append(response, NewBikeResponse(bike))
	}

	utils.SuccessResponseWithMeta(c, "Bikes retrieved successfully", response, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *BikeHandler) GetBike(c *gin.Context) {
	bike, err := h.inventoryService.GetBike(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Bike retrieved successfully", NewBikeResponse(bike))
}
