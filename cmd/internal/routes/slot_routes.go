package routes

import (
	"net/http"
	"strings"

	"swapcal/cmd/internal/service"
	"swapcal/cmd/internal/utils"
	"swapcal/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type SlotService interface {
	GetMySlots(subId string) ([]*service.SlotResponse, apierror.ErrorResponse)
	CreateSlot(req *service.SlotRequest, subId string) (*service.SlotResponse, apierror.ErrorResponse)
	UpdateSlot(id string, req *service.SlotRequest, subId string) (*service.SlotResponse, apierror.ErrorResponse)
	DeleteSlot(id, subId string) apierror.ErrorResponse
	ToggleSwappable(id, subId string, makeSwappable bool) (*service.SlotResponse, apierror.ErrorResponse)
}

type DefaultSlotRoute struct {
	SlotService SlotService
}

func NewSlotDefault(slotService SlotService) *DefaultSlotRoute {
	return &DefaultSlotRoute{SlotService: slotService}
}

func (s *DefaultSlotRoute) GetMySlots(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	slots, apierr := s.SlotService.GetMySlots(data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"slots": slots}
	return c.JSON(http.StatusOK, &resp)
}

func (s *DefaultSlotRoute) CreateSlot(c echo.Context) error {
	var req service.SlotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	slot, apierr := s.SlotService.CreateSlot(&req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, slot)
}

func (s *DefaultSlotRoute) UpdateSlot(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	var req service.SlotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	slot, apierr := s.SlotService.UpdateSlot(id, &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, slot)
}

func (s *DefaultSlotRoute) DeleteSlot(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	apierr := s.SlotService.DeleteSlot(id, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}

func (s *DefaultSlotRoute) ToggleSwappable(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	var req service.ToggleSwappableRequest
	if err := c.Bind(&req); err != nil || req.Swappable == nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	slot, apierr := s.SlotService.ToggleSwappable(id, data.Sub, *req.Swappable)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, slot)
}
