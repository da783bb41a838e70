package routes

import (
	"net/http"
	"strings"

	"swapcal/cmd/internal/service"
	"swapcal/cmd/internal/utils"
	"swapcal/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type SwapService interface {
	CreateRequest(req *service.CreateSwapRequest, subId string) (*service.SwapRequestResponse, apierror.ErrorResponse)
	ResolveRequest(requestID, subId string, accept bool) (*service.SwapRequestResponse, apierror.ErrorResponse)
}

type MarketService interface {
	Browse(subId string) ([]*service.MarketSlotResponse, apierror.ErrorResponse)
	Incoming(subId string) ([]*service.SwapRequestResponse, apierror.ErrorResponse)
	Outgoing(subId string) ([]*service.SwapRequestResponse, apierror.ErrorResponse)
}

type DefaultSwapRoute struct {
	SwapService   SwapService
	MarketService MarketService
}

func NewSwapDefault(swapService SwapService, marketService MarketService) *DefaultSwapRoute {
	return &DefaultSwapRoute{SwapService: swapService, MarketService: marketService}
}

func (s *DefaultSwapRoute) GetSwappableSlots(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	slots, apierr := s.MarketService.Browse(data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"slots": slots}
	return c.JSON(http.StatusOK, &resp)
}

func (s *DefaultSwapRoute) GetIncomingRequests(c echo.Context) error {
	return s.listRequests(c, s.MarketService.Incoming)
}

func (s *DefaultSwapRoute) GetOutgoingRequests(c echo.Context) error {
	return s.listRequests(c, s.MarketService.Outgoing)
}

func (s *DefaultSwapRoute) listRequests(c echo.Context, find func(subId string) ([]*service.SwapRequestResponse, apierror.ErrorResponse)) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	reqs, apierr := find(data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"requests": reqs}
	return c.JSON(http.StatusOK, &resp)
}

func (s *DefaultSwapRoute) CreateSwapRequest(c echo.Context) error {
	var req service.CreateSwapRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	swap, apierr := s.SwapService.CreateRequest(&req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, swap)
}

func (s *DefaultSwapRoute) RespondToSwap(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	var req service.ResolveSwapRequest
	if err := c.Bind(&req); err != nil || req.Accept == nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	swap, apierr := s.SwapService.ResolveRequest(id, data.Sub, *req.Accept)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, swap)
}
