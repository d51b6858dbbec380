package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/services"
)

type TransportHandler struct {
	transports *services.TransportService
}

func NewTransportHandler(transports *services.TransportService) *TransportHandler {
	return &TransportHandler{transports: transports}
}

func (h *TransportHandler) List(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	driverID, ok := queryUint(c, "driver_id")
	if !ok {
		return
	}
	f := services.TransportFilter{Status: models.TransportStatus(c.Query("status")), DriverID: driverID}
	list, err := h.transports.List(c.Request.Context(), f, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *TransportHandler) Get(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	t, err := h.transports.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, t)
}

func (h *TransportHandler) Create(c *gin.Context) {
	var in services.TransportInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	t, err := h.transports.Create(c.Request.Context(), in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, t)
}

func (h *TransportHandler) Update(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	t, err := h.transports.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	in := services.TransportInputFrom(t)
	if !httpx.BindJSON(c, &in) {
		return
	}
	t, err = h.transports.Update(c.Request.Context(), id, in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, t)
}

func (h *TransportHandler) Delete(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.transports.Delete(c.Request.Context(), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type qrInput struct {
	QRCode string `json:"qr_code"`
}

// RecordDeparture scans the QR code of a planned transport.
func (h *TransportHandler) RecordDeparture(c *gin.Context) {
	var in qrInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	t, err := h.transports.RecordDeparture(c.Request.Context(), in.QRCode)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, t)
}

// RecordArrival scans the QR code of a transport in transit.
func (h *TransportHandler) RecordArrival(c *gin.Context) {
	var in qrInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	t, err := h.transports.RecordArrival(c.Request.Context(), in.QRCode)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, t)
}

func (h *TransportHandler) Cancel(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	t, err := h.transports.Cancel(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, t)
}

func (h *TransportHandler) Locations(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	locs, err := h.transports.Locations(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, locs)
}

func (h *TransportHandler) AddLocation(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var in services.LocationInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	loc, err := h.transports.AddLocation(c.Request.Context(), id, in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, loc)
}

type TruckHandler struct {
	trucks *services.TruckService
}

func NewTruckHandler(trucks *services.TruckService) *TruckHandler {
	return &TruckHandler{trucks: trucks}
}

func (h *TruckHandler) List(c *gin.Context) {
	page, ok := httpx.ParsePage(c)
	if !ok {
		return
	}
	list, err := h.trucks.List(c.Request.Context(), models.TruckStatus(c.Query("status")), page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Paginated(c, list)
}

func (h *TruckHandler) Get(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	t, err := h.trucks.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, t)
}

func (h *TruckHandler) Create(c *gin.Context) {
	var in services.TruckInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	t, err := h.trucks.Create(c.Request.Context(), in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusCreated, t)
}

func (h *TruckHandler) Update(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	t, err := h.trucks.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	in := services.TruckInputFrom(t)
	if !httpx.BindJSON(c, &in) {
		return
	}
	t, err = h.trucks.Update(c.Request.Context(), id, in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, t)
}

func (h *TruckHandler) Delete(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.trucks.Delete(c.Request.Context(), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
