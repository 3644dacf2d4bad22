package medical

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinicstore/internal/handler"
	"github.com/jwalitptl/clinicstore/internal/model"
	"github.com/jwalitptl/clinicstore/internal/service/medical"
)

type Handler struct {
	service medical.MedicalRecordService
}

func NewHandler(service medical.MedicalRecordService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	records := r.Group("/medical-records")
	{
		records.POST("", h.CreateMedicalRecord)
		records.GET("", h.ListMedicalRecords)
		records.GET("/:id", h.GetMedicalRecord)
		records.PUT("/:id", h.UpdateMedicalRecord)
		records.DELETE("/:id", h.DeleteMedicalRecord)
	}
}

func (h *Handler) CreateMedicalRecord(c *gin.Context) {
	var req model.MedicalRecordRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	record, err := h.service.CreateMedicalRecord(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(record))
}

func (h *Handler) GetMedicalRecord(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	record, err := h.service.GetMedicalRecord(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(record))
}

func (h *Handler) UpdateMedicalRecord(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.MedicalRecordRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	record, err := h.service.UpdateMedicalRecord(c.Request.Context(), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(record))
}

func (h *Handler) DeleteMedicalRecord(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	if err := h.service.DeleteMedicalRecord(c.Request.Context(), id); err != nil {
		handler.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListMedicalRecords(c *gin.Context) {
	records, err := h.service.ListMedicalRecords(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}
