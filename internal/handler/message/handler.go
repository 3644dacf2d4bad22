package message

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinicstore/internal/handler"
	"github.com/jwalitptl/clinicstore/internal/model"
	"github.com/jwalitptl/clinicstore/internal/service/message"
)

type Handler struct {
	service message.MessageService
}

func NewHandler(service message.MessageService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	messages := r.Group("/messages")
	{
		messages.POST("", h.SendMessage)
		messages.GET("", h.ListMessages)
		messages.GET("/:id", h.GetMessage)
		messages.PUT("/:id", h.UpdateMessage)
		messages.DELETE("/:id", h.DeleteMessage)
	}

	r.POST("/patients/:id/reminders", h.SendReminder)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req model.MessageRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(msg))
}

func (h *Handler) SendReminder(c *gin.Context) {
	patientID, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.ReminderRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	msg, err := h.service.SendReminderToPatient(c.Request.Context(), patientID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(msg))
}

func (h *Handler) GetMessage(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	msg, err := h.service.GetMessage(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(msg))
}

func (h *Handler) UpdateMessage(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.MessageRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	msg, err := h.service.UpdateMessage(c.Request.Context(), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(msg))
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), id); err != nil {
		handler.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListMessages(c *gin.Context) {
	messages, err := h.service.ListMessages(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(messages))
}
