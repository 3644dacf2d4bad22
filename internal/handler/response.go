package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinicstore/pkg/errors"
)

type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

// ParseID reads a uint64 path parameter.
func ParseID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid "+name, err)
	}
	return id, nil
}

// BindJSON decodes the request body into req.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperrors.InvalidInput("invalid request body", err)
	}
	return nil
}

// Fail hands err to the error middleware and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
