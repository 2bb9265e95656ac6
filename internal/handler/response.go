package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/datalab/internal/model"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// NoContent 无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Msg: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Msg: msg})
}

// Conflict 409 错误响应
func Conflict(c *gin.Context, msg string) {
	c.JSON(http.StatusConflict, ErrorResponse{Code: 409, Msg: msg})
}

// UnprocessableEntity 422 错误响应
func UnprocessableEntity(c *gin.Context, msg string) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: 422, Msg: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Msg: msg})
}

// Error 按错误类别返回相应的错误响应
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var validationErr *model.ValidationError
	var parseErr *model.ParseError

	switch {
	case errors.Is(err, model.ErrTaskBusy), errors.Is(err, model.ErrCancelled):
		Conflict(c, err.Error())
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrNoDataset),
		errors.Is(err, model.ErrNoSelection):
		NotFound(c, err.Error())
	case errors.Is(err, model.ErrUnsupportedFormat):
		BadRequest(c, err.Error())
	case errors.As(err, &validationErr):
		BadRequest(c, err.Error())
	case errors.As(err, &parseErr):
		UnprocessableEntity(c, err.Error())
	default:
		InternalServerError(c, err.Error())
	}
}
