package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UnifiedResponse 统一的 API 响应格式
type UnifiedResponse struct {
	Code int         `json:"code"`
	Data interface{} `json:"data,omitempty"`
	Msg  string      `json:"msg"`
}

// sendSuccessResponse 发送成功响应
func sendSuccessResponse(context *gin.Context, data interface{}) {
	sendResponse(context, http.StatusOK, data, "success")
}

// sendResponse 发送带数据的响应
func sendResponse(context *gin.Context, httpStatus int, data interface{}, message string) {
	context.JSON(httpStatus, UnifiedResponse{
		Code: httpStatus,
		Data: data,
		Msg:  message,
	})
}

// sendErrorResponse 发送错误响应
func sendErrorResponse(context *gin.Context, httpStatus int, message string) {
	context.JSON(httpStatus, UnifiedResponse{
		Code: httpStatus,
		Msg:  message,
	})
}
