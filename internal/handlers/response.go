package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/apperror"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/telemetry"
)

type ErrorResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func writeError(c *gin.Context, err error) {
	appErr := apperror.As(err)
	status := apperror.HTTPStatus(appErr)
	if status == http.StatusInternalServerError {
		telemetry.Logger.Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, ErrorResponse{ErrorCode: appErr.Code, ErrorMessage: appErr.Message})
}

// respond writes body with the status of err. A failed operation that still
// produced a body, such as a declined payment, keeps its body.
func respond[T any](c *gin.Context, body *T, err error) {
	if err != nil && body == nil {
		writeError(c, err)
		return
	}
	c.JSON(apperror.HTTPStatus(err), body)
}

func badRequest(c *gin.Context, err error) {
	telemetry.Logger.Debug("Invalid request body", zap.String("route", c.FullPath()), zap.Error(err))
	writeError(c, apperror.Validation(apperror.CodeInvalidRequest, "Invalid request body"))
}
