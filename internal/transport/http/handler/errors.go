package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crowdfund-api/internal/app"
	"crowdfund-api/internal/transport/http/response"
)

// writeError maps service errors to the response envelope. fallback is the
// message used for unexpected failures.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrInvalidPhone),
		errors.Is(err, app.ErrPasswordTooShort),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrDonationAmount):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrUsernameExists):
		response.Error(c, http.StatusBadRequest, response.CodeUsernameExists, err.Error())
	case errors.Is(err, app.ErrEmailExists):
		response.Error(c, http.StatusBadRequest, response.CodeEmailExists, err.Error())
	case errors.Is(err, app.ErrPhoneExists):
		response.Error(c, http.StatusBadRequest, response.CodePhoneExists, err.Error())
	case errors.Is(err, app.ErrAccountGone):
		response.Error(c, http.StatusBadRequest, response.CodeAccountGone, err.Error())
	case errors.Is(err, app.ErrInvalidCredential), errors.Is(err, app.ErrInvalidToken):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
	case errors.Is(err, app.ErrNotOwner):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrCampaignNotFound):
		response.Error(c, http.StatusNotFound, response.CodeCampaignNotFound, err.Error())
	case errors.Is(err, app.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
	case errors.Is(err, app.ErrDonationEnqueue):
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServer, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func badPayload(c *gin.Context, err error) {
	_ = c.Error(err)
	response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
}
