package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
)

const genericErrorMessage = "Something went wrong. Please try again."

// internalError logs err and hides it from the client.
func internalError(log *slog.Logger, op string, err error) error {
	log.Error("request failed", "op", op, "err", err)
	return apis.NewInternalServerError(genericErrorMessage, nil)
}

func invalidForm(err error) error {
	return apis.NewBadRequestError("Please check the highlighted fields.", err)
}

func conflictError(message string) error {
	return apis.NewApiError(http.StatusConflict, message, nil)
}
