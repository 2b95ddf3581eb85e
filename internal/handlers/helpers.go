// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"github.com/labstack/echo/v4"
)

// envelope is the uniform JSON response shape for the API.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success writes a success envelope with the given status code.
func Success(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Status: status, Message: message, Data: data})
}

// Error writes an error envelope with the given status code. Internal error
// detail never leaves the process; callers pass a translated message.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, envelope{Status: status, Message: message})
}
