package service

import (
	"fmt"
	"net/http"
)

// NotFound is returned for an unknown document session.
type NotFound struct{ ID string }

func (e NotFound) Error() string   { return fmt.Sprintf("document %q not found", e.ID) }
func (e NotFound) StatusCode() int { return http.StatusNotFound }

// BadRequest is returned for input the service cannot act on.
type BadRequest struct{ Msg string }

func (e BadRequest) Error() string   { return e.Msg }
func (e BadRequest) StatusCode() int { return http.StatusBadRequest }
