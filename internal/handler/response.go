package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"village-portal/internal/model"
	"village-portal/internal/reconcile"
	"village-portal/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classifyError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func classifyError(err error) (int, *model.APIError) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var (
		validationErr *reconcile.ValidationError
		unknownErr    *reconcile.UnknownChildError
		fieldErrs     validator.ValidationErrors
		maxBytesErr   *http.MaxBytesError
	)

	if apiErr, ok := apierror.As(err); ok {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.As(err, &maxBytesErr) {
		tooLarge := apierror.PayloadTooLarge(maxBytesErr.Limit)
		status = tooLarge.HTTPStatus
		body.Code = tooLarge.Code
		body.Message = tooLarge.Message
		body.Details = tooLarge.Details
	} else if errors.Is(err, model.ErrMissingToken) {
		status = http.StatusUnauthorized
		body.Code = "MISSING_TOKEN"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrExpiredToken) {
		status = http.StatusUnauthorized
		body.Code = "TOKEN_EXPIRED"
		body.Message = "Token has expired"
	} else if errors.Is(err, model.ErrInvalidToken) {
		status = http.StatusForbidden
		body.Code = "INVALID_TOKEN"
		body.Message = "Invalid token"
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusBadRequest
		body.Code = "INVALID_CREDENTIALS"
		body.Message = "Invalid username or password"
	} else if errors.Is(err, model.ErrForbidden) || errors.Is(err, model.ErrRoleNotAssignable) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Access denied"
	} else if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrActorNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Resource not found"
	} else if errors.Is(err, reconcile.ErrParentNotFound) {
		status = http.StatusNotFound
		body.Code = "PARENT_NOT_FOUND"
		body.Message = "Parent resource not found"
	} else if errors.Is(err, model.ErrUsernameTaken) {
		status = http.StatusConflict
		body.Code = "ALREADY_EXISTS"
		body.Message = "Username already taken"
	} else if errors.Is(err, model.ErrEmailTaken) {
		status = http.StatusConflict
		body.Code = "ALREADY_EXISTS"
		body.Message = "Email already taken"
	} else if errors.Is(err, model.ErrAlreadyExists) {
		status = http.StatusConflict
		body.Code = "ALREADY_EXISTS"
		body.Message = "Resource already exists"
	} else if errors.Is(err, model.ErrInUse) {
		status = http.StatusConflict
		body.Code = "IN_USE"
		body.Message = "Resource is still referenced"
	} else if errors.As(err, &validationErr) {
		index := validationErr.Index
		status = http.StatusBadRequest
		body.Code = "VALIDATION_ERROR"
		body.Message = validationErr.Message
		body.Details = validationErr.Field
		body.Index = &index
		body.ItemID = validationErr.ID
	} else if errors.As(err, &unknownErr) {
		index := unknownErr.Index
		status = http.StatusBadRequest
		body.Code = "UNKNOWN_CHILD"
		body.Message = "Item does not belong to this parent"
		body.Index = &index
		body.ItemID = unknownErr.ID
	} else if errors.As(err, &fieldErrs) {
		status = http.StatusBadRequest
		body.Code = "VALIDATION_ERROR"
		body.Message = "Invalid input"
		body.Details = describeFieldErrors(fieldErrs)
	} else if errors.Is(err, model.ErrPasswordMismatch) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Password confirmation does not match"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
		body.Details = err.Error()
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	return status, body
}

func describeFieldErrors(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// decodeJSON reads one JSON value from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apierror.PayloadTooLarge(maxBytesErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is empty", "")
		}
		return apierror.BadRequest("invalid JSON body", err.Error())
	}
	return nil
}
