package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"village-portal/internal/model"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			slog.Error("panic recovered",
				"request_id", RequestID(r.Context()),
				"path", r.URL.Path,
				"error", fmt.Sprintf("%v", recovered),
				"stack", string(debug.Stack()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = jsonEncode(w, model.APIResponse{
				Success: false,
				Error: &model.APIError{
					Code:    "INTERNAL_ERROR",
					Message: "Unexpected server error",
				},
			})
		}()

		next.ServeHTTP(w, r)
	})
}
