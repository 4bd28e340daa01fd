package middleware

import (
	"net/http"
	"runtime/debug"

	"linkloom/pkg/logger"
	"linkloom/pkg/utils"
)

// Recovery converts panics into 500 responses. The stack trace goes to the
// log only; the response body stays generic.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						logger.String("path", r.URL.Path),
						logger.String("panic", toString(err)),
						logger.String("stack", string(debug.Stack())),
					)
					utils.WriteInternalServerErrorResponse(w, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func toString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}
