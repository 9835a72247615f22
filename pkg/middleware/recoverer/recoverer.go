package recoverer

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlink/pkg/response"
)

// New returns a middleware that turns handler panics into a JSON 500 response.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func New(logger *slog.Logger) func(http.Handler) http.Handler {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}

				if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rvr)
				}

				logger.Error(
					"something went wrong, panic occurred",
					slog.Group(op,
						slog.Any("err", rvr),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					),
				)

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
