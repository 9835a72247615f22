package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"github.com/vadimbarashkov/shortlink/pkg/response"
)

const dateLayout = "2006-01-02"

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

type shortenRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type shortenResponse struct {
	Code     string `json:"code"`
	ShortURL string `json:"short_url"`
	URL      string `json:"url"`
}

type dailyClicksResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type codeStatsResponse struct {
	Code        string                `json:"code"`
	TotalClicks int64                 `json:"total_clicks"`
	DailyClicks []dailyClicksResponse `json:"daily_clicks"`
}

func toCodeStatsResponse(stats *models.CodeStats) codeStatsResponse {
	resp := codeStatsResponse{
		Code:        stats.ShortCode,
		TotalClicks: stats.TotalClicks,
		DailyClicks: make([]dailyClicksResponse, 0, len(stats.DailyClicks)),
	}

	for _, d := range stats.DailyClicks {
		resp.DailyClicks = append(resp.DailyClicks, dailyClicksResponse{
			Date:  d.Date.UTC().Format(dateLayout),
			Count: d.Count,
		})
	}

	return resp
}

type urlResponse struct {
	Code      string    `json:"code"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

func toURLResponse(url models.URL) urlResponse {
	return urlResponse{
		Code:      url.ShortCode,
		URL:       url.OriginalURL,
		CreatedAt: url.CreatedAt,
	}
}

// handleShortenURL handles POST requests to shorten a URL.
//
// A new mapping answers 201, an already shortened url answers 200 with its existing code.
func handleShortenURL(svc ShortenService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const createdMsg = "The URL has been shortened successfully."
	const existingMsg = "The URL was already shortened."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, created, err := svc.Shorten(r.Context(), req.URL)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse(err.Error()))
			case errors.Is(err, service.ErrMaxRetriesExceeded):
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, response.ServiceUnavailableResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		data := shortenResponse{
			Code:     url.ShortCode,
			ShortURL: baseURL + "/" + url.ShortCode,
			URL:      url.OriginalURL,
		}

		if !created {
			render.Status(r, http.StatusOK)
			render.JSON(w, r, response.SuccessResponse(existingMsg, data))
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(createdMsg, data))
	}
}

// handleRedirect answers 302 with the original url in Location.
func handleRedirect(svc RedirectService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.Resolve(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, url, http.StatusFound)
	}
}

func handleGetCodeStats(svc StatsService) http.HandlerFunc {
	const op = "api.http.handleGetCodeStats"
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		stats, err := svc.CodeStats(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toCodeStatsResponse(stats)))
	}
}

func handleGetTotals(svc StatsService) http.HandlerFunc {
	const op = "api.http.handleGetTotals"
	const successMsg = "The service statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := svc.Totals(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, totals))
	}
}
