package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/pkg/response"
)

type deletedURLResponse struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

type deletedCountResponse struct {
	Deleted int64 `json:"deleted"`
}

func handleListURLs(svc AdminService) http.HandlerFunc {
	const op = "api.http.handleListURLs"
	const successMsg = "The URLs retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		urls, err := svc.List(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]urlResponse, 0, len(urls))
		for _, url := range urls {
			data = append(data, toURLResponse(url))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

func handleDeleteURL(svc AdminService) http.HandlerFunc {
	const op = "api.http.handleDeleteURL"
	const successMsg = "The URL was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.Delete(r.Context(), shortCode)
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
		render.JSON(w, r, response.SuccessResponse(successMsg, deletedURLResponse{Code: shortCode, URL: url}))
	}
}

func handleDeleteAllURLs(svc AdminService) http.HandlerFunc {
	const op = "api.http.handleDeleteAllURLs"
	const successMsg = "All URLs were successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.DeleteAll(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, deletedCountResponse{Deleted: n}))
	}
}
