package http

import (
	"net/http"

	"github.com/dejobratic/libris/internal/accounts"
	"github.com/dejobratic/libris/internal/catalog"
)

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, catalog.ErrBookNotFound.Error())
		return
	}
	book, err := h.books.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"book": book})
}

func (h *Handler) addBook(w http.ResponseWriter, r *http.Request, _ *accounts.Profile) {
	var payload catalog.NewBook
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	book, err := h.books.Add(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"book": book})
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request, _ *accounts.Profile) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, catalog.ErrBookNotFound.Error())
		return
	}
	var payload catalog.BookUpdate
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	book, err := h.books.Update(r.Context(), id, payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"book": book})
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request, _ *accounts.Profile) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, catalog.ErrBookNotFound.Error())
		return
	}
	if err := h.books.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ratePayload struct {
	Value int `json:"value"`
}

func (h *Handler) rateBook(w http.ResponseWriter, r *http.Request, _ *accounts.Profile) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, catalog.ErrBookNotFound.Error())
		return
	}
	var payload ratePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	book, err := h.books.Rate(r.Context(), id, payload.Value)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"book": book})
}
