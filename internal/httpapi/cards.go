package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) postCard(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyPostCard).(postCardRequest)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.records.CreateCard(r.Context(), toCardDomain(req))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toCardResponse(created))
}

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListCards(r.Context())
	if err != nil {
		writeReadErr(w, err)
		return
	}
	items := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		items = append(items, toCardResponse(c))
	}
	toJSON(w, http.StatusOK, items)
}

func (s *Server) getCard(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	c, err := s.store.GetCard(r.Context(), id)
	if err != nil {
		writeReadErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCardResponse(c))
}

func (s *Server) patchCard(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	current, err := s.store.GetCard(r.Context(), id)
	if err != nil {
		writeReadErr(w, err)
		return
	}
	req := postCardRequest{
		LedgerID:   current.LedgerID,
		Name:       current.Name,
		ClosingDay: current.ClosingDay,
		DueDay:     current.DueDay,
		Currency:   current.Limit.Curr().Code(),
	}
	req.LimitMinor, _ = current.Limit.MinorUnits()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	c := toCardDomain(req)
	c.ID = id
	updated, err := s.records.UpdateCard(r.Context(), c)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCardResponse(updated))
}

func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if err := s.records.DeleteCard(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
