package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/service/income"
)

func (s *Server) postIncome(w http.ResponseWriter, r *http.Request) {
	idemKey, handled := s.replayIdempotent(w, r, "income")
	if handled {
		return
	}
	var req postIncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	created, err := s.incomes.Create(r.Context(), ownerFrom(r), income.CreateInput{
		AmountMinor:   req.AmountMinor,
		Description:   req.Description,
		Category:      fintrack.IncomeCategory(req.Category),
		Status:        fintrack.Status(req.Status),
		ProjectedDate: req.ProjectedDate,
		ReceivedDate:  req.ReceivedDate,
	})
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	s.rememberIdempotent(r, idemKey, created.ID)
	toJSON(w, http.StatusCreated, idResponse{ID: created.ID})
}

func (s *Server) listIncomes(w http.ResponseWriter, r *http.Request) {
	f := filtersFrom(r)
	res, err := s.incomes.List(r.Context(), ownerFrom(r), f)
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	data := make([]incomeResponse, 0, len(res.Data))
	for _, in := range res.Data {
		data = append(data, s.toIncomeResponse(in))
	}
	toJSON(w, http.StatusOK, listEnvelope{
		Data:       data,
		Pagination: s.buildPagination(res.Total, res.TotalMinor, res.NextToken, f.Limit),
	})
}

func (s *Server) getIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	in, err := s.incomes.Get(r.Context(), ownerFrom(r), id)
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	toJSON(w, http.StatusOK, s.toIncomeResponse(in))
}

func (s *Server) patchIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req patchIncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	patch := fintrack.IncomePatch{
		AmountMinor:   req.AmountMinor,
		Description:   req.Description,
		ProjectedDate: req.ProjectedDate,
		ReceivedDate:  req.ReceivedDate,
	}
	if req.Category != nil {
		c := fintrack.IncomeCategory(*req.Category)
		patch.Category = &c
	}
	if req.Status != nil {
		st := fintrack.Status(*req.Status)
		patch.Status = &st
	}
	updated, err := s.incomes.Update(r.Context(), ownerFrom(r), id, patch)
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	toJSON(w, http.StatusOK, s.toIncomeResponse(updated))
}

func (s *Server) deleteIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	// Reason comes from the body, falling back to the query string.
	req := deleteRequest{Reason: r.URL.Query().Get("reason")}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		badRequest(w, "invalid json body")
		return
	}
	if _, err := s.incomes.Delete(r.Context(), ownerFrom(r), id, fintrack.DeleteReason(req.Reason)); err != nil {
		respondErr(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
