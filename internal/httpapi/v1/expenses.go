package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fintrackhq/fintrack/internal/fintrack"
	"github.com/fintrackhq/fintrack/internal/service/expense"
)

func (s *Server) postExpense(w http.ResponseWriter, r *http.Request) {
	idemKey, handled := s.replayIdempotent(w, r, "expense")
	if handled {
		return
	}
	var req postExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	created, err := s.expenses.Create(r.Context(), ownerFrom(r), expense.CreateInput{
		AmountMinor:   req.AmountMinor,
		Description:   req.Description,
		Category:      fintrack.ExpenseCategory(req.Category),
		PaymentMethod: fintrack.PaymentMethod(req.PaymentMethod),
		PaymentDate:   req.PaymentDate,
	})
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	s.rememberIdempotent(r, idemKey, created.ID)
	toJSON(w, http.StatusCreated, idResponse{ID: created.ID})
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	f := filtersFrom(r)
	res, err := s.expenses.List(r.Context(), ownerFrom(r), f)
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	data := make([]expenseResponse, 0, len(res.Data))
	for _, e := range res.Data {
		data = append(data, s.toExpenseResponse(e))
	}
	toJSON(w, http.StatusOK, listEnvelope{
		Data:       data,
		Pagination: s.buildPagination(res.Total, res.TotalMinor, res.NextToken, f.Limit),
	})
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	e, err := s.expenses.Get(r.Context(), ownerFrom(r), id)
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	toJSON(w, http.StatusOK, s.toExpenseResponse(e))
}

func (s *Server) patchExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req patchExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	patch := fintrack.ExpensePatch{
		AmountMinor: req.AmountMinor,
		Description: req.Description,
		PaymentDate: req.PaymentDate,
	}
	if req.Category != nil {
		c := fintrack.ExpenseCategory(*req.Category)
		patch.Category = &c
	}
	if req.PaymentMethod != nil {
		m := fintrack.PaymentMethod(*req.PaymentMethod)
		patch.PaymentMethod = &m
	}
	updated, err := s.expenses.Update(r.Context(), ownerFrom(r), id, patch)
	if err != nil {
		respondErr(w, s.log, err)
		return
	}
	toJSON(w, http.StatusOK, s.toExpenseResponse(updated))
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
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
	if _, err := s.expenses.Delete(r.Context(), ownerFrom(r), id, fintrack.DeleteReason(req.Reason)); err != nil {
		respondErr(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
