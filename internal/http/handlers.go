package http

import (
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/middleware/trace"
)

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	snap, err := s.store.Current(r.Context())
	if err != nil {
		s.writeError(w, r, "budget", err)
		return
	}
	NewJSONResponse().Body(s.view(snap)).Write(w)
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	p, resp := parseMutation(r, http.MethodPost)
	if resp != nil {
		resp.Write(w)
		return
	}
	amount, err := p.Amount("amount")
	if err != nil {
		s.writeError(w, r, "add_income", err)
		return
	}

	snap, err := s.store.AddIncome(r.Context(), amount)
	if err != nil {
		s.writeError(w, r, "add_income", err)
		return
	}
	s.logger.InfoContext(r.Context(), "Income added",
		log.FieldRequestID, trace.GetRequestID(r.Context()),
		log.FieldPeriod, snap.Record.Period,
		log.FieldAmount, p.Get("amount"))
	NewJSONResponse().Body(s.view(snap)).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	p, resp := parseMutation(r, http.MethodPost)
	if resp != nil {
		resp.Write(w)
		return
	}
	amount, err := p.Amount("amount")
	if err != nil {
		s.writeError(w, r, "add_expense", err)
		return
	}

	res, err := s.store.AddExpense(r.Context(), p.Get("category"), amount, p.Get("note"))
	if err != nil {
		s.writeError(w, r, "add_expense", err)
		return
	}

	fields := log.NewFields().
		WithOperation("add_expense").
		WithPeriod(res.Record.Period).
		WithExpense(res.Entry.ID, res.Entry.Category, res.Entry.Amount.String())
	fields[log.FieldStatus] = res.Warning.String()
	fields[log.FieldRequestID] = trace.GetRequestID(r.Context())
	if res.Warning.Warns() {
		s.logger.WarnContext(r.Context(), "Expense pushes category towards its limit", fields.ToSlice()...)
	} else {
		s.logger.InfoContext(r.Context(), "Expense added", fields.ToSlice()...)
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(expenseCreatedView{
			Expense: newExpenseView(res.Entry),
			Warning: res.Warning,
			Budget:  s.view(res.Snapshot),
		}).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	id := sanitizeInput(r.PathValue("id"))
	snap, err := s.store.DeleteExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "delete_expense", err)
		return
	}
	s.logger.InfoContext(r.Context(), "Expense deleted",
		log.FieldRequestID, trace.GetRequestID(r.Context()),
		log.FieldExpenseID, id)
	NewJSONResponse().Body(s.view(snap)).Write(w)
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	p, resp := parseMutation(r, http.MethodPost)
	if resp != nil {
		resp.Write(w)
		return
	}
	limit, err := p.Amount("limit")
	if err != nil {
		s.writeError(w, r, "set_limit", err)
		return
	}

	snap, err := s.store.SetLimit(r.Context(), p.Get("category"), limit)
	if err != nil {
		s.writeError(w, r, "set_limit", err)
		return
	}
	s.logger.InfoContext(r.Context(), "Limit set",
		log.FieldRequestID, trace.GetRequestID(r.Context()),
		log.FieldCategory, p.Get("category"),
		log.FieldAmount, p.Get("limit"))
	NewJSONResponse().Body(s.view(snap)).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	snap, err := s.store.ResetAll(r.Context())
	if err != nil {
		s.writeError(w, r, "reset", err)
		return
	}
	s.logger.InfoContext(r.Context(), "Budget reset",
		log.FieldRequestID, trace.GetRequestID(r.Context()),
		log.FieldPeriod, snap.Record.Period)
	NewJSONResponse().Body(s.view(snap)).Write(w)
}

// parseMutation checks the method and parses the request input.
func parseMutation(r *http.Request, method string) (*RequestBodyParser, *JSONResponseBuilder) {
	if resp := RequireMethod(r, method); resp != nil {
		return nil, resp
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, BadRequestError(err.Error())
	}
	return p, nil
}

// writeError maps store errors to status codes. Validation problems are the
// caller's to fix; persistence problems are worth a retry.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	fields := log.NewFields().WithOperation(op).WithError(err)
	fields[log.FieldRequestID] = trace.GetRequestID(ctx)

	switch {
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidCategory):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, core.ErrPersistence):
		s.logger.ErrorContext(ctx, "Budget storage unavailable", fields.ToSlice()...)
		ServiceUnavailableError("budget storage unavailable, please retry").Write(w)
	default:
		s.logger.ErrorContext(ctx, "Request failed", fields.ToSlice()...)
		InternalServerError("internal error").Write(w)
	}
}
