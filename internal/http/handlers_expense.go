package http

import (
	"net/http"
	"sync/atomic"

	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/services"
)

func (s *Server) listView(r *http.Request) (expenseListView, error) {
	items, _, err := s.expenses.Snapshot(r.Context())
	if err != nil {
		return expenseListView{}, err
	}
	return expenseListView{Items: items, Currency: s.prefs(r).Currency}, nil
}

func (s *Server) handleExpensesPage(w http.ResponseWriter, r *http.Request) {
	list, err := s.listView(r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list expenses", "error", err)
		http.Error(w, "failed to load expenses", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "expenses_page", expensesView{
		layoutView: s.layout(r, "expenses", "My Expenses"),
		List:       list,
	})
}

// handleExpenseList renders the list partial refreshed on expenses:changed.
func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	list, err := s.listView(r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list expenses", "error", err)
		InternalServerError("Could not load expenses").Write(w)
		return
	}
	s.render(w, r, "expense_list", list)
}

func (s *Server) handleNewExpenseForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, s.newForm(r, 0, services.ExpenseInput{}))
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		var e core.Expense
		if e, err = s.expenses.GetExpense(r.Context(), id); err == nil {
			s.renderForm(w, r, s.newForm(r, id, services.InputFrom(e)))
			return
		}
	}
	status, msg := classifyError(err)
	ErrorResponse(status, msg).Write(w)
}

// renderForm serves the form as a partial for htmx and inside the full
// expenses page otherwise.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, form expenseFormView) {
	if isHTMX(r) {
		s.render(w, r, "expense_form", form)
		return
	}
	list, err := s.listView(r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list expenses", "error", err)
		http.Error(w, "failed to load expenses", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "expenses_page", expensesView{
		layoutView: s.layout(r, "expenses", "My Expenses"),
		List:       list,
		Form:       &form,
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseInput(w, r)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Parse form error", "error", err)
		BadRequestError("Invalid request format").Retarget("#form-errors").Write(w)
		return
	}

	e, err := s.expenses.CreateExpense(r.Context(), in)
	if err != nil {
		s.writeFormError(w, r, 0, in, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.expensesCreated, 1)
	s.eventLog(r).LogExpenseChange(r.Context(), log.OpCreate, e.ID, e.Title, e.Amount.Cents, e.Category.String())

	if !isHTMX(r) {
		http.Redirect(w, r, "/expenses", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerExpensesChanged(e.ID, "created").
		TriggerFormClose().
		TriggerSuccessNotification("Added " + e.Title).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeFormError(w, r, 0, services.ExpenseInput{}, err)
		return
	}
	in, err := ParseExpenseInput(w, r)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Parse form error", "error", err)
		BadRequestError("Invalid request format").Retarget("#form-errors").Write(w)
		return
	}

	e, err := s.expenses.UpdateExpense(r.Context(), id, in)
	if err != nil {
		s.writeFormError(w, r, id, in, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.expensesUpdated, 1)
	s.eventLog(r).LogExpenseChange(r.Context(), log.OpUpdate, e.ID, e.Title, e.Amount.Cents, e.Category.String())

	if !isHTMX(r) {
		http.Redirect(w, r, "/expenses", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerExpensesChanged(e.ID, "updated").
		TriggerFormClose().
		TriggerSuccessNotification("Updated " + e.Title).
		Write(w)
}

// handleDeleteExpense serves both DELETE /expenses/{id} and the no-JS
// POST /expenses/{id}/delete fallback.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.expenses.DeleteExpense(r.Context(), id)
	}
	if err != nil {
		status, msg := classifyError(err)
		if status >= http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), "Failed to delete expense", "error", err, log.FieldExpenseID, id)
		}
		ErrorResponse(status, msg).Retarget("#notifications").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.expensesDeleted, 1)
	s.eventLog(r).LogExpenseChange(r.Context(), log.OpDelete, id, "", 0, "")

	if !isHTMX(r) {
		http.Redirect(w, r, "/expenses", http.StatusSeeOther)
		return
	}
	// The row is the hx-target; an empty 200 body removes it.
	NewHTMXResponse().
		TriggerExpensesChanged(id, "deleted").
		Write(w)
}

// writeFormError re-renders the form with the validation message. htmx
// requests get only the message, swapped into #form-errors.
func (s *Server) writeFormError(w http.ResponseWriter, r *http.Request, id int64, in services.ExpenseInput, err error) {
	status, msg := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Failed to save expense", "error", err, log.FieldExpenseID, id)
	} else {
		s.logger.DebugContext(r.Context(), "Rejected expense input", "error", err, log.FieldExpenseID, id)
	}

	if isHTMX(r) || status == http.StatusNotFound || status == http.StatusBadRequest {
		ErrorResponse(status, msg).Retarget("#form-errors").Write(w)
		return
	}

	form := s.newForm(r, id, in)
	form.Error = msg
	list, listErr := s.listView(r)
	if listErr != nil {
		ErrorResponse(status, msg).Write(w)
		return
	}
	s.renderStatus(w, r, status, "expenses_page", expensesView{
		layoutView: s.layout(r, "expenses", "My Expenses"),
		List:       list,
		Form:       &form,
	})
}
