package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/impexp"
	"tally/internal/services"
	"tally/internal/storage"
)

type transactionDTO struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Date      string          `json:"date"`
	Note      string          `json:"note"`
	Recurring string          `json:"recurring"`
}

func toDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:        t.ID,
		Type:      string(t.Type),
		Amount:    t.Amount,
		Category:  t.Category,
		Date:      t.Date.String(),
		Note:      t.Note,
		Recurring: string(t.Recurring),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.store.ListTransactions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Store order is unspecified; present newest first.
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].ID > txns[j].ID
	})

	dtos := make([]transactionDTO, len(txns))
	for i, t := range txns {
		dtos[i] = toDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	t, err := core.ParseDraft(fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.txns.Create(r.Context(), t)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.dashCache.Clear()
	t.ID = id
	writeJSON(w, http.StatusCreated, toDTO(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	fields, err := parseFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	t, err := core.ParseDraft(fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t.ID = id

	if err := s.txns.Update(r.Context(), t); err != nil {
		s.fail(w, r, err)
		return
	}

	s.dashCache.Clear()
	writeJSON(w, http.StatusOK, toDTO(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.txns.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	s.dashCache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txns, err := s.store.ListTransactions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sort.Slice(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := impexp.Export(w, txns); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV export failed", "error", err)
	}
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	result, err := impexp.Import(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable csv")
		return
	}

	created, failed := s.txns.Import(r.Context(), result.Transactions)
	s.dashCache.Clear()

	writeJSON(w, http.StatusOK, map[string]int{
		"imported": created,
		"skipped":  result.Skipped + failed,
	})
}

type budgetDTO struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Category < budgets[j].Category })

	dtos := make([]budgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = budgetDTO{Category: b.Category, Limit: b.Limit}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var dto budgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	b := core.Budget{Category: dto.Category, Limit: dto.Limit}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpsertBudget(r.Context(), b); err != nil {
		s.fail(w, r, err)
		return
	}

	s.dashCache.Clear()
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if category == "" {
		writeError(w, http.StatusBadRequest, "missing category")
		return
	}

	if err := s.store.DeleteBudget(r.Context(), category); err != nil {
		s.fail(w, r, err)
		return
	}

	s.dashCache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type goalDTO struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Target  decimal.Decimal `json:"target"`
	Current decimal.Decimal `json:"current"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	dtos := make([]goalDTO, len(goals))
	for i, g := range goals {
		dtos[i] = goalDTO{ID: g.ID, Name: g.Name, Target: g.Target, Current: g.Current}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var dto goalDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	g := core.Goal{Name: dto.Name, Target: dto.Target, Current: dto.Current}
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.InsertGoal(r.Context(), g)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	dto.ID = id
	writeJSON(w, http.StatusCreated, dto)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var dto goalDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	g := core.Goal{ID: id, Name: dto.Name, Target: dto.Target, Current: dto.Current}
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateGoal(r.Context(), g); err != nil {
		s.fail(w, r, err)
		return
	}

	dto.ID = id
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteGoal(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dashboardCategory struct {
	Category string           `json:"category"`
	Spent    decimal.Decimal  `json:"spent"`
	Limit    *decimal.Decimal `json:"limit,omitempty"`
}

type dashboardResponse struct {
	Balance    decimal.Decimal     `json:"balance"`
	WindowDays int                 `json:"window_days"`
	Categories []dashboardCategory `json:"categories"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	windowDays := s.defaultWindowDays
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid window")
			return
		}
		windowDays = n
	}

	cacheKey := strconv.Itoa(windowDays)
	if cached, ok := s.dashCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	txns, err := s.store.ListTransactions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	budgets, err := s.store.ListBudgets(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	limits := make(map[string]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		limits[b.Category] = b.Limit
	}

	sums := services.CategoryExpenseSums(txns, windowDays, core.Today())

	resp := dashboardResponse{
		Balance:    services.ComputeBalance(txns),
		WindowDays: windowDays,
		Categories: make([]dashboardCategory, 0, len(sums)),
	}
	for category, spent := range sums {
		entry := dashboardCategory{Category: category, Spent: spent}
		if limit, ok := limits[category]; ok {
			entry.Limit = &limit
		}
		resp.Categories = append(resp.Categories, entry)
	}
	sort.Slice(resp.Categories, func(i, j int) bool {
		return resp.Categories[i].Category < resp.Categories[j].Category
	})

	s.dashCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parseFields flattens a JSON object or form body into the string map shape
// core.ParseDraft consumes.
func parseFields(r *http.Request) (map[string]string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") || contentType == "" {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			fields[k] = stringValue(v)
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		fields[k] = r.PostForm.Get(k)
	}
	return fields, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps service errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Request failed", "error", err,
			"method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidType, core.ErrInvalidAmount, core.ErrInvalidDate,
		core.ErrInvalidRecurrence, core.ErrEmptyCategory, core.ErrEmptyName,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
