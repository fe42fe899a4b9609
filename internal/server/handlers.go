package server

import (
	"net/http"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/middleware"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/internal/service"
	"github.com/mdjukic/settleup/pkg/errors"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password"`
}

type sessionResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, token, err := s.auth.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{UserID: user.ID, Email: user.Email, Name: user.Name, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{UserID: user.ID, Email: user.Email, Name: user.Name, Token: token})
}

type transactionRequest struct {
	Amount         int64    `json:"amount"`
	Currency       string   `json:"currency"`
	Date           string   `json:"date"`
	CategoryID     string   `json:"category_id"`
	GroupID        string   `json:"group_id,omitempty"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
}

type splitResponse struct {
	ID           string `json:"id"`
	OwedByUserID string `json:"owed_by_user_id"`
	Amount       int64  `json:"amount"`
	IsPaid       bool   `json:"is_paid"`
}

type transactionResponse struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	AmountInBase    int64           `json:"amount_in_base"`
	RateMissing     bool            `json:"rate_missing,omitempty"`
	Date            string          `json:"date"`
	CategoryID      string          `json:"category_id"`
	GroupID         string          `json:"group_id,omitempty"`
	RecurringRuleID string          `json:"recurring_rule_id,omitempty"`
	Splits          []splitResponse `json:"splits,omitempty"`
}

func toTransactionResponse(tx *models.Transaction, splits []*models.Split) transactionResponse {
	resp := transactionResponse{
		ID:              tx.ID,
		OwnerID:         tx.OwnerID,
		Amount:          tx.Amount,
		Currency:        string(tx.Currency),
		AmountInBase:    tx.AmountInBase,
		RateMissing:     tx.RateMissing,
		Date:            tx.Date.String(),
		CategoryID:      tx.CategoryID,
		GroupID:         tx.GroupID,
		RecurringRuleID: tx.RecurringRuleID,
	}
	for _, sp := range splits {
		resp.Splits = append(resp.Splits, splitResponse{
			ID: sp.ID, OwedByUserID: sp.OwedByUserID, Amount: sp.Amount, IsPaid: sp.IsPaid,
		})
	}
	return resp
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	day, err := date.Parse(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	tx, splits, err := s.ledger.Create(r.Context(), models.TransactionSpec{
		OwnerID:        middleware.GetUserID(r.Context()),
		Amount:         req.Amount,
		Currency:       models.Currency(req.Currency),
		Date:           day,
		CategoryID:     req.CategoryID,
		GroupID:        req.GroupID,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx, splits))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, splits, err := s.ledger.Get(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx, splits))
}

type transactionPatchRequest struct {
	Amount         *int64   `json:"amount"`
	Currency       *string  `json:"currency"`
	Date           *string  `json:"date"`
	CategoryID     *string  `json:"category_id"`
	ParticipantIDs []string `json:"participant_ids"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	patch := models.TransactionPatch{
		Amount:         req.Amount,
		CategoryID:     req.CategoryID,
		ParticipantIDs: req.ParticipantIDs,
	}
	if req.Currency != nil {
		cur := models.Currency(*req.Currency)
		patch.Currency = &cur
	}
	if req.Date != nil {
		day, err := date.Parse(*req.Date)
		if err != nil {
			writeError(w, err)
			return
		}
		patch.Date = &day
	}
	tx, splits, err := s.ledger.Update(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx, splits))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Delete(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type balancesResponse struct {
	GroupID     string           `json:"group_id"`
	Currency    string           `json:"currency"`
	Balances    map[string]int64 `json:"balances"`
	RateMissing bool             `json:"rate_missing,omitempty"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	balances, rateMissing, err := s.settlement.Balances(r.Context(), middleware.GetUserID(r.Context()), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balancesResponse{
		GroupID:     groupID,
		Currency:    string(models.BaseCurrency),
		Balances:    balances,
		RateMissing: rateMissing,
	})
}

type edgeResponse struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

type transfersResponse struct {
	GroupID     string         `json:"group_id"`
	Transfers   []edgeResponse `json:"transfers"`
	RateMissing bool           `json:"rate_missing,omitempty"`
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	edges, rateMissing, err := s.settlement.ProposeTransfers(r.Context(), middleware.GetUserID(r.Context()), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := transfersResponse{GroupID: groupID, RateMissing: rateMissing}
	for _, e := range edges {
		resp.Transfers = append(resp.Transfers, edgeResponse{
			FromUserID: e.FromUserID, ToUserID: e.ToUserID, Amount: e.Amount, Currency: string(e.Currency),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type confirmSettlementRequest struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     int64  `json:"amount"`
	Note       string `json:"note,omitempty"`
}

type settlementResponse struct {
	ID         string `json:"id"`
	GroupID    string `json:"group_id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     int64  `json:"amount"`
	Residual   int64  `json:"residual,omitempty"`
	CreatedBy  string `json:"created_by"`
	Note       string `json:"note,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

func toSettlementResponse(st *models.Settlement) settlementResponse {
	return settlementResponse{
		ID:         st.ID,
		GroupID:    st.GroupID,
		FromUserID: st.FromUserID,
		ToUserID:   st.ToUserID,
		Amount:     st.Amount,
		Residual:   st.Residual,
		CreatedBy:  st.CreatedBy,
		Note:       st.Note,
		CreatedAt:  st.CreatedAt,
	}
}

func (s *Server) handleConfirmSettlement(w http.ResponseWriter, r *http.Request) {
	var req confirmSettlementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	edge := models.SettlementEdge{
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Amount:     req.Amount,
		Currency:   models.BaseCurrency,
	}
	st, err := s.settlement.Confirm(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), edge, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementResponse(st))
}

func (s *Server) handleSettlementHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.settlement.History(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]settlementResponse, 0, len(history))
	for _, st := range history {
		resp = append(resp, toSettlementResponse(st))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createRuleRequest struct {
	TemplateTransactionID string `json:"template_transaction_id"`
	Frequency             string `json:"frequency"`
	DayOfMonth            int    `json:"day_of_month,omitempty"`
	FirstDue              string `json:"first_due"`
}

type ruleResponse struct {
	ID                    string `json:"id"`
	TemplateTransactionID string `json:"template_transaction_id"`
	Frequency             string `json:"frequency"`
	DayOfMonth            int    `json:"day_of_month,omitempty"`
	NextDue               string `json:"next_due"`
	Status                string `json:"status"`
}

func toRuleResponse(rule *models.RecurringRule) ruleResponse {
	return ruleResponse{
		ID:                    rule.ID,
		TemplateTransactionID: rule.TemplateTransactionID,
		Frequency:             string(rule.Frequency),
		DayOfMonth:            rule.DayOfMonth,
		NextDue:               rule.NextDue.String(),
		Status:                string(rule.Status),
	}
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	firstDue, err := date.Parse(req.FirstDue)
	if err != nil {
		writeError(w, err)
		return
	}
	rule, err := s.recurring.CreateRule(r.Context(), middleware.GetUserID(r.Context()),
		req.TemplateTransactionID, models.Frequency(req.Frequency), req.DayOfMonth, firstDue)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (s *Server) handleDueQueue(w http.ResponseWriter, r *http.Request) {
	today, err := queryDate(r, "today")
	if err != nil {
		writeError(w, err)
		return
	}
	queue, err := s.recurring.Due(r.Context(), middleware.GetUserID(r.Context()), today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"due": queue})
}

type confirmRuleRequest struct {
	Amount *int64  `json:"amount"`
	Date   *string `json:"date"`
}

func (s *Server) handleConfirmRule(w http.ResponseWriter, r *http.Request) {
	today, err := queryDate(r, "today")
	if err != nil {
		writeError(w, err)
		return
	}
	var req confirmRuleRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, err)
		return
	}
	overrides := service.MaterializeOverrides{Amount: req.Amount}
	if req.Date != nil {
		day, err := date.Parse(*req.Date)
		if err != nil {
			writeError(w, err)
			return
		}
		overrides.Date = &day
	}
	tx, splits, rule, err := s.recurring.Confirm(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), today, overrides)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionResponse(tx, splits),
		"rule":        toRuleResponse(rule),
	})
}

type postponeRequest struct {
	Days int `json:"days"`
}

func (s *Server) handlePostponeRule(w http.ResponseWriter, r *http.Request) {
	today, err := queryDate(r, "today")
	if err != nil {
		writeError(w, err)
		return
	}
	var req postponeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rule, err := s.recurring.Postpone(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req.Days, today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (s *Server) handleSkipRule(w http.ResponseWriter, r *http.Request) {
	today, err := queryDate(r, "today")
	if err != nil {
		writeError(w, err)
		return
	}
	rule, err := s.recurring.SkipOnce(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (s *Server) handleDisableRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.recurring.Disable(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

// queryDate reads an optional ?today=YYYY-MM-DD override, defaulting to the
// current date. The override keeps scheduling endpoints testable and lets
// clients resolve queues in their own timezone.
func queryDate(r *http.Request, key string) (date.Date, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return date.Today(), nil
	}
	day, err := date.Parse(raw)
	if err != nil {
		return date.Date{}, errors.New(errors.KindValidation, "invalid %s date %q", key, raw)
	}
	return day, nil
}
