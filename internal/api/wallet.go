package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/domain"
)

// ─── Wallet API ─────────────────────────────────────────────────────────────
// REST endpoints for the study dashboard and the CLI.
//
// GET  /api/balance              — current balance
// GET  /api/stats                — balance, counters, recent transactions
// GET  /api/achievements         — all badges (locked + unlocked)
// GET  /api/packages             — purchase catalog
// POST /api/activity/{kind}      — report an activity delta
// POST /api/hydration            — log glasses of water
// POST /api/quiz                 — record a finished quiz
// POST /api/earn                 — credit a bonus
// POST /api/spend                — debit the balance
// POST /api/purchases/confirm    — credit a gateway-confirmed purchase
// POST /api/achievements/check   — re-evaluate badges
// POST /api/reset                — wipe everything (requires confirm)

type transactionResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
	Ref       string `json:"ref,omitempty"`
	Timestamp string `json:"timestamp"`
}

func toTransaction(tx domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:        tx.ID,
		Type:      string(tx.Type),
		Amount:    domain.FormatAmount(tx.Amount),
		Reason:    tx.Reason,
		Ref:       tx.Ref,
		Timestamp: tx.Timestamp.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"balance": domain.FormatAmount(s.wallet.Balance()),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.wallet.Stats()
	txs := make([]transactionResponse, 0, len(st.Transactions))
	for _, tx := range st.Transactions {
		txs = append(txs, toTransaction(tx))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":          domain.FormatAmount(st.Balance),
		"counters":         st.Counters,
		"transactions":     txs,
		"last_active_date": st.LastActiveDate,
		"streak_days":      st.StreakDays,
		"achievements":     st.Achievements,
		"perfect_quizzes":  st.PerfectQuizzes,
		"today": map[string]interface{}{
			"date":                 st.Daily.Date,
			"counts":               st.Daily.Counts,
			"hydration":            st.Daily.Hydration,
			"hydration_bonus_paid": st.Daily.HydrationBonusPaid,
			"perfect_quiz":         st.Daily.PerfectQuiz,
		},
	})
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	list := s.wallet.Achievements()
	unlocked := 0
	for _, a := range list {
		if a.Unlocked {
			unlocked++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"achievements": list,
		"unlocked":     unlocked,
		"total":        len(list),
	})
}

func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	type pkg struct {
		ID      string `json:"id"`
		Price   string `json:"price"`
		Credits string `json:"credits"`
	}
	catalog := make([]domain.PurchasePackage, 0)
	for _, p := range s.wallet.Packages() {
		catalog = append(catalog, p)
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Price.LessThan(catalog[j].Price) })

	out := make([]pkg, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, pkg{ID: p.ID, Price: domain.FormatAmount(p.Price), Credits: p.Credits.String()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"packages": out})
}

// ─── Producers ──────────────────────────────────────────────────────────────

type deltaRequest struct {
	Delta int64 `json:"delta"`
}

func (s *Server) handleTrackActivity(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseActivityKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req deltaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	award, err := s.wallet.TrackActivity(r.Context(), kind, req.Delta)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":        award.Kind,
		"count":       award.After,
		"crossed":     award.Crossed,
		"earned":      domain.FormatAmount(award.Amount),
		"balance":     domain.FormatAmount(s.wallet.Balance()),
		"description": award.Description,
	})
}

func (s *Server) handleHydration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Units int `json:"units"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.wallet.TrackHydration(r.Context(), req.Units); err != nil {
		writeDomainError(w, err)
		return
	}
	st := s.wallet.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hydration":  st.Daily.Hydration,
		"bonus_paid": st.Daily.HydrationBonusPaid,
		"balance":    domain.FormatAmount(st.Balance),
	})
}

func (s *Server) handleQuizResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Correct int `json:"correct"`
		Total   int `json:"total"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.wallet.RecordQuizResult(r.Context(), req.Correct, req.Total); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"perfect":         req.Correct == req.Total,
		"perfect_quizzes": s.wallet.Stats().PerfectQuizzes,
	})
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (s *Server) handleEarn(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "Bonus"
	}
	tx, err := s.wallet.Earn(r.Context(), req.Amount, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeTransaction(w, http.StatusCreated, tx)
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		writeErrorType(w, http.StatusBadRequest, "reason is required", "invalid_request")
		return
	}
	tx, err := s.wallet.Spend(r.Context(), req.Amount, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeTransaction(w, http.StatusCreated, tx)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var conf domain.PurchaseConfirmation
	if !decodeJSON(w, r, &conf) {
		return
	}
	tx, err := s.wallet.Purchase(r.Context(), conf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.log.Info().Str("package", conf.PackageID).Str("ref", conf.Ref).Msg("purchase confirmed over api")
	s.writeTransaction(w, http.StatusCreated, tx)
}

func (s *Server) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	unlocked := s.wallet.CheckAchievements(r.Context())
	if unlocked == nil {
		unlocked = []domain.AchievementDef{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"unlocked": unlocked})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Confirm {
		writeErrorType(w, http.StatusBadRequest, "reset requires \"confirm\": true", "invalid_request")
		return
	}
	s.wallet.Reset(r.Context())
	s.log.Warn().Msg("wallet reset over api")
	writeJSON(w, http.StatusOK, map[string]string{
		"balance": domain.FormatAmount(s.wallet.Balance()),
	})
}

func (s *Server) writeTransaction(w http.ResponseWriter, status int, tx domain.Transaction) {
	writeJSON(w, status, map[string]interface{}{
		"transaction": toTransaction(tx),
		"balance":     domain.FormatAmount(s.wallet.Balance()),
	})
}
