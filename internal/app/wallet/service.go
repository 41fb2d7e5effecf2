// Package wallet is the composition root of the currency engine.
//
// A Service owns the ledger, the activity counters, the inactivity and
// achievement evaluators, and the event bus. Every public method runs to
// completion under one mutex, then persists the full snapshot and publishes
// events, in that order.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/app/achievement"
	"github.com/studybunny/carrot/internal/app/activity"
	"github.com/studybunny/carrot/internal/app/inactivity"
	"github.com/studybunny/carrot/internal/app/ledger"
	"github.com/studybunny/carrot/internal/app/notify"
	"github.com/studybunny/carrot/internal/domain"
	"github.com/studybunny/carrot/internal/infra/observability"
)

// Service is the single owner of ledger state.
type Service struct {
	mu sync.Mutex

	cfg       Config
	persist   *persister
	ledger    *ledger.Ledger
	acc       *activity.Accumulator
	penalties *inactivity.Evaluator
	badges    *achievement.Evaluator
	bus       *notify.Bus
	sink      domain.Sink
	log       zerolog.Logger
	metrics   *observability.Metrics
	now       func() time.Time

	booted         bool
	report         BootReport
	lastActive     string
	achievements   []string
	streak         int
	daily          domain.DailyLog
	perfectQuizzes int
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// WithMetrics records Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithSink adds a sink that receives every event alongside the bus.
func WithSink(sink domain.Sink) Option {
	return func(s *Service) { s.sink = notify.Multi{s.sink, sink} }
}

// New builds a Service over store. Nothing is loaded until Boot.
func New(store domain.StateStore, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("wallet config: %w", err)
	}
	penalties, err := inactivity.NewEvaluator(cfg.Tiers)
	if err != nil {
		return nil, fmt.Errorf("wallet config: %w", err)
	}
	acc, err := activity.NewAccumulator(cfg.Rules, nil)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:          cfg,
		acc:          acc,
		penalties:    penalties,
		badges:       achievement.NewEvaluator(cfg.Achievements),
		bus:          notify.NewBus(),
		log:          zerolog.Nop(),
		now:          time.Now,
		achievements: []string{},
	}
	s.sink = s.bus
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(decimal.Zero, nil, s.now)
	s.daily = domain.NewDailyLog(s.today())
	s.persist = newPersister(store, cfg.Breaker, cfg.SaveTimeout, s.log, s.metrics)
	s.bus.OnDrop(func(domain.Event) { s.metrics.ObserveDroppedEvent() })
	return s, nil
}

// ─── Boot ───────────────────────────────────────────────────────────────────

// BootReport summarizes session start.
type BootReport struct {
	Restored   bool               // a snapshot was loaded
	Fallback   bool               // the stored snapshot was unusable; defaults used
	LoadError  error              // why Fallback happened
	Inactivity inactivity.Outcome // penalty evaluation result
}

// Boot loads persisted state and runs the inactivity evaluation. It never
// fails: unreadable state is replaced by defaults. Later calls return the
// first report.
func (s *Service) Boot(ctx context.Context) BootReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.Event
	s.bootLocked(ctx, &events)
	s.publish(events)
	return s.report
}

func (s *Service) bootLocked(ctx context.Context, events *[]domain.Event) {
	if s.booted {
		return
	}
	s.booted = true

	snap, err := s.persist.store.Load(ctx)
	switch {
	case err == nil:
		s.report.Restored = true
	case errors.Is(err, domain.ErrNoSnapshot):
		snap = domain.NewSnapshot()
	default:
		s.report.Fallback = true
		s.report.LoadError = err
		s.metrics.ObserveLoadFallback()
		s.log.Error().Err(err).Msg("could not load ledger state; starting from defaults")
		snap = domain.NewSnapshot()
	}
	s.restoreLocked(snap)

	today := s.today()
	s.report.Inactivity = s.evaluateInactivityLocked(today, events)
	s.rollDailyLocked(today)
	s.checkAchievementsLocked(events)
	s.saveLocked(ctx)

	s.metrics.SetBalance(s.ledger.Balance())
	*events = append(*events, s.balanceEvent(domain.SeverityInfo, ""))
	s.log.Info().
		Str("balance", domain.FormatAmount(s.ledger.Balance())).
		Str("last_active", s.lastActive).
		Int("streak", s.streak).
		Bool("restored", s.report.Restored).
		Msg("wallet booted")
}

func (s *Service) restoreLocked(snap domain.Snapshot) {
	s.ledger = ledger.New(snap.Balance, snap.Transactions, s.now)
	acc, err := activity.NewAccumulator(s.cfg.Rules, snap.Counters)
	if err == nil {
		s.acc = acc
	}
	s.lastActive = snap.LastActiveDate
	s.achievements = append([]string{}, snap.Achievements...)
	s.streak = snap.StreakDays
	s.daily = snap.Daily
	if s.daily.Counts == nil {
		s.daily.Counts = domain.NewCounters()
	}
	s.perfectQuizzes = snap.PerfectQuizzes
}

// ensureSessionLocked boots on first use and re-runs the inactivity check
// when the calendar day changed during a long-lived session. It reports
// whether it changed state that has not been saved yet.
func (s *Service) ensureSessionLocked(ctx context.Context, events *[]domain.Event) bool {
	if !s.booted {
		s.bootLocked(ctx, events)
		return false
	}
	today := s.today()
	dirty := s.lastActive != today || s.daily.Date != today
	if s.lastActive != today {
		s.evaluateInactivityLocked(today, events)
	}
	s.rollDailyLocked(today)
	return dirty
}

func (s *Service) evaluateInactivityLocked(today string, events *[]domain.Event) inactivity.Outcome {
	out, err := s.penalties.Evaluate(s.lastActive, today, s.streak)
	if err != nil {
		// A malformed date cannot be reasoned about; restart the calendar.
		s.log.Warn().Err(err).Str("last_active", s.lastActive).Msg("resetting last active date")
		out = inactivity.Outcome{FirstRun: true, NewDate: today, StreakDays: 1}
	}
	if out.Penalized() {
		tx, _ := s.ledger.ApplyPenalty(out.Tier.Penalty, out.Reason())
		s.metrics.ObserveTransaction(tx, s.ledger.Balance())
		*events = append(*events, s.balanceEvent(out.Tier.Severity, out.Message()))
		s.log.Warn().Int("days", out.DaysInactive).Str("penalty", domain.FormatAmount(out.Tier.Penalty)).
			Msg("inactivity penalty applied")
	}
	if !out.Skipped {
		s.metrics.ObserveIdleDays(out.DaysInactive)
	}
	s.lastActive = out.NewDate
	s.streak = out.StreakDays
	return out
}

func (s *Service) rollDailyLocked(today string) {
	if s.daily.Date != today {
		s.daily = domain.NewDailyLog(today)
	}
}

// ─── Producers ──────────────────────────────────────────────────────────────

// TrackActivity adds an incremental delta for kind and pays any thresholds
// crossed.
func (s *Service) TrackActivity(ctx context.Context, kind domain.ActivityKind, delta int64) (activity.Award, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.Event
	defer func() { s.publish(events) }()
	dirty := s.ensureSessionLocked(ctx, &events)

	award, err := s.acc.Track(kind, delta)
	if err != nil {
		return activity.Award{}, s.rejectLocked(ctx, dirty, err)
	}
	s.daily.Counts[kind] = addCapped(s.daily.Counts[kind], delta)
	s.metrics.ObserveActivity(kind, delta, award.Crossed)

	if award.Earned() {
		if _, err := s.earnLocked(award.Amount, award.Description, &events); err != nil {
			// The counter already moved.
			s.saveLocked(ctx)
			return award, err
		}
	}
	s.checkAchievementsLocked(&events)
	s.saveLocked(ctx)
	return award, nil
}

// TrackTodoCompleted reports completed tasks.
func (s *Service) TrackTodoCompleted(ctx context.Context, n int64) (activity.Award, error) {
	return s.TrackActivity(ctx, domain.ActivityTasksCompleted, n)
}

// TrackWordsWritten reports newly written words.
func (s *Service) TrackWordsWritten(ctx context.Context, n int64) (activity.Award, error) {
	return s.TrackActivity(ctx, domain.ActivityWordsWritten, n)
}

// TrackPomodoroMinutes reports finished focus minutes.
func (s *Service) TrackPomodoroMinutes(ctx context.Context, n int64) (activity.Award, error) {
	return s.TrackActivity(ctx, domain.ActivityFocusMinutes, n)
}

// TrackFlashcardCorrect reports correctly answered flashcards.
func (s *Service) TrackFlashcardCorrect(ctx context.Context, n int64) (activity.Award, error) {
	return s.TrackActivity(ctx, domain.ActivityFlashcardsCorrect, n)
}

// TrackQuizCorrect reports correct quiz answers.
func (s *Service) TrackQuizCorrect(ctx context.Context, n int64) (activity.Award, error) {
	return s.TrackActivity(ctx, domain.ActivityQuizCorrect, n)
}

// TrackHydration records glasses of water. Reaching the daily hydration goal
// pays the hydration bonus once per day.
func (s *Service) TrackHydration(ctx context.Context, units int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.Event
	defer func() { s.publish(events) }()
	dirty := s.ensureSessionLocked(ctx, &events)

	if units <= 0 || units > math.MaxInt-s.daily.Hydration {
		err := fmt.Errorf("%w: hydration units %d", domain.ErrInvalidAmount, units)
		return s.rejectLocked(ctx, dirty, err)
	}
	s.daily.Hydration += units

	goal := s.cfg.Goals.Hydration
	if goal > 0 && s.daily.Hydration >= goal && !s.daily.HydrationBonusPaid && s.cfg.HydrationBonus.IsPositive() {
		if _, err := s.earnLocked(s.cfg.HydrationBonus, "Daily hydration goal achieved!", &events); err == nil {
			s.daily.HydrationBonusPaid = true
		}
	}
	s.checkAchievementsLocked(&events)
	s.saveLocked(ctx)
	return nil
}

// RecordQuizResult records a finished quiz. It only tracks whether the score
// was perfect; correct answers are reported through TrackQuizCorrect.
func (s *Service) RecordQuizResult(ctx context.Context, correct, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.Event
	defer func() { s.publish(events) }()
	dirty := s.ensureSessionLocked(ctx, &events)

	if total <= 0 || correct < 0 || correct > total {
		err := fmt.Errorf("%w: quiz result %d/%d", domain.ErrInvalidAmount, correct, total)
		return s.rejectLocked(ctx, dirty, err)
	}
	if correct == total {
		s.perfectQuizzes++
		s.daily.PerfectQuiz = true
	}
	s.checkAchievementsLocked(&events)
	s.saveLocked(ctx)
	return nil
}

// ─── Direct Ledger Access ───────────────────────────────────────────────────

// Earn credits a bespoke bonus outside the threshold system.
func (s *Service) Earn(ctx context.Context, amount decimal.Decimal, reason string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.Event
	defer func() { s.publish(events) }()
	dirty := s.ensureSessionLocked(ctx, &events)

	tx, err := s.earnLocked(amount, reason, &events)
	if err != nil {
		if dirty {
			s.saveLocked(ctx)
		}
		return tx, err
	}
	s.checkAchievementsLocked(&events)
	s.saveLocked(ctx)
	return tx, nil
}

// Spend debits the balance. It returns ErrInsufficientFunds, leaving the
// balance untouched, when the balance does not cover amount.
func (s *Service) Spend(ctx context.Context, amount decimal.Decimal, reason string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.Event
	defer func() { s.publish(events) }()
	dirty := s.ensureSessionLocked(ctx, &events)

	tx, err := s.ledger.Spend(amount, reason)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			events = append(events, s.notice(domain.SeverityError, "Insufficient CC! 🥕"))
		}
		return tx, s.rejectLocked(ctx, dirty, err)
	}
	s.metrics.ObserveTransaction(tx, s.ledger.Balance())
	events = append(events, s.balanceEvent(domain.SeverityInfo,
		fmt.Sprintf("-%s CC spent on %s", domain.FormatAmount(tx.Amount), reason)))
	s.checkAchievementsLocked(&events)
	s.saveLocked(ctx)
	return tx, nil
}

// Purchase credits a package once the payment gateway has confirmed it.
// Replayed confirmations with the same ref are rejected.
func (s *Service) Purchase(ctx context.Context, conf domain.PurchaseConfirmation) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.Event
	defer func() { s.publish(events) }()
	dirty := s.ensureSessionLocked(ctx, &events)

	pkg, ok := s.cfg.Packages[conf.PackageID]
	if !ok {
		err := fmt.Errorf("%w: %q", domain.ErrUnknownPackage, conf.PackageID)
		return domain.Transaction{}, s.rejectLocked(ctx, dirty, err)
	}
	tx, err := s.ledger.Purchase(pkg, conf.Ref)
	if err != nil {
		return tx, s.rejectLocked(ctx, dirty, err)
	}
	s.metrics.ObserveTransaction(tx, s.ledger.Balance())
	events = append(events, s.balanceEvent(domain.SeveritySuccess,
		fmt.Sprintf("Purchased %s CC! Thank you for supporting Study Bunny! 🥕", pkg.Credits.String())))
	s.log.Info().Str("package", pkg.ID).Str("ref", conf.Ref).Msg("purchase credited")
	s.checkAchievementsLocked(&events)
	s.saveLocked(ctx)
	return tx, nil
}

// CheckAchievements re-evaluates every rule and returns the badges unlocked
// by this call. Calling it again without a state change returns nothing.
func (s *Service) CheckAchievements(ctx context.Context) []domain.AchievementDef {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.Event
	defer func() { s.publish(events) }()
	dirty := s.ensureSessionLocked(ctx, &events)

	unlocked := s.checkAchievementsLocked(&events)
	if dirty || len(unlocked) > 0 {
		s.saveLocked(ctx)
	}
	return unlocked
}

// Reset reinitializes everything to defaults. The caller is responsible for
// confirming with the user first.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.Event
	defer func() { s.publish(events) }()
	s.booted = true

	today := s.today()
	s.ledger.Reset()
	s.acc.Reset()
	s.achievements = []string{}
	s.lastActive = today
	s.streak = 1
	s.daily = domain.NewDailyLog(today)
	s.perfectQuizzes = 0

	s.metrics.SetBalance(s.ledger.Balance())
	s.saveLocked(ctx)
	events = append(events, s.balanceEvent(domain.SeverityInfo, "CC system reset!"))
	s.log.Warn().Msg("wallet reset to defaults")
}

// ─── Readers ────────────────────────────────────────────────────────────────

// Stats is the dashboard view of the wallet.
type Stats struct {
	Balance        decimal.Decimal      `json:"balance"`
	Counters       domain.Counters      `json:"counters"`
	Transactions   []domain.Transaction `json:"transactions"`
	LastActiveDate string               `json:"last_active_date"`
	StreakDays     int                  `json:"streak_days"`
	Achievements   []string             `json:"achievements"`
	Daily          domain.DailyLog      `json:"daily"`
	PerfectQuizzes int                  `json:"perfect_quizzes"`
}

// Balance returns the current balance.
func (s *Service) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance()
}

// Stats returns balance, counters, the most recent transactions and dates.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Balance:        s.ledger.Balance(),
		Counters:       s.acc.Counters(),
		Transactions:   s.ledger.Transactions(s.cfg.StatsHistory),
		LastActiveDate: s.lastActive,
		StreakDays:     s.streak,
		Achievements:   append([]string{}, s.achievements...),
		Daily:          s.dailyCopy(),
		PerfectQuizzes: s.perfectQuizzes,
	}
}

// AchievementStatus pairs a badge with whether it is unlocked.
type AchievementStatus struct {
	domain.AchievementDef
	Unlocked bool `json:"unlocked"`
}

// Achievements lists every badge in table order.
func (s *Service) Achievements() []AchievementStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	have := make(map[string]bool, len(s.achievements))
	for _, id := range s.achievements {
		have[id] = true
	}
	defs := s.badges.Definitions()
	out := make([]AchievementStatus, 0, len(defs))
	for _, d := range defs {
		out = append(out, AchievementStatus{AchievementDef: d, Unlocked: have[d.ID]})
	}
	return out
}

// Packages returns the purchase catalog.
func (s *Service) Packages() map[string]domain.PurchasePackage {
	out := make(map[string]domain.PurchasePackage, len(s.cfg.Packages))
	for k, v := range s.cfg.Packages {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of the full persisted state.
func (s *Service) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe streams future events. Call cancel to unsubscribe.
func (s *Service) Subscribe(buffer int) (<-chan domain.Event, func()) {
	return s.bus.Subscribe(buffer)
}

// StoreHealthy reports whether saves are currently flowing.
func (s *Service) StoreHealthy() bool { return s.persist.healthy() }

// BreakerState names the save breaker state: closed, half-open or open.
func (s *Service) BreakerState() string { return s.persist.state().String() }

// ─── Internals ──────────────────────────────────────────────────────────────

// rejectLocked counts a rejected request and returns err. Anything the
// session step changed before the rejection is still saved.
func (s *Service) rejectLocked(ctx context.Context, dirty bool, err error) error {
	s.reject(err)
	if dirty {
		s.saveLocked(ctx)
	}
	return err
}

func addCapped(n, delta int64) int64 {
	if delta > math.MaxInt64-n {
		return math.MaxInt64
	}
	return n + delta
}

func (s *Service) earnLocked(amount decimal.Decimal, reason string, events *[]domain.Event) (domain.Transaction, error) {
	tx, err := s.ledger.Earn(amount, reason)
	if err != nil {
		s.reject(err)
		return tx, err
	}
	s.metrics.ObserveTransaction(tx, s.ledger.Balance())
	*events = append(*events, s.balanceEvent(domain.SeveritySuccess,
		fmt.Sprintf("+%s CC earned! %s", domain.FormatAmount(tx.Amount), reason)))
	return tx, nil
}

func (s *Service) checkAchievementsLocked(events *[]domain.Event) []domain.AchievementDef {
	view := achievement.View{
		Balance:        s.ledger.Balance(),
		Counters:       s.acc.Counters(),
		StreakDays:     s.streak,
		Daily:          s.dailyCopy(),
		Goals:          s.cfg.Goals,
		PerfectQuizzes: s.perfectQuizzes,
	}
	unlocked := s.badges.Check(view, s.achievements)
	for _, def := range unlocked {
		s.achievements = append(s.achievements, def.ID)
		s.metrics.ObserveAchievement(def.ID)
		*events = append(*events, domain.Event{
			Type:          domain.EventAchievementUnlocked,
			Severity:      domain.SeveritySuccess,
			Message:       fmt.Sprintf("Achievement unlocked: %s %s", def.Icon, def.Name),
			Balance:       s.ledger.Balance(),
			AchievementID: def.ID,
			At:            s.now().UTC(),
		})
		s.log.Info().Str("achievement", def.ID).Msg("achievement unlocked")
	}
	return unlocked
}

func (s *Service) saveLocked(ctx context.Context) {
	_ = s.persist.save(ctx, s.snapshotLocked())
}

func (s *Service) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Balance:        s.ledger.Balance(),
		Counters:       s.acc.Counters(),
		Transactions:   s.ledger.Transactions(0),
		LastActiveDate: s.lastActive,
		Achievements:   append([]string{}, s.achievements...),
		StreakDays:     s.streak,
		Daily:          s.dailyCopy(),
		PerfectQuizzes: s.perfectQuizzes,
	}
}

func (s *Service) dailyCopy() domain.DailyLog {
	d := s.daily
	d.Counts = s.daily.Counts.Clone()
	return d
}

func (s *Service) publish(events []domain.Event) {
	for _, e := range events {
		s.sink.Emit(e)
	}
}

func (s *Service) balanceEvent(sev domain.Severity, msg string) domain.Event {
	return domain.Event{
		Type:     domain.EventBalanceChanged,
		Severity: sev,
		Message:  msg,
		Balance:  s.ledger.Balance(),
		At:       s.now().UTC(),
	}
}

func (s *Service) notice(sev domain.Severity, msg string) domain.Event {
	return domain.Event{
		Type:     domain.EventNotice,
		Severity: sev,
		Message:  msg,
		Balance:  s.ledger.Balance(),
		At:       s.now().UTC(),
	}
}

func (s *Service) reject(err error) {
	reason := "invalid"
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		reason = "insufficient_funds"
	case errors.Is(err, domain.ErrInvalidAmount):
		reason = "invalid_amount"
	case errors.Is(err, domain.ErrUnknownActivity):
		reason = "unknown_activity"
	case errors.Is(err, domain.ErrUnknownPackage):
		reason = "unknown_package"
	case errors.Is(err, domain.ErrDuplicatePurchase):
		reason = "duplicate_purchase"
	}
	s.metrics.ObserveRejection(reason)
	s.log.Debug().Err(err).Str("reason", reason).Msg("operation refused")
}

func (s *Service) today() string {
	return domain.DateOf(s.now(), s.cfg.Location)
}
