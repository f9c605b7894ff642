// Package budget owns the active month's record. Every mutation is
// validated, applied to a copy, written through the KV backend and only then
// made visible, so memory never runs ahead of what was persisted.
package budget

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bilancio/internal/aggregate"
	"bilancio/internal/core"
	"bilancio/internal/ids"
	"bilancio/internal/log"
	"bilancio/internal/period"
	"bilancio/internal/storage"
)

// DefaultKey is the storage key of the budget record.
const DefaultKey = "bilancio:budget"

// Attempts at drawing an id not already used in the record.
const maxIDAttempts = 8

// Notifier is told about every committed mutation.
type Notifier interface {
	Notify(ctx context.Context, change core.Change) error
}

// Snapshot is a copy of the record after an operation.
type Snapshot struct {
	Record core.BudgetRecord
	// RolledOver is set when this call replaced a record from an older period.
	RolledOver     bool
	PreviousPeriod string
}

// ExpenseResult is returned by AddExpense.
type ExpenseResult struct {
	Snapshot
	Entry core.ExpenseEntry
	// Warning is the category's limit status computed before the entry was
	// added, projected with the entry's amount.
	Warning core.LimitStatus
}

type Store struct {
	mu       sync.Mutex
	kv       storage.KV
	key      string
	periods  *period.Calculator
	ids      ids.Generator
	notifier Notifier
	logger   *log.Logger

	record core.BudgetRecord
	loaded bool

	// Changes committed under mu, published once mu is released.
	pending  []core.Change
	// Held while publishing so changes go out in commit order.
	notifyMu sync.Mutex
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithPeriodCalculator(c *period.Calculator) Option {
	return func(s *Store) { s.periods = c }
}

func WithIDGenerator(g ids.Generator) Option {
	return func(s *Store) { s.ids = g }
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		key:     DefaultKey,
		periods: period.New(),
		ids:     ids.UUIDv7{},
		logger:  log.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentBudget)
	return s
}

// Load reads the stored record. Missing or malformed data yields a fresh
// record for the current period; a record from an older period is replaced
// by a fresh one and persisted right away.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.unlockAndNotify(ctx)
	return s.load(ctx)
}

// Snapshot returns a copy of the in-memory record without touching storage.
// The zero record is returned before the first Load.
func (s *Store) Snapshot() core.BudgetRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Current returns the active record, loading it on first use and rolling it
// over when the period changed since it was loaded.
func (s *Store) Current(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.unlockAndNotify(ctx)

	if !s.loaded {
		return s.load(ctx)
	}
	if !s.periods.NeedsRollover(s.record.Period) {
		return Snapshot{Record: s.record.Clone()}, nil
	}

	previous, current := s.record.Period, s.periods.CurrentPeriod()
	if err := s.rollover(ctx, previous, current); err != nil {
		return Snapshot{}, err
	}
	s.record = core.NewRecord(current)
	return Snapshot{Record: s.record.Clone(), RolledOver: true, PreviousPeriod: previous}, nil
}

// AddIncome adds amount to the period's income.
func (s *Store) AddIncome(ctx context.Context, amount float64) (Snapshot, error) {
	amt, err := core.PositiveAmount(amount)
	if err != nil {
		return Snapshot{}, fmt.Errorf("add income: %w", err)
	}
	return s.mutate(ctx, func(rec *core.BudgetRecord, _ time.Time) (*core.Change, error) {
		rec.Income = rec.Income.Add(amt)
		return &core.Change{Op: core.OpIncomeAdded, Period: rec.Period, Amount: amt}, nil
	})
}

// AddExpense records a new expense dated today.
func (s *Store) AddExpense(ctx context.Context, category string, amount float64, note string) (ExpenseResult, error) {
	cat, err := core.NormalizeCategory(category)
	if err != nil {
		return ExpenseResult{}, fmt.Errorf("add expense: %w", err)
	}
	amt, err := core.PositiveAmount(amount)
	if err != nil {
		return ExpenseResult{}, fmt.Errorf("add expense: %w", err)
	}

	var res ExpenseResult
	snap, err := s.mutate(ctx, func(rec *core.BudgetRecord, now time.Time) (*core.Change, error) {
		id, err := s.uniqueID(*rec)
		if err != nil {
			return nil, err
		}
		res.Warning = aggregate.ProjectedLimitStatus(*rec, cat, amt)
		res.Entry = core.ExpenseEntry{
			ID:       id,
			Date:     period.DateOf(now),
			Category: cat,
			Amount:   amt,
			Note:     strings.TrimSpace(note),
		}
		rec.Expenses = append(rec.Expenses, res.Entry)
		return &core.Change{
			Op:        core.OpExpenseAdded,
			Period:    rec.Period,
			Category:  cat,
			ExpenseID: id,
			Amount:    amt,
			Status:    res.Warning,
		}, nil
	})
	if err != nil {
		return ExpenseResult{}, err
	}
	res.Snapshot = snap
	return res, nil
}

// SetLimit sets or replaces the spending limit of category. Zero is valid.
func (s *Store) SetLimit(ctx context.Context, category string, limit float64) (Snapshot, error) {
	cat, err := core.NormalizeCategory(category)
	if err != nil {
		return Snapshot{}, fmt.Errorf("set limit: %w", err)
	}
	l, err := core.LimitAmount(limit)
	if err != nil {
		return Snapshot{}, fmt.Errorf("set limit: %w", err)
	}
	return s.mutate(ctx, func(rec *core.BudgetRecord, _ time.Time) (*core.Change, error) {
		rec.Limits[cat] = l
		return &core.Change{
			Op:       core.OpLimitSet,
			Period:   rec.Period,
			Category: cat,
			Amount:   l,
			Status:   aggregate.LimitStatus(*rec, cat),
		}, nil
	})
}

// DeleteExpense removes the entry with id. Unknown ids are a no-op.
func (s *Store) DeleteExpense(ctx context.Context, id string) (Snapshot, error) {
	return s.mutate(ctx, func(rec *core.BudgetRecord, _ time.Time) (*core.Change, error) {
		for i, e := range rec.Expenses {
			if e.ID != id {
				continue
			}
			rec.Expenses = append(rec.Expenses[:i], rec.Expenses[i+1:]...)
			return &core.Change{
				Op:        core.OpExpenseDeleted,
				Period:    rec.Period,
				Category:  e.Category,
				ExpenseID: id,
				Amount:    e.Amount,
				Status:    aggregate.LimitStatus(*rec, e.Category),
			}, nil
		}
		return nil, nil
	})
}

// ResetAll replaces the record with an empty one for the current period.
func (s *Store) ResetAll(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, func(rec *core.BudgetRecord, _ time.Time) (*core.Change, error) {
		*rec = core.NewRecord(rec.Period)
		return &core.Change{Op: core.OpReset, Period: rec.Period}, nil
	})
}

// mutate runs apply on a copy of the current record and commits the copy
// once it is persisted. apply returns a nil change for a no-op.
func (s *Store) mutate(ctx context.Context, apply func(rec *core.BudgetRecord, now time.Time) (*core.Change, error)) (Snapshot, error) {
	s.mu.Lock()
	defer s.unlockAndNotify(ctx)

	var snap Snapshot
	if !s.loaded {
		loaded, err := s.load(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		snap = loaded
	}

	now := s.periods.Now()
	if current := period.PeriodOf(now); s.record.Period != current {
		if err := s.rollover(ctx, s.record.Period, current); err != nil {
			return Snapshot{}, err
		}
		snap.RolledOver = true
		snap.PreviousPeriod = s.record.Period
		s.record = core.NewRecord(current)
	}

	next := s.record.Clone()
	change, err := apply(&next, now)
	if err != nil {
		return Snapshot{}, err
	}
	if change == nil {
		snap.Record = s.record.Clone()
		return snap, nil
	}

	if err := s.persist(ctx, next); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist budget",
			log.NewFields().WithOperation(string(change.Op)).WithPeriod(next.Period).WithError(err).ToSlice()...)
		return Snapshot{}, err
	}
	s.record = next
	s.pending = append(s.pending, *change)

	snap.Record = next.Clone()
	return snap, nil
}

func (s *Store) load(ctx context.Context) (Snapshot, error) {
	current := period.PeriodOf(s.periods.Now())

	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: read %s: %w", core.ErrPersistence, s.key, err)
	}

	rec := core.NewRecord(current)
	if found {
		decoded, err := Decode(raw)
		if err != nil {
			s.logger.WarnContext(ctx, "Stored budget is malformed, starting fresh",
				log.FieldKey, s.key, log.FieldError, err)
		} else {
			rec = decoded
		}
	}

	var snap Snapshot
	if rec.Period != current {
		if err := s.rollover(ctx, rec.Period, current); err != nil {
			return Snapshot{}, err
		}
		snap.RolledOver = true
		snap.PreviousPeriod = rec.Period
		rec = core.NewRecord(current)
	}

	s.record = rec
	s.loaded = true
	snap.Record = rec.Clone()
	return snap, nil
}

// rollover persists a fresh record for current. The caller swaps it in.
func (s *Store) rollover(ctx context.Context, previous, current string) error {
	fresh := core.NewRecord(current)
	if err := s.persist(ctx, fresh); err != nil {
		return fmt.Errorf("rollover to %s: %w", current, err)
	}
	s.logger.InfoContext(ctx, "Budget rolled over to a new period",
		log.FieldPeriod, current, log.FieldPrevious, previous)
	s.pending = append(s.pending, core.Change{Op: core.OpRollover, Period: current})
	return nil
}

func (s *Store) persist(ctx context.Context, rec core.BudgetRecord) error {
	raw, err := Encode(rec)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", core.ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("%w: write %s: %w", core.ErrPersistence, s.key, err)
	}
	return nil
}

// unlockAndNotify releases mu and then publishes the changes committed while
// it was held. A slow notifier delays only the caller that committed, never
// readers of the store.
func (s *Store) unlockAndNotify(ctx context.Context) {
	pending := s.pending
	s.pending = nil
	if len(pending) == 0 || s.notifier == nil {
		s.mu.Unlock()
		return
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, change := range pending {
		s.notify(ctx, change)
	}
}

func (s *Store) notify(ctx context.Context, change core.Change) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, change); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish budget change",
			log.FieldOperation, string(change.Op), log.FieldError, err)
	}
}

func (s *Store) uniqueID(rec core.BudgetRecord) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		if id := s.ids.NewID(); id != "" && !rec.HasExpense(id) {
			return id, nil
		}
	}
	return "", core.ErrIDCollision
}
