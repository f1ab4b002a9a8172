package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pastegrid/internal/grid"
	"github.com/JonMunkholm/pastegrid/internal/metrics"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownTable    = errors.New("unknown table")
	ErrPasteTooLarge   = errors.New("paste too large")
	ErrNotEditSession  = errors.New("refresh requires an edit session")
	ErrInvalidMode     = errors.New("invalid mode")
)

// DefaultMaxPasteBytes caps clipboard text accepted by Paste and Import.
const DefaultMaxPasteBytes = 1 << 20

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Grid               GridDefaults
	MaxConcurrentSaves int
	SaveWait           time.Duration
	Logger             *slog.Logger
}

// Service owns the open editing sessions.
type Service struct {
	store    Store
	defaults GridDefaults
	limiter  *SaveLimiter
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a new Service instance.
func NewService(store Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaults := opts.Grid
	if defaults.DateLayout == "" {
		defaults.DateLayout = grid.DefaultDateLayout
	}
	if defaults.BoolFormat == "" {
		defaults.BoolFormat = grid.BoolTrueFalse
	}
	if defaults.Separator == "" {
		defaults.Separator = grid.DefaultSeparator
	}
	if defaults.MaxPasteBytes <= 0 {
		defaults.MaxPasteBytes = DefaultMaxPasteBytes
	}
	return &Service{
		store:    store,
		defaults: defaults,
		limiter:  NewSaveLimiter(opts.MaxConcurrentSaves, opts.SaveWait),
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// ListTables returns information about all registered tables.
func (s *Service) ListTables() []TableInfo {
	defs := All()
	infos := make([]TableInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// ListTablesByGroup returns tables organized by group.
func (s *Service) ListTablesByGroup() map[string][]TableInfo {
	result := make(map[string][]TableInfo)
	for _, group := range Groups() {
		for _, def := range ByGroup(group) {
			result[group] = append(result[group], def.Info)
		}
	}
	return result
}

// OpenSession starts a session on a registered table. Edit sessions load the
// table's current records from the store.
func (s *Service) OpenSession(ctx context.Context, tableKey string, mode Mode) (SessionSnapshot, error) {
	def, ok := Get(tableKey)
	if !ok {
		return SessionSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownTable, tableKey)
	}

	sess := &Session{
		ID:   uuid.New().String(),
		Def:  def,
		Mode: mode,
	}
	logger := s.logger.With("session", sess.ID, "table", tableKey, "mode", string(mode))

	switch mode {
	case ModeCreate:
		t, err := grid.NewCreateTable(grid.CreateConfig{
			Columns:   s.defaults.apply(def.CreateColumns()),
			RowSchema: def.RowSchema,
			Logger:    logger,
		}, nil)
		if err != nil {
			return SessionSnapshot{}, fmt.Errorf("open %s: %w", tableKey, err)
		}
		sess.create, sess.table = t, t

	case ModeEdit:
		source, err := s.store.Load(ctx, def)
		if err != nil {
			return SessionSnapshot{}, fmt.Errorf("load %s: %w", tableKey, err)
		}
		t, err := grid.NewEditTable(grid.EditConfig{
			Columns:        s.defaults.apply(def.Columns),
			RowSchema:      def.RowSchema,
			IdentityColumn: def.IdentityColumn,
			Logger:         logger,
		}, source)
		if err != nil {
			return SessionSnapshot{}, fmt.Errorf("open %s: %w", tableKey, err)
		}
		sess.edit, sess.table = t, t

	default:
		return SessionSnapshot{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	sess.touch(s.now())
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	metrics.SessionsActive.Inc()

	logger.Info("session opened", "rows", len(sess.table.Rows()))
	return sess.snapshot(), nil
}

// session looks up an open session and marks it used.
func (s *Service) session(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// withSession runs fn under the session lock and returns the resulting
// snapshot.
func (s *Service) withSession(id string, fn func(*Session) error) (SessionSnapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(s.now())
	if err := fn(sess); err != nil {
		return SessionSnapshot{}, err
	}
	return sess.snapshot(), nil
}

// Snapshot returns the current state of a session.
func (s *Service) Snapshot(id string) (SessionSnapshot, error) {
	return s.withSession(id, func(*Session) error { return nil })
}

// UpdateCell writes one cell. The value is normalized before it is stored.
func (s *Service) UpdateCell(id, rowID, columnID, value string) (SessionSnapshot, error) {
	return s.withSession(id, func(sess *Session) error {
		if _, err := sess.table.UpdateCell(rowID, columnID, value); err != nil {
			return fmt.Errorf("update cell: %w", err)
		}
		metrics.CellUpdatesTotal.WithLabelValues(string(sess.Mode)).Inc()
		return nil
	})
}

// SetActiveCell focuses a cell so the next paste anchors there.
func (s *Service) SetActiveCell(id, rowID, columnID string) (SessionSnapshot, error) {
	return s.withSession(id, func(sess *Session) error {
		sess.table.SetActiveCell(rowID, columnID)
		return nil
	})
}

// ClearActiveCell removes focus; the next multi-cell paste merges as a table.
func (s *Service) ClearActiveCell(id string) (SessionSnapshot, error) {
	return s.withSession(id, func(sess *Session) error {
		sess.table.ClearActiveCell()
		return nil
	})
}

// Paste applies clipboard text to the session.
func (s *Service) Paste(id, text string) (SessionSnapshot, grid.PasteResult, error) {
	if len(text) > s.defaults.MaxPasteBytes {
		return SessionSnapshot{}, grid.PasteResult{}, fmt.Errorf("%w: %d bytes", ErrPasteTooLarge, len(text))
	}
	var res grid.PasteResult
	snap, err := s.withSession(id, func(sess *Session) error {
		var err error
		res, err = sess.table.HandlePaste(grid.PasteEvent{Text: text})
		if err != nil {
			return fmt.Errorf("paste: %w", err)
		}
		metrics.PastesTotal.WithLabelValues(string(sess.Mode), res.Kind.String()).Inc()
		return nil
	})
	return snap, res, err
}

// Import replaces the session's rows with parsed delimited text.
func (s *Service) Import(id, text string) (SessionSnapshot, error) {
	if len(text) > s.defaults.MaxPasteBytes {
		return SessionSnapshot{}, fmt.Errorf("%w: %d bytes", ErrPasteTooLarge, len(text))
	}
	return s.withSession(id, func(sess *Session) error {
		cols := sess.table.Columns()
		conv := grid.ConvertToRows(grid.ParseDelimited(text), cols)
		sess.table.ImportData(grid.MapRowsToDomain(conv.Rows, cols))
		s.logger.Debug("import applied", "session", id, "rows", len(conv.Rows), "header", conv.HeaderDetected)
		return nil
	})
}

// Reset discards edits. Create sessions return to an empty table, edit
// sessions return to the last loaded or saved state.
func (s *Service) Reset(id string) (SessionSnapshot, error) {
	return s.withSession(id, func(sess *Session) error {
		sess.reset()
		return nil
	})
}

// Refresh reloads an edit session's source records. Clean rows pick up the
// new values, dirty rows keep the user's edits.
func (s *Service) Refresh(ctx context.Context, id string) (SessionSnapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	if sess.Mode != ModeEdit {
		return SessionSnapshot{}, ErrNotEditSession
	}

	source, err := s.store.Load(ctx, sess.Def)
	if err != nil {
		return SessionSnapshot{}, fmt.Errorf("refresh %s: %w", sess.Def.Info.Key, err)
	}

	return s.withSession(id, func(sess *Session) error {
		stats := sess.edit.SetSource(source)
		s.logger.Info("session refreshed",
			"session", id,
			"refreshed", stats.Refreshed,
			"protected", stats.Protected,
			"appended", stats.Appended,
		)
		return nil
	})
}

// Save persists the session's rows. Create sessions insert every data row;
// edit sessions apply the dirty rows as partial records. The session lock is
// released while the store call runs, so the user can keep editing.
func (s *Service) Save(ctx context.Context, id string) (SaveResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return SaveResult{}, err
	}
	mode := string(sess.Mode)

	if err := s.limiter.Acquire(ctx); err != nil {
		return SaveResult{}, fmt.Errorf("save session %s: %w", id, err)
	}
	defer s.limiter.Release()

	sess.mu.Lock()
	sess.touch(s.now())
	pending, err := sess.table.PrepareSave()
	sess.mu.Unlock()
	if err != nil {
		if errors.Is(err, grid.ErrInvalidRows) {
			metrics.SavesTotal.WithLabelValues(mode, "invalid").Inc()
		}
		return SaveResult{}, fmt.Errorf("save session %s: %w", id, err)
	}

	timer := metrics.NewTimer()
	applyErr := sess.persist(s.store)(ctx, sess.Def, pending.Records)
	elapsed := timer.Stop()
	metrics.SaveDuration.WithLabelValues(mode).Observe(elapsed.Seconds())

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(s.now())

	logger := s.logger.With(
		"session", id,
		"table", sess.Def.Info.Key,
		"mode", mode,
		"rows", len(pending.Records),
		"duration_ms", elapsed.Milliseconds(),
		"ip", GetIPAddressFromContext(ctx),
		"user_agent", GetUserAgentFromContext(ctx),
	)

	if err := sess.table.FinishSave(pending, applyErr); err != nil {
		metrics.SavesTotal.WithLabelValues(mode, "failure").Inc()
		logger.Error("save failed", "error", err)
		return SaveResult{}, fmt.Errorf("save session %s: %w", id, err)
	}

	metrics.SavesTotal.WithLabelValues(mode, "success").Inc()
	logger.Info("save completed")
	return SaveResult{Saved: len(pending.Records), Snapshot: sess.snapshot()}, nil
}

// CloseSession discards a session. Unsaved edits are lost.
func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	metrics.SessionsActive.Dec()
	s.logger.Info("session closed", "session", id)
	return nil
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SaveStatus reports save limiter usage.
func (s *Service) SaveStatus() SaveLimiterStatus {
	return s.limiter.Status()
}

// WaitForSaves blocks until in-flight saves finish or ctx ends.
func (s *Service) WaitForSaves(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
