// Package journal mirrors committed tree changes into Postgres so rooms
// survive a restart, and keeps an audit trail of room activity.
package journal

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"planning-poker/internal/db"
	"planning-poker/internal/logger"
	"planning-poker/internal/tree"
)

const queueSize = 1024

// Journal persists changes on a single worker goroutine, in commit order.
// A nil database turns every method into a no-op.
type Journal struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	now     func() time.Time
	changes chan tree.Change
	done    chan struct{}
	stopped chan struct{}
	started atomic.Bool
	events  classifier

	startOnce sync.Once
	closeOnce sync.Once
}

func New(conn *gorm.DB, log *zap.SugaredLogger) *Journal {
	if log == nil {
		log = logger.Nop()
	}
	return &Journal{
		db:      conn,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		changes: make(chan tree.Change, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Enabled reports whether changes are actually written anywhere.
func (j *Journal) Enabled() bool {
	return j != nil && j.db != nil
}

// Restore loads every stored leaf into m. Call it before Attach so the
// restored leaves are not journaled again.
func (j *Journal) Restore(ctx context.Context, m *tree.Memory) (int, error) {
	if !j.Enabled() {
		return 0, nil
	}
	var rows []db.Leaf
	if err := j.db.WithContext(ctx).Order("path").Find(&rows).Error; err != nil {
		return 0, err
	}
	leaves := make(map[string]any, len(rows))
	for _, row := range rows {
		value, err := decodeValue(row.Value)
		if err != nil {
			j.log.Warnw("skip unreadable leaf", "path", row.Path, "error", err)
			continue
		}
		leaves[row.Path] = value
	}
	if err := m.Load(leaves); err != nil {
		return 0, err
	}
	return len(leaves), nil
}

// Attach starts mirroring m. The hook runs under the tree lock, so it only
// enqueues; a full queue applies backpressure to writers instead of
// dropping changes.
func (j *Journal) Attach(m *tree.Memory) {
	if !j.Enabled() {
		return
	}
	j.startOnce.Do(func() {
		m.OnChange(func(change tree.Change) {
			select {
			case <-j.done:
			case j.changes <- change:
			}
		})
		j.started.Store(true)
		go j.run()
	})
}

// Close stops the worker and waits until it has written what was already
// queued.
func (j *Journal) Close() {
	if !j.Enabled() {
		return
	}
	j.closeOnce.Do(func() {
		close(j.done)
	})
	if j.started.Load() {
		<-j.stopped
	}
}

func (j *Journal) run() {
	defer close(j.stopped)
	for {
		select {
		case change := <-j.changes:
			j.apply(change)
		case <-j.done:
			for {
				select {
				case change := <-j.changes:
					j.apply(change)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) apply(change tree.Change) {
	var err error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		err = j.write(change)
		if err == nil || !isRetryable(err) {
			break
		}
		j.log.Debugw("journal write retry", "path", change.Path, "attempt", attempt, "error", err)
	}
	switch {
	case err == nil:
	case isMissingTable(err):
		j.log.Errorw("journal tables missing; run cmd/migrate", "path", change.Path, "error", err)
	default:
		j.log.Errorw("journal write failed", "path", change.Path, "error", err)
	}
}

func (j *Journal) write(change tree.Change) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := j.now()
	return j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSubtree(tx, change.Path); err != nil {
			return err
		}
		if err := deleteAncestors(tx, change.Path); err != nil {
			return err
		}
		rows, err := leafRows(change, now)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "path"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&rows).Error; err != nil {
				return err
			}
		}
		if event, ok := j.events.classify(change, now); ok {
			return tx.Create(&event).Error
		}
		return nil
	})
}

func deleteSubtree(tx *gorm.DB, path string) error {
	return tx.Where("path = ? OR path LIKE ?", path, escapeLike(path)+"/%").
		Delete(&db.Leaf{}).Error
}

// A leaf written below a former leaf turns that leaf into an interior node.
func deleteAncestors(tx *gorm.DB, path string) error {
	ancestors := ancestorsOf(path)
	if len(ancestors) == 0 {
		return nil
	}
	return tx.Where("path IN ?", ancestors).Delete(&db.Leaf{}).Error
}

func leafRows(change tree.Change, now time.Time) ([]db.Leaf, error) {
	if change.Value == nil {
		return nil, nil
	}
	flat := tree.Flatten(change.Path, change.Value)
	rows := make([]db.Leaf, 0, len(flat))
	for path, value := range flat {
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, err
		}
		rows = append(rows, db.Leaf{Path: path, Value: encoded, UpdatedAt: now})
	}
	return rows, nil
}

func ancestorsOf(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	out := make([]string, 0, len(parts))
	for i := 1; i < len(parts); i++ {
		out = append(out, tree.Join(parts[:i]...))
	}
	return out
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func encodeValue(value any) (datatypes.JSON, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeValue(raw datatypes.JSON) (any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}
