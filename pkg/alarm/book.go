// Package alarm implements the pendant's alarm book and the background
// monitor that fires alarms through the shared audio output.
package alarm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/necklaceai/necklace/go/pkg/kv"
)

const (
	storeKey = "alarms"

	// DefaultLabel is used when the caller sets no label.
	DefaultLabel = "アラーム"
)

// Alarm is one scheduled alarm.
type Alarm struct {
	ID        int       `msgpack:"id"`
	Time      string    `msgpack:"time"` // "HH:MM"
	Label     string    `msgpack:"label"`
	Message   string    `msgpack:"message"`
	Enabled   bool      `msgpack:"enabled"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// book is the persisted record: the alarm list plus the next ID to assign.
// IDs are never reused within a process lifetime.
type book struct {
	Alarms []Alarm `msgpack:"alarms"`
	NextID int     `msgpack:"next_id"`
}

// Book holds the alarms, persisting the whole record through the store
// after every mutation. Safe for concurrent use: the monitor goroutine
// reads while the foreground turn mutates.
type Book struct {
	mu    sync.Mutex
	store kv.Store
	data  book
}

// Load reads the persisted alarm book, starting empty when none exists.
func Load(ctx context.Context, store kv.Store) (*Book, error) {
	b := &Book{store: store, data: book{NextID: 1}}
	raw, err := store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return b, nil
		}
		return nil, fmt.Errorf("alarm: load: %w", err)
	}
	if err := msgpack.Unmarshal(raw, &b.data); err != nil {
		return nil, fmt.Errorf("alarm: decode: %w", err)
	}
	if b.data.NextID < 1 {
		b.data.NextID = 1
	}
	return b, nil
}

// Set schedules an alarm and returns a user-facing confirmation, or an
// explanatory string when the time is invalid. Invalid input never mutates
// the store.
func (b *Book) Set(ctx context.Context, timeStr, label, message string) string {
	normalized, ok := normalizeTime(timeStr)
	if !ok {
		return "時刻の形式が不正です。HH:MM形式（例: 07:00）で指定してください。"
	}
	if label == "" {
		label = DefaultLabel
	}
	if message == "" {
		message = label + "の時間です"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	a := Alarm{
		ID:        b.data.NextID,
		Time:      normalized,
		Label:     label,
		Message:   message,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	b.data.Alarms = append(b.data.Alarms, a)
	b.data.NextID++

	if err := b.persist(ctx); err != nil {
		// Roll back the in-memory mutation so the book matches the store.
		b.data.Alarms = b.data.Alarms[:len(b.data.Alarms)-1]
		b.data.NextID--
		return "アラームの保存に失敗しました。"
	}
	return fmt.Sprintf("%sに「%s」のアラームを設定しました。", normalized, label)
}

// List returns a user-facing listing of all alarms.
func (b *Book) List() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data.Alarms) == 0 {
		return "設定されているアラームはありません。"
	}
	var sb strings.Builder
	sb.WriteString("アラーム一覧:")
	for _, a := range b.data.Alarms {
		status := "有効"
		if !a.Enabled {
			status = "無効"
		}
		fmt.Fprintf(&sb, "\n%d. %s - %s (%s)", a.ID, a.Time, a.Label, status)
	}
	return sb.String()
}

// Delete removes an alarm by ID and returns a user-facing result string.
func (b *Book) Delete(ctx context.Context, id int) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, a := range b.data.Alarms {
		if a.ID != id {
			continue
		}
		b.data.Alarms = append(b.data.Alarms[:i], b.data.Alarms[i+1:]...)
		if err := b.persist(ctx); err != nil {
			return "アラームの保存に失敗しました。"
		}
		return fmt.Sprintf("「%s」(%s)のアラームを削除しました。", a.Label, a.Time)
	}
	return fmt.Sprintf("ID %d のアラームが見つかりません。", id)
}

// Alarms returns a snapshot of the alarm list.
func (b *Book) Alarms() []Alarm {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Alarm, len(b.data.Alarms))
	copy(out, b.data.Alarms)
	return out
}

// persist rewrites the whole record. Callers hold b.mu.
func (b *Book) persist(ctx context.Context) error {
	raw, err := msgpack.Marshal(&b.data)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, storeKey, raw)
}

// normalizeTime validates "HH:MM" (hours 0-23, minutes 0-59) and returns
// the zero-padded canonical form.
func normalizeTime(s string) (string, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return "", false
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return "", false
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return "", false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
