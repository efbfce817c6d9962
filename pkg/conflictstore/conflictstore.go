// Package conflictstore persists unresolved merge conflicts and their
// resolution history, and drives the badge/banner notification state the
// app surfaces to the user.
package conflictstore

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nous-sync/nse/pkg/automerge"
	"github.com/nous-sync/nse/pkg/localstore"
	"github.com/nous-sync/nse/pkg/vvector"
)

const (
	conflictPrefix = "conflict:"
	historyPrefix  = "history:"
	bannerKey      = "conflict:banner_last_shown"

	conflictTTL    = 30 * 24 * time.Hour
	historyTTL     = 30 * 24 * time.Hour
	bannerCooldown = 24 * time.Hour
)

// UnresolvedConflict is a node whose concurrent edits the auto-merge
// engine could not fold automatically.
type UnresolvedConflict struct {
	ID            uuid.UUID                  `json:"id"`
	NodeID        string                     `json:"node_id"`
	LocalVersion  vvector.Vector             `json:"local_version"`
	RemoteVersion vvector.Vector             `json:"remote_version"`
	Conflicts     []automerge.FieldConflict  `json:"conflicts"`
	CreatedAt     time.Time                  `json:"created_at"`
	ExpiresAt     time.Time                  `json:"expires_at"`
}

// HistoryEntry retains a resolved conflict for audit/undo purposes.
type HistoryEntry struct {
	ID              uuid.UUID      `json:"id"`
	NodeID          string         `json:"node_id"`
	RejectedVersion vvector.Vector `json:"rejected_version"`
	ResolvedAt      time.Time      `json:"resolved_at"`
	ResolvedBy      string         `json:"resolved_by"` // "user" or "auto"
	ExpiresAt       time.Time      `json:"expires_at"`
}

// Badge is the count/visibility pair the UI renders for unresolved
// conflicts.
type Badge struct {
	Count   int  `json:"count"`
	Visible bool `json:"visible"`
}

// Store persists conflicts/history in localstore and tracks banner
// cooldown state.
type Store struct {
	kv  *localstore.Store
	now func() time.Time
}

// New returns a Store backed by kv.
func New(kv *localstore.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Create persists a new unresolved conflict, stamping CreatedAt/ExpiresAt.
func (s *Store) Create(nodeID string, local, remote vvector.Vector, conflicts []automerge.FieldConflict) (UnresolvedConflict, error) {
	now := s.now()
	c := UnresolvedConflict{
		ID:            uuid.New(),
		NodeID:        nodeID,
		LocalVersion:  local,
		RemoteVersion: remote,
		Conflicts:     conflicts,
		CreatedAt:     now,
		ExpiresAt:     now.Add(conflictTTL),
	}
	return c, s.kv.Put(conflictPrefix+c.ID.String(), c)
}

// List returns every currently persisted unresolved conflict.
func (s *Store) List() ([]UnresolvedConflict, error) {
	var out []UnresolvedConflict
	err := s.kv.IteratePrefix(conflictPrefix, func(key string, value []byte) error {
		if key == bannerKey {
			return nil
		}
		var c UnresolvedConflict
		if err := unmarshal(value, &c); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// Resolve removes an unresolved conflict and records it in history.
func (s *Store) Resolve(conflictID uuid.UUID, nodeID string, rejected vvector.Vector, resolvedBy string) error {
	if err := s.kv.Delete(conflictPrefix + conflictID.String()); err != nil {
		return err
	}
	now := s.now()
	entry := HistoryEntry{
		ID:              uuid.New(),
		NodeID:          nodeID,
		RejectedVersion: rejected,
		ResolvedAt:      now,
		ResolvedBy:      resolvedBy,
		ExpiresAt:       now.Add(historyTTL),
	}
	return s.kv.Put(historyPrefix+entry.ID.String(), entry)
}

// GC removes expired conflicts and history entries.
func (s *Store) GC() (removed int, err error) {
	now := s.now()

	var expiredConflicts []string
	err = s.kv.IteratePrefix(conflictPrefix, func(key string, value []byte) error {
		if key == bannerKey {
			return nil
		}
		var c UnresolvedConflict
		if err := unmarshal(value, &c); err != nil {
			return err
		}
		if now.After(c.ExpiresAt) {
			expiredConflicts = append(expiredConflicts, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var expiredHistory []string
	err = s.kv.IteratePrefix(historyPrefix, func(key string, value []byte) error {
		var h HistoryEntry
		if err := unmarshal(value, &h); err != nil {
			return err
		}
		if now.After(h.ExpiresAt) {
			expiredHistory = append(expiredHistory, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, k := range append(expiredConflicts, expiredHistory...) {
		if err := s.kv.Delete(k); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CurrentBadge reports the badge state: visible whenever at least one
// unresolved conflict exists.
func (s *Store) CurrentBadge() (Badge, error) {
	conflicts, err := s.List()
	if err != nil {
		return Badge{}, err
	}
	return Badge{Count: len(conflicts), Visible: len(conflicts) > 0}, nil
}

// ShouldShowBanner reports whether the conflict banner is due to be
// (re-)surfaced, respecting the 24h cooldown, and records that it was
// shown if so.
func (s *Store) ShouldShowBanner() (bool, error) {
	var lastShown time.Time
	found, err := s.kv.Get(bannerKey, &lastShown)
	if err != nil {
		return false, err
	}
	now := s.now()
	if found && now.Sub(lastShown) < bannerCooldown {
		return false, nil
	}
	badge, err := s.CurrentBadge()
	if err != nil {
		return false, err
	}
	if !badge.Visible {
		return false, nil
	}
	if err := s.kv.Put(bannerKey, now); err != nil {
		return false, err
	}
	return true, nil
}

func unmarshal(value []byte, out any) error {
	return json.Unmarshal(value, out)
}
