// Package catalog loads the static card catalog once and serves immutable
// snapshots of it to concurrent requests.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"zentra/internal/apperr"
	"zentra/internal/gateway/entity"
)

// Snapshot is one immutable load of the catalog. It is never mutated after
// construction; a reload builds a new Snapshot.
type Snapshot struct {
	cards    []entity.Card
	byID     map[string]int
	byName   map[string]int
	source   string
	loadedAt time.Time
}

// Cards returns a copy of the entries in catalog order.
func (s *Snapshot) Cards() []entity.Card {
	if s == nil {
		return nil
	}
	return append([]entity.Card(nil), s.cards...)
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cards)
}

func (s *Snapshot) ByID(id string) (entity.Card, bool) {
	if s == nil {
		return entity.Card{}, false
	}
	i, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return entity.Card{}, false
	}
	return s.cards[i], true
}

// ByName matches case-insensitively on the trimmed card name.
func (s *Snapshot) ByName(name string) (entity.Card, bool) {
	if s == nil {
		return entity.Card{}, false
	}
	i, ok := s.byName[nameKey(name)]
	if !ok {
		return entity.Card{}, false
	}
	return s.cards[i], true
}

func (s *Snapshot) Source() string      { return s.source }
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Catalog is the process-wide accessor. Reads are lock-free; the first load
// and explicit reloads are collapsed so concurrent callers share one read.
type Catalog struct {
	source Source
	snap   atomic.Pointer[Snapshot]
	group  singleflight.Group
}

func New(source Source) *Catalog {
	return &Catalog{source: source}
}

// Snapshot returns the cached catalog, loading it on first use. Load
// failures are ConfigurationErrors: the catalog is mandatory reference data.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s := c.snap.Load(); s != nil {
		return s, nil
	}
	return c.load(ctx, false)
}

// Reload reads the source again and swaps in the new snapshot. On failure
// the previous snapshot stays in place.
func (c *Catalog) Reload(ctx context.Context) (*Snapshot, error) {
	return c.load(ctx, true)
}

func (c *Catalog) load(ctx context.Context, force bool) (*Snapshot, error) {
	v, err, _ := c.group.Do("load", func() (any, error) {
		if !force {
			if s := c.snap.Load(); s != nil {
				return s, nil
			}
		}
		if c.source == nil {
			return nil, apperr.Configuration("card catalog source is not configured", nil)
		}
		raw, err := c.source.Read(ctx)
		if err != nil {
			return nil, apperr.Configuration("card catalog unavailable", fmt.Errorf("read %s: %w", c.source.Name(), err))
		}
		s, err := Parse(raw)
		if err != nil {
			return nil, apperr.Configuration("card catalog is invalid", fmt.Errorf("parse %s: %w", c.source.Name(), err))
		}
		s.source = c.source.Name()
		c.snap.Store(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Parse decodes a catalog document. It accepts a top-level array of cards or
// an object holding the array under "credit_cards" or "cards".
func Parse(raw []byte) (*Snapshot, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	var cards []entity.Card
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &cards); err != nil {
			return nil, err
		}
	} else {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		list, ok := doc["credit_cards"]
		if !ok {
			list, ok = doc["cards"]
		}
		if !ok {
			return nil, fmt.Errorf("catalog object has no credit_cards array")
		}
		if err := json.Unmarshal(list, &cards); err != nil {
			return nil, err
		}
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("catalog has no cards")
	}

	s := &Snapshot{
		cards:    make([]entity.Card, 0, len(cards)),
		byID:     make(map[string]int, len(cards)),
		byName:   make(map[string]int, len(cards)),
		loadedAt: time.Now(),
	}
	for i, c := range cards {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, fmt.Errorf("card %d has no id", i)
		}
		if _, dup := s.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", c.ID)
		}
		s.byID[c.ID] = len(s.cards)
		if k := nameKey(c.Name); k != "" {
			if _, taken := s.byName[k]; !taken {
				s.byName[k] = len(s.cards)
			}
		}
		s.cards = append(s.cards, c)
	}
	return s, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
