package user

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"zentra/internal/gateway/entity"
)

type memoryDoc struct {
	fields    map[string]json.RawMessage
	plans     map[string]json.RawMessage
	updatedAt time.Time
}

// MemoryStore keeps documents as raw JSON fields so reads decode exactly
// what a document database would return.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[entity.UserID]*memoryDoc
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[entity.UserID]*memoryDoc),
		now:  time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, userID entity.UserID) (entity.UserRecord, error) {
	if s == nil {
		return entity.UserRecord{}, fmt.Errorf("store is nil")
	}
	if userID.IsZero() {
		return entity.UserRecord{}, fmt.Errorf("user_id is required")
	}
	s.mu.RLock()
	doc, ok := s.docs[userID]
	var raw []byte
	var err error
	if ok {
		raw, err = doc.encode()
	}
	s.mu.RUnlock()
	if !ok {
		return entity.UserRecord{}, ErrNotFound
	}
	if err != nil {
		return entity.UserRecord{}, err
	}
	return decodeRecord(userID, raw)
}

func (s *MemoryStore) UpsertAnswers(_ context.Context, userID entity.UserID, answers entity.Answers, metadata map[string]any) (bool, error) {
	fields, err := answersFields(answers, metadata)
	if err != nil {
		return false, err
	}
	return s.merge(userID, fields)
}

func (s *MemoryStore) UpsertProfile(_ context.Context, userID entity.UserID, update entity.ProfileUpdate) (bool, error) {
	return s.merge(userID, update.Fields())
}

func (s *MemoryStore) SetRecommendations(_ context.Context, userID entity.UserID, recs []entity.CardRecommendation) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	_, err = s.merge(userID, map[string]json.RawMessage{"recommendations": raw})
	return err
}

func (s *MemoryStore) SetCardPlan(_ context.Context, userID entity.UserID, cardID string, plan entity.SavedCardPlan) error {
	if cardID == "" {
		return fmt.Errorf("card_id is required")
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.docLocked(userID)
	if err != nil {
		return err
	}
	doc.plans[cardID] = raw
	doc.updatedAt = s.now()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// putRawPlan stores an arbitrary plan payload; tests use it to seed
// documents written by older releases.
func (s *MemoryStore) putRawPlan(userID entity.UserID, cardID string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.docLocked(userID)
	if err != nil {
		return err
	}
	doc.plans[cardID] = append(json.RawMessage(nil), raw...)
	return nil
}

func (s *MemoryStore) merge(userID entity.UserID, fields map[string]json.RawMessage) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.docs[userID]
	doc, err := s.docLocked(userID)
	if err != nil {
		return false, err
	}
	for k, v := range fields {
		doc.fields[k] = append(json.RawMessage(nil), v...)
	}
	doc.updatedAt = s.now()
	return !existed, nil
}

func (s *MemoryStore) docLocked(userID entity.UserID) (*memoryDoc, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("user_id is required")
	}
	doc, ok := s.docs[userID]
	if !ok {
		doc = &memoryDoc{
			fields: make(map[string]json.RawMessage),
			plans:  make(map[string]json.RawMessage),
		}
		s.docs[userID] = doc
	}
	return doc, nil
}

func (d *memoryDoc) encode() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.fields)+2)
	for k, v := range d.fields {
		out[k] = v
	}
	if len(d.plans) > 0 {
		plans, err := json.Marshal(d.plans)
		if err != nil {
			return nil, err
		}
		out["saved_card_plans"] = plans
	}
	if !d.updatedAt.IsZero() {
		ts, _ := json.Marshal(d.updatedAt)
		out["updated_at"] = ts
	}
	return json.Marshal(out)
}
