package user

import (
	"context"
	"encoding/json"
	"errors"

	"zentra/internal/gateway/entity"
)

// Store persists one document per user. Every write touches a single
// document atomically and only the fields it names.
type Store interface {
	Get(ctx context.Context, userID entity.UserID) (entity.UserRecord, error)
	// UpsertAnswers sets answers and answers_metadata, creating the
	// document when missing. The bool reports whether it was created.
	UpsertAnswers(ctx context.Context, userID entity.UserID, answers entity.Answers, metadata map[string]any) (bool, error)
	UpsertProfile(ctx context.Context, userID entity.UserID, update entity.ProfileUpdate) (bool, error)
	// SetRecommendations overwrites the recommendations field.
	SetRecommendations(ctx context.Context, userID entity.UserID, recs []entity.CardRecommendation) error
	// SetCardPlan sets saved_card_plans[cardID] and leaves other keys alone.
	SetCardPlan(ctx context.Context, userID entity.UserID, cardID string, plan entity.SavedCardPlan) error
	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("user document not found")

func answersFields(answers entity.Answers, metadata map[string]any) (map[string]json.RawMessage, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	rawAnswers, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	rawMeta, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return map[string]json.RawMessage{
		"answers":          rawAnswers,
		"answers_metadata": rawMeta,
	}, nil
}

func decodeRecord(userID entity.UserID, doc []byte) (entity.UserRecord, error) {
	var rec entity.UserRecord
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &rec); err != nil {
			return entity.UserRecord{}, err
		}
	}
	rec.UserID = userID
	return rec, nil
}
