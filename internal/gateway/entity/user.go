package entity

import (
	"encoding/json"
	"strings"
	"time"
)

// UserID identifies the subject issued by the identity provider.
type UserID string

func NormalizeUserID(raw string) UserID {
	return UserID(strings.TrimSpace(raw))
}

func (id UserID) String() string {
	return strings.TrimSpace(string(id))
}

func (id UserID) IsZero() bool {
	return id.String() == ""
}

// Identity is the resolved caller of a protected request.
type Identity struct {
	UserID UserID
	Email  string
	Role   string
}

// UserRecord is the per-user document held by the document store.
type UserRecord struct {
	UserID          UserID                   `json:"user_id"`
	Email           string                   `json:"email,omitempty"`
	FirstName       string                   `json:"first_name,omitempty"`
	LastName        string                   `json:"last_name,omitempty"`
	Profile         map[string]any           `json:"profile,omitempty"`
	Answers         Answers                  `json:"answers,omitzero"`
	AnswersMetadata map[string]any           `json:"answers_metadata,omitempty"`
	Recommendations []CardRecommendation     `json:"recommendations,omitempty"`
	SavedCardPlans  map[string]SavedCardPlan `json:"saved_card_plans,omitempty"`
	UpdatedAt       time.Time                `json:"updated_at,omitzero"`
}

// HasAnswers reports whether the user has submitted a non-empty survey.
func (u UserRecord) HasAnswers() bool {
	return !u.Answers.IsZero()
}

// ProfileUpdate carries the onboarding fields merged into a user document.
type ProfileUpdate struct {
	Email     string         `json:"email,omitempty"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Profile   map[string]any `json:"profile,omitempty"`
}

// Fields returns the top-level document fields set by the update. Empty
// values are left out so a partial onboarding call does not erase data.
func (p ProfileUpdate) Fields() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, 4)
	put := func(key string, v any) {
		raw, err := json.Marshal(v)
		if err == nil {
			out[key] = raw
		}
	}
	if s := strings.TrimSpace(p.Email); s != "" {
		put("email", s)
	}
	if s := strings.TrimSpace(p.FirstName); s != "" {
		put("first_name", s)
	}
	if s := strings.TrimSpace(p.LastName); s != "" {
		put("last_name", s)
	}
	if len(p.Profile) > 0 {
		put("profile", p.Profile)
	}
	return out
}
