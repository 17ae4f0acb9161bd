package cognitive

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alzcare/alzcare/internal/platform/apperr"
)

type ActivityType string

const (
	TypeMemory    ActivityType = "MEMORY"
	TypeAttention ActivityType = "ATTENTION"
	TypeLogic     ActivityType = "LOGIC"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// SessionStatus is the lifecycle of one play-through. IN_PROGRESS is the only
// non-terminal state.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionAbandoned  SessionStatus = "ABANDONED"
)

var (
	activityTypes   = []string{"MEMORY", "ATTENTION", "LOGIC"}
	difficulties    = []string{"EASY", "MEDIUM", "HARD"}
	sessionStatuses = []string{"IN_PROGRESS", "COMPLETED", "ABANDONED"}
)

func parseEnum(field, v string, accepted []string) (string, error) {
	up := strings.ToUpper(strings.TrimSpace(v))
	for _, a := range accepted {
		if up == a {
			return a, nil
		}
	}
	return "", apperr.InvalidEnum(field, v, accepted)
}

func ParseActivityType(v string) (ActivityType, error) {
	s, err := parseEnum("type", v, activityTypes)
	return ActivityType(s), err
}

func ParseDifficulty(v string) (Difficulty, error) {
	s, err := parseEnum("difficulty", v, difficulties)
	return Difficulty(s), err
}

func ParseSessionStatus(v string) (SessionStatus, error) {
	s, err := parseEnum("status", v, sessionStatuses)
	return SessionStatus(s), err
}

// Activity is a cognitive exercise from the catalogue. Content holds the
// game definition the client renders.
type Activity struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string         `gorm:"type:text;not null" json:"title"`
	Description      string         `gorm:"type:text" json:"description,omitempty"`
	Type             ActivityType   `gorm:"size:20;not null;index" json:"type"`
	Difficulty       Difficulty     `gorm:"size:20;not null;index" json:"difficulty"`
	Content          datatypes.JSON `gorm:"type:jsonb" json:"content,omitempty"`
	TimeLimitSeconds *int           `json:"time_limit_seconds,omitempty"`
	MaxScore         *int           `json:"max_score,omitempty"`
	Instructions     string         `gorm:"type:text" json:"instructions,omitempty"`
	ImageURL         string         `gorm:"type:text" json:"image_url,omitempty"`
	IsActive         bool           `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (Activity) TableName() string { return "cognitive_activities" }

func (a *Activity) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Session is one patient's attempt at an activity.
type Session struct {
	ID               uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"activity_id"`
	PatientID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"patient_id"`
	Status           SessionStatus `gorm:"size:20;not null;index" json:"status"`
	Score            *int          `json:"score,omitempty"`
	TimeSpentSeconds *int          `json:"time_spent_seconds,omitempty"`
	StartedAt        time.Time     `gorm:"not null;index" json:"started_at"`
	EndedAt          *time.Time    `json:"ended_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	Activity *Activity `gorm:"constraint:OnDelete:CASCADE" json:"activity,omitempty"`
}

func (Session) TableName() string { return "cognitive_sessions" }

func (s *Session) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Finish moves an in-progress session to a terminal status. Only COMPLETED
// records a score and completion time.
func (s *Session) Finish(status SessionStatus, score, timeSpent *int, at time.Time) error {
	if s.Status != SessionInProgress {
		return apperr.Conflict("session " + s.ID.String() + " is already " + string(s.Status))
	}
	switch status {
	case SessionCompleted:
		s.Score = score
		s.TimeSpentSeconds = timeSpent
		s.CompletedAt = &at
	case SessionAbandoned:
		s.TimeSpentSeconds = timeSpent
	default:
		return apperr.Validation("a session can only be completed or abandoned",
			map[string]string{"status": string(status)})
	}
	s.Status = status
	s.EndedAt = &at
	return nil
}

// Models lists the cognitive tables in dependency order.
func Models() []interface{} {
	return []interface{}{&Activity{}, &Session{}}
}
