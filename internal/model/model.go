package model

import (
	"context"
	"encoding/json"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
)

// UserStatus represents an account's approval state.
type UserStatus string

const (
	// UserPending means the account awaits teacher approval.
	UserPending UserStatus = "pending"
	// UserActive means the account can log in.
	UserActive UserStatus = "active"
	// UserBlocked means the account was blocked by a teacher.
	UserBlocked UserStatus = "blocked"
)

// User represents a system user.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	FullName     string     `json:"fullname"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Mentor identifies one of the AI mentor personas.
type Mentor string

const (
	MentorAbsolvus  Mentor = "ABSOLVUS"
	MentorBacus     Mentor = "BACUS"
	MentorOlimpicus Mentor = "OLIMPICUS"
	MentorCronicus  Mentor = "CRONICUS"
)

// TemplateType classifies a quiz by its Bloom-taxonomy template.
type TemplateType string

const (
	TemplateCunoastere TemplateType = "CUNOASTERE"
	TemplateIntelegere TemplateType = "INTELEGERE"
	TemplateAplicare   TemplateType = "APLICARE"
	TemplateAnaliza    TemplateType = "ANALIZA"
	TemplateSinteza    TemplateType = "SINTEZA"
)

// Language is a content language tag.
type Language string

const (
	LangRO Language = "RO"
	LangRU Language = "RU"
)

// Difficulty is a derived human-readable difficulty label.
type Difficulty string

const (
	DifficultyUsor          Difficulty = "ușor"
	DifficultyMediu         Difficulty = "mediu"
	DifficultyAvansat       Difficulty = "avansat"
	DifficultyFoarteAvansat Difficulty = "foarte avansat"
)

// QuizStatus represents the lifecycle state of a quiz record.
// Allowed transitions: draft -> completed -> reviewed, and any state -> deleted.
type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizCompleted QuizStatus = "completed"
	QuizReviewed  QuizStatus = "reviewed"
	QuizDeleted   QuizStatus = "deleted"
)

// QuizInput is the caller-supplied part of a quiz record.
// ID is optional; the store assigns one when it is empty.
type QuizInput struct {
	ID              string          `json:"quizId,omitempty"`
	StudentID       string          `json:"studentId"`
	MentorID        Mentor          `json:"mentorId"`
	TemplateType    TemplateType    `json:"templateType"`
	Tema            string          `json:"tema"`
	Content         json.RawMessage `json:"content"`
	AIProvider      string          `json:"aiProvider"`
	AIModel         string          `json:"aiModel"`
	ThinkingProcess string          `json:"thinkingProcess,omitempty"`
	Limba           Language        `json:"limba,omitempty"`
	TokenEstimate   int             `json:"tokenEstimate,omitempty"`
}

// QuizRecord is a full stored quiz, including the content payload.
// Difficulty and BloomLevel are derived from TemplateType, never supplied.
type QuizRecord struct {
	ID              string          `json:"id"`
	StudentID       string          `json:"student_id"`
	MentorID        Mentor          `json:"mentor_id"`
	TemplateType    TemplateType    `json:"template_type"`
	Tema            string          `json:"tema"`
	Content         json.RawMessage `json:"content"`
	AIProvider      string          `json:"ai_provider"`
	AIModel         string          `json:"ai_model"`
	ThinkingProcess string          `json:"thinking_process,omitempty"`
	Limba           Language        `json:"limba"`
	CreatedAt       int64           `json:"created_at"`
	CreatedAtDate   string          `json:"created_at_date"`
	Difficulty      Difficulty      `json:"difficulty"`
	BloomLevel      int             `json:"bloom_level"`
	TokenEstimate   int             `json:"token_estimate"`
	Status          QuizStatus      `json:"quiz_status"`
	Score           *int            `json:"score,omitempty"`
	MaxScore        *int            `json:"max_score,omitempty"`
}

// QuizSummary is a history row: a quiz without its content payload.
type QuizSummary struct {
	ID              string       `json:"id"`
	MentorID        Mentor       `json:"mentor_id"`
	TemplateType    TemplateType `json:"template_type"`
	Tema            string       `json:"tema"`
	Limba           Language     `json:"limba"`
	CreatedAt       int64        `json:"created_at"`
	CreatedAtDate   string       `json:"created_at_date"`
	Difficulty      Difficulty   `json:"difficulty"`
	BloomLevel      int          `json:"bloom_level"`
	Status          QuizStatus   `json:"quiz_status"`
	Score           *int         `json:"score,omitempty"`
	MaxScore        *int         `json:"max_score,omitempty"`
	TokenEstimate   int          `json:"token_estimate"`
	ScorePercentage *int         `json:"score_percentage"`
}

// SaveResult is returned after a quiz is persisted.
type SaveResult struct {
	ID        string `json:"quizId"`
	Timestamp int64  `json:"timestamp"`
}

// ScoreResult is returned after a score update.
type ScoreResult struct {
	ID         string `json:"quizId"`
	Score      int    `json:"score"`
	MaxScore   int    `json:"maxScore"`
	Percentage int    `json:"percentage"`
}

// StudentStats summarizes a student's quiz performance.
// AvgScorePercentage is nil when no quiz has been scored yet.
type StudentStats struct {
	TotalQuizzes       int  `json:"totalQuizzes"`
	CompletedQuizzes   int  `json:"completedQuizzes"`
	AvgScorePercentage *int `json:"avgScorePercentage"`
	TotalTokensUsed    int  `json:"totalTokensUsed"`
}
