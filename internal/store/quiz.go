package store

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/istorica/mentorai/internal/model"
)

// Bloom-taxonomy level and difficulty label per template type.
// Both are derived at save time and never supplied by the caller.
var bloomLevels = map[model.TemplateType]int{
	model.TemplateCunoastere: 1,
	model.TemplateIntelegere: 2,
	model.TemplateAplicare:   3,
	model.TemplateAnaliza:    4,
	model.TemplateSinteza:    5,
}

var difficultyLabels = map[model.TemplateType]model.Difficulty{
	model.TemplateCunoastere: model.DifficultyUsor,
	model.TemplateIntelegere: model.DifficultyMediu,
	model.TemplateAplicare:   model.DifficultyMediu,
	model.TemplateAnaliza:    model.DifficultyAvansat,
	model.TemplateSinteza:    model.DifficultyFoarteAvansat,
}

// deriveMetadata maps a template type to its Bloom level and difficulty.
// Unknown types yield level 0 and 'mediu'.
func deriveMetadata(t model.TemplateType) (int, model.Difficulty) {
	level, ok := bloomLevels[t]
	if !ok {
		return 0, model.DifficultyMediu
	}
	return level, difficultyLabels[t]
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func isoDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillis)
}

func roundPercentage(score, maxScore int) int {
	return int(math.Round(float64(score) / float64(maxScore) * 100))
}

// SaveQuiz persists a new quiz as a draft. An id is assigned when the
// input carries none; difficulty and Bloom level are derived from the
// template type.
func (s *Store) SaveQuiz(in model.QuizInput) (model.SaveResult, error) {
	if in.StudentID == "" {
		return model.SaveResult{}, &ValidationError{Msg: "studentId is required"}
	}
	if len(in.Content) == 0 {
		return model.SaveResult{}, &ValidationError{Msg: "content is required"}
	}

	id := in.ID
	if id == "" {
		id = "quiz-" + uuid.NewString()
	}
	timestamp := time.Now().UnixMilli()
	bloomLevel, difficulty := deriveMetadata(in.TemplateType)
	limba := in.Limba
	if limba == "" {
		limba = model.LangRO
	}

	_, err := s.db.Exec(
		`INSERT INTO quizzes (
			id, student_id, mentor_id, template_type, tema,
			content, ai_provider, ai_model, thinking_process,
			limba, created_at, difficulty, bloom_level,
			token_estimate, quiz_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'draft')`,
		id, in.StudentID, in.MentorID, in.TemplateType, in.Tema,
		string(in.Content), in.AIProvider, in.AIModel, in.ThinkingProcess,
		limba, timestamp, difficulty, bloomLevel, in.TokenEstimate,
	)
	if err != nil {
		return model.SaveResult{}, &PersistenceError{Op: "save", Err: err}
	}

	slog.Info("saved quiz", "id", id, "student_id", in.StudentID,
		"template_type", in.TemplateType, "bloom_level", bloomLevel)
	return model.SaveResult{ID: id, Timestamp: timestamp}, nil
}

// UpdateScore records the student's result and marks the quiz completed.
// Soft-deleted quizzes cannot be scored.
func (s *Store) UpdateScore(id string, score, maxScore int) (model.ScoreResult, error) {
	if maxScore <= 0 {
		return model.ScoreResult{}, &ValidationError{Msg: "maxScore must be positive"}
	}
	if score < 0 || score > maxScore {
		return model.ScoreResult{}, &ValidationError{Msg: "score must be between 0 and maxScore"}
	}

	res, err := s.db.Exec(
		`UPDATE quizzes
		 SET score = ?, max_score = ?, quiz_status = 'completed'
		 WHERE id = ? AND quiz_status != 'deleted'`,
		score, maxScore, id,
	)
	if err != nil {
		return model.ScoreResult{}, &PersistenceError{Op: "update score", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.ScoreResult{}, &PersistenceError{Op: "update score", Err: err}
	}
	if affected == 0 {
		return model.ScoreResult{}, ErrQuizNotFound
	}

	return model.ScoreResult{
		ID:         id,
		Score:      score,
		MaxScore:   maxScore,
		Percentage: roundPercentage(score, maxScore),
	}, nil
}

// QuizHistory returns a student's quizzes newest first, without the
// content payload. Limit defaults to 20 when non-positive.
func (s *Store) QuizHistory(studentID string, limit, offset int) ([]model.QuizSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(
		`SELECT id, mentor_id, template_type, tema, limba,
		        created_at, difficulty, bloom_level, quiz_status,
		        score, max_score, token_estimate
		 FROM quizzes
		 WHERE student_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		studentID, limit, offset,
	)
	if err != nil {
		return nil, &PersistenceError{Op: "history", Err: err}
	}
	defer rows.Close()

	var summaries []model.QuizSummary
	for rows.Next() {
		var q model.QuizSummary
		var score, maxScore sql.NullInt64
		if err := rows.Scan(&q.ID, &q.MentorID, &q.TemplateType, &q.Tema, &q.Limba,
			&q.CreatedAt, &q.Difficulty, &q.BloomLevel, &q.Status,
			&score, &maxScore, &q.TokenEstimate); err != nil {
			return nil, &PersistenceError{Op: "history", Err: err}
		}
		q.CreatedAtDate = isoDate(q.CreatedAt)
		if score.Valid {
			v := int(score.Int64)
			q.Score = &v
		}
		if maxScore.Valid {
			v := int(maxScore.Int64)
			q.MaxScore = &v
		}
		if score.Valid && maxScore.Valid && maxScore.Int64 > 0 {
			pct := roundPercentage(int(score.Int64), int(maxScore.Int64))
			q.ScorePercentage = &pct
		}
		summaries = append(summaries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "history", Err: err}
	}
	return summaries, nil
}

// GetQuiz returns a full quiz record including the content payload, or
// nil (without error) when no quiz has the given id.
func (s *Store) GetQuiz(id string) (*model.QuizRecord, error) {
	var q model.QuizRecord
	var content string
	var thinking sql.NullString
	var score, maxScore sql.NullInt64
	err := s.db.QueryRow(
		`SELECT id, student_id, mentor_id, template_type, tema, content,
		        ai_provider, ai_model, thinking_process, limba, created_at,
		        difficulty, bloom_level, token_estimate, quiz_status,
		        score, max_score
		 FROM quizzes WHERE id = ?`, id,
	).Scan(&q.ID, &q.StudentID, &q.MentorID, &q.TemplateType, &q.Tema, &content,
		&q.AIProvider, &q.AIModel, &thinking, &q.Limba, &q.CreatedAt,
		&q.Difficulty, &q.BloomLevel, &q.TokenEstimate, &q.Status,
		&score, &maxScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get", Err: err}
	}

	q.Content = json.RawMessage(content)
	q.ThinkingProcess = thinking.String
	q.CreatedAtDate = isoDate(q.CreatedAt)
	if score.Valid {
		v := int(score.Int64)
		q.Score = &v
	}
	if maxScore.Valid {
		v := int(maxScore.Int64)
		q.MaxScore = &v
	}
	return &q, nil
}

// StudentStats aggregates a student's quiz counts, average score
// percentage over scored quizzes, and token usage.
func (s *Store) StudentStats(studentID string) (model.StudentStats, error) {
	var stats model.StudentStats
	var avg sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COUNT(CASE WHEN quiz_status = 'completed' THEN 1 END),
		        AVG(CASE WHEN score IS NOT NULL THEN score * 100.0 / max_score END),
		        COALESCE(SUM(token_estimate), 0)
		 FROM quizzes
		 WHERE student_id = ?`, studentID,
	).Scan(&stats.TotalQuizzes, &stats.CompletedQuizzes, &avg, &stats.TotalTokensUsed)
	if err != nil {
		return model.StudentStats{}, &PersistenceError{Op: "stats", Err: err}
	}
	if avg.Valid {
		v := int(math.Round(avg.Float64))
		stats.AvgScorePercentage = &v
	}
	return stats, nil
}

// DeleteQuiz soft-deletes a quiz after checking that the caller owns
// it. The row is never physically removed.
func (s *Store) DeleteQuiz(id, studentID string) error {
	var owner string
	err := s.db.QueryRow(`SELECT student_id FROM quizzes WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return &AuthorizationError{QuizID: id}
	}
	if err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	if owner != studentID {
		return &AuthorizationError{QuizID: id}
	}

	if _, err := s.db.Exec(`UPDATE quizzes SET quiz_status = 'deleted' WHERE id = ?`, id); err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	slog.Info("soft-deleted quiz", "id", id, "student_id", studentID)
	return nil
}
