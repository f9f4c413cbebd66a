package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/istorica/mentorai/internal/model"
)

// ExportAllQuizzes builds export-ready results for every student that
// has at least one quiz, newest quizzes first within each student.
func (s *Store) ExportAllQuizzes() ([]model.StudentResult, error) {
	rows, err := s.db.Query(`SELECT DISTINCT student_id FROM quizzes ORDER BY student_id`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var studentIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list students: %w", err)
		}
		studentIDs = append(studentIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	var results []model.StudentResult
	for _, studentID := range studentIDs {
		quizzes, err := s.studentQuizResults(studentID)
		if err != nil {
			return nil, fmt.Errorf("export quizzes for %s: %w", studentID, err)
		}
		stats, err := s.StudentStats(studentID)
		if err != nil {
			return nil, fmt.Errorf("export stats for %s: %w", studentID, err)
		}

		result := model.StudentResult{
			StudentID: studentID,
			Quizzes:   quizzes,
			Stats:     stats,
		}
		// Student ids from the auth flow resolve to account details;
		// ids minted elsewhere export without them.
		user, err := s.GetUserByID(studentID)
		if err != nil {
			return nil, fmt.Errorf("get user %s: %w", studentID, err)
		}
		if user != nil {
			result.Username = user.Username
			result.FullName = user.FullName
		}
		results = append(results, result)
	}

	return results, nil
}

func (s *Store) studentQuizResults(studentID string) ([]model.QuizResult, error) {
	rows, err := s.db.Query(
		`SELECT id, mentor_id, template_type, tema, limba, created_at,
		        difficulty, bloom_level, quiz_status, score, max_score, content
		 FROM quizzes
		 WHERE student_id = ?
		 ORDER BY created_at DESC`,
		studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.QuizResult
	for rows.Next() {
		var q model.QuizResult
		var createdAt int64
		var score, maxScore sql.NullInt64
		var content string
		if err := rows.Scan(&q.ID, &q.MentorID, &q.TemplateType, &q.Tema, &q.Limba,
			&createdAt, &q.Difficulty, &q.BloomLevel, &q.Status,
			&score, &maxScore, &content); err != nil {
			return nil, err
		}
		q.CreatedAtDate = isoDate(createdAt)
		q.Content = json.RawMessage(content)
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
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}
