package model

import "encoding/json"

// QuizExport is the top-level JSON structure for quiz result export.
type QuizExport struct {
	ExportedAt string          `json:"exported_at"`
	Students   []StudentResult `json:"students"`
}

// StudentResult holds one student's quizzes and aggregate stats for export.
type StudentResult struct {
	StudentID string       `json:"student_id"`
	Username  string       `json:"username,omitempty"`
	FullName  string       `json:"fullname,omitempty"`
	Quizzes   []QuizResult `json:"quizzes"`
	Stats     StudentStats `json:"stats"`
}

// QuizResult holds per-quiz data for export, content included.
type QuizResult struct {
	ID              string          `json:"id"`
	MentorID        Mentor          `json:"mentor_id"`
	TemplateType    TemplateType    `json:"template_type"`
	Tema            string          `json:"tema"`
	Limba           Language        `json:"limba"`
	CreatedAtDate   string          `json:"created_at_date"`
	Difficulty      Difficulty      `json:"difficulty"`
	BloomLevel      int             `json:"bloom_level"`
	Status          QuizStatus      `json:"quiz_status"`
	Score           *int            `json:"score,omitempty"`
	MaxScore        *int            `json:"max_score,omitempty"`
	ScorePercentage *int            `json:"score_percentage"`
	Content         json.RawMessage `json:"content"`
}
