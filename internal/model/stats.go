package model

// ExamStats is the analytics report for one exam.
type ExamStats struct {
	Exam              ExamRef        `json:"exam"`
	Summary           ScoreSummary   `json:"stats"`
	ScoreDistribution []ScoreBucket  `json:"score_distribution"`
	CohortPerformance []CohortScore  `json:"class_performance"`
	QuestionAnalysis  []QuestionStat `json:"question_analysis"`
}

// ExamRef identifies the exam a report was computed for.
type ExamRef struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	TotalScore int    `json:"total_score"`
}

// ScoreSummary holds the headline numbers over all scored submissions.
type ScoreSummary struct {
	Total    int `json:"total"`
	Average  int `json:"average"`
	Max      int `json:"max"`
	Min      int `json:"min"`
	PassRate int `json:"pass_rate"`
}

// ScoreBucket counts submissions whose percentage falls in Range.
type ScoreBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// CohortScore is the average performance of one cohort.
type CohortScore struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Average int    `json:"average"`
	Rate    int    `json:"rate"`
}

// QuestionStat is the per-question analysis row.
type QuestionStat struct {
	ID           string       `json:"id"`
	Order        int          `json:"order"`
	Type         QuestionType `json:"type"`
	Points       int          `json:"points"`
	CorrectRate  int          `json:"correct_rate"`
	AverageScore float64      `json:"average_score"`
}
