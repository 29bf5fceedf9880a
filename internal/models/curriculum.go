package models

// Curriculum content is a static dataset loaded at startup. None of these
// types are persisted; they are read-only inputs to every service.

type Word struct {
	ID            uint   `json:"id"`
	English       string `json:"english"`
	Russian       string `json:"russian"`
	Transcription string `json:"transcription"`
}

// Round is one learning/testing session's worth of words.
type Round struct {
	ID      uint   `json:"id"`
	UnitID  uint   `json:"unit_id"`
	Title   string `json:"title"`
	WordIDs []uint `json:"word_ids"`
}

// Unit is an ordered group of rounds.
type Unit struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	RoundIDs []uint `json:"round_ids"`
}

// OnlineTest is a timed, teacher-defined assessment. Its word set may span
// units; grading happens after submission.
type OnlineTest struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
	WordIDs         []uint `json:"word_ids"`
	CreatedBy       string `json:"created_by"`
}

func (t *OnlineTest) DurationSeconds() int {
	return t.DurationMinutes * 60
}
