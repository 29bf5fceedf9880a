package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wordpath/learning-service/internal/cache"
	"github.com/wordpath/learning-service/internal/curriculum"
	"github.com/wordpath/learning-service/internal/events"
	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/utils"
)

// RoundTestService drives the two-stage round test: a written-translation
// stage followed by a multiple-choice stage over the same shuffled word set.
type RoundTestService interface {
	Start(ctx context.Context, roundID uint, actor models.Actor) (*RoundSessionView, error)
	SubmitWritten(ctx context.Context, sessionID string, req *SubmitWrittenRequest, actor models.Actor) (*RoundSessionView, error)
	SubmitChoice(ctx context.Context, sessionID string, req *SubmitChoiceRequest, actor models.Actor) (*RoundSessionView, error)
	GetProgress(ctx context.Context, roundID uint, actor models.Actor) (*models.StudentRoundProgress, error)
	GetHistory(ctx context.Context, roundID uint, filters repositories.HistoryFilters, actor models.Actor) ([]*models.StudentAttemptHistory, int64, error)
}

type SubmitWrittenRequest struct {
	Answer string `json:"answer"`
}

type SubmitChoiceRequest struct {
	Choice string `json:"choice" validate:"required"`
}

type RoundStage string

const (
	StageWriting  RoundStage = "writing"
	StageChoosing RoundStage = "choosing"
	StageFinished RoundStage = "finished"
)

// RoundSessionView is the per-request snapshot handed back to the client.
// Prompt and Options describe the current word; Score and AttemptCount are
// only set once the session reaches the finished stage.
type RoundSessionView struct {
	SessionID string     `json:"session_id"`
	RoundID   uint       `json:"round_id"`
	Stage     RoundStage `json:"stage"`
	WordIndex int        `json:"word_index"`
	WordCount int        `json:"word_count"`

	Prompt        string   `json:"prompt,omitempty"`
	Transcription string   `json:"transcription,omitempty"`
	Options       []string `json:"options,omitempty"`

	LastCorrect  *bool `json:"last_correct,omitempty"`
	Score        *int  `json:"score,omitempty"`
	AttemptCount *int  `json:"attempt_count,omitempty"`
}

type roundSession struct {
	id        string
	studentID string
	unitID    uint
	roundID   uint

	// mu serializes submissions for the session; the store lock only guards
	// the maps. Two tabs submitting the same word must not double-append.
	mu sync.Mutex

	stage     RoundStage
	wordIndex int
	words     []*models.Word
	options   map[uint][]string // wordID -> shuffled choice options
	attempts  []models.RoundAttempt
	startedAt time.Time
}

// sessionStore keeps in-progress round sessions in memory. Abandoning a
// session needs no cleanup beyond replacing the map entry; nothing is
// persisted until the session finishes.
type sessionStore struct {
	mu       sync.Mutex
	byID     map[string]*roundSession
	byRound  map[string]string // studentID:roundID -> session id
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		byID:    make(map[string]*roundSession),
		byRound: make(map[string]string),
	}
}

func roundKey(studentID string, roundID uint) string {
	return fmt.Sprintf("%s:%d", studentID, roundID)
}

func (s *sessionStore) put(session *roundSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := roundKey(session.studentID, session.roundID)
	if old, ok := s.byRound[key]; ok {
		delete(s.byID, old)
	}
	s.byID[session.id] = session
	s.byRound[key] = session.id
}

func (s *sessionStore) get(id string) (*roundSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[id]
	return session, ok
}

func (s *sessionStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.byID[id]; ok {
		delete(s.byRound, roundKey(session.studentID, session.roundID))
		delete(s.byID, id)
	}
}

type roundTestService struct {
	repo       repositories.Repository
	curriculum *curriculum.Store
	sessions   *sessionStore
	publisher  events.EventPublisher
	cache      cache.CacheService
	logger     utils.Logger
	validator  *utils.Validator
	rng        *rand.Rand
	rngMu      sync.Mutex
}

func NewRoundTestService(
	repo repositories.Repository,
	store *curriculum.Store,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
	logger utils.Logger,
	validator *utils.Validator,
) RoundTestService {
	return &roundTestService{
		repo:       repo,
		curriculum: store,
		sessions:   newSessionStore(),
		publisher:  publisher,
		cache:      cacheService,
		logger:     logger,
		validator:  validator,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start opens a fresh session for the round: words shuffled once at entry,
// empty attempt set. Restarting replaces any session the student already has
// for this round; stored history is never touched.
func (s *roundTestService) Start(ctx context.Context, roundID uint, actor models.Actor) (*RoundSessionView, error) {
	if !actor.IsStudent() {
		return nil, NewPermissionError(actor.ID, "round_test", "start", "only students take round tests")
	}

	round, err := s.curriculum.Round(roundID)
	if err != nil {
		return nil, ErrRoundNotFound
	}
	words, err := s.curriculum.RoundWords(roundID)
	if err != nil {
		return nil, ErrRoundNotFound
	}

	shuffled := make([]*models.Word, len(words))
	copy(shuffled, words)
	s.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	session := &roundSession{
		id:        uuid.NewString(),
		studentID: actor.ID,
		unitID:    round.UnitID,
		roundID:   roundID,
		stage:     StageWriting,
		words:     shuffled,
		options:   make(map[uint][]string),
		attempts:  make([]models.RoundAttempt, 0, len(shuffled)),
		startedAt: time.Now(),
	}
	view := s.buildView(session, nil)
	s.sessions.put(session)

	s.logger.Info("Round test session started",
		"session_id", session.id,
		"student_id", actor.ID,
		"round_id", roundID,
		"word_count", len(shuffled))

	return view, nil
}

// SubmitWritten grades the current word's typed translation and advances the
// written stage; after the last word the session moves to the choice stage
// and the word index resets to 0.
func (s *roundTestService) SubmitWritten(ctx context.Context, sessionID string, req *SubmitWrittenRequest, actor models.Actor) (*RoundSessionView, error) {
	session, err := s.ownedSession(sessionID, actor)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.stage == StageFinished {
		return nil, ErrSessionFinished
	}
	if session.stage != StageWriting {
		return nil, ErrSessionNotInWriting
	}

	word := session.words[session.wordIndex]
	correct := AnswersMatch(req.Answer, word.English)
	session.attempts = append(session.attempts, models.RoundAttempt{
		WordID:         word.ID,
		WrittenAnswer:  req.Answer,
		WrittenCorrect: correct,
	})

	session.wordIndex++
	if session.wordIndex >= len(session.words) {
		session.stage = StageChoosing
		session.wordIndex = 0
		s.buildChoiceOptions(session)
	}

	return s.buildView(session, &correct), nil
}

// SubmitChoice grades the current word's multiple-choice pick; after the last
// word the session finishes, the score is computed over the merged attempt
// set and the completion is recorded.
func (s *roundTestService) SubmitChoice(ctx context.Context, sessionID string, req *SubmitChoiceRequest, actor models.Actor) (*RoundSessionView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	session, err := s.ownedSession(sessionID, actor)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.stage == StageFinished {
		return nil, ErrSessionFinished
	}
	if session.stage != StageChoosing {
		return nil, ErrSessionNotInChoosing
	}

	word := session.words[session.wordIndex]
	correct := req.Choice == word.Russian
	choice := req.Choice
	session.attempts[session.wordIndex].ChoiceAnswer = &choice
	session.attempts[session.wordIndex].ChoiceCorrect = &correct

	session.wordIndex++
	if session.wordIndex < len(session.words) {
		return s.buildView(session, &correct), nil
	}

	session.stage = StageFinished
	score := ScoreRoundAttempts(session.attempts)
	completedAt := time.Now()

	attemptCount, err := s.recordCompletion(ctx, session, score, completedAt)
	if err != nil {
		// Session state stays in memory so the client can retry the save.
		session.stage = StageChoosing
		session.wordIndex = len(session.words) - 1
		session.attempts[session.wordIndex].ChoiceAnswer = nil
		session.attempts[session.wordIndex].ChoiceCorrect = nil
		return nil, err
	}
	s.sessions.remove(session.id)

	view := s.buildView(session, &correct)
	view.Score = &score
	view.AttemptCount = &attemptCount
	return view, nil
}

func (s *roundTestService) GetProgress(ctx context.Context, roundID uint, actor models.Actor) (*models.StudentRoundProgress, error) {
	round, err := s.curriculum.Round(roundID)
	if err != nil {
		return nil, ErrRoundNotFound
	}

	progress, err := s.repo.Progress().GetByKey(ctx, actor.ID, round.UnitID, roundID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get round progress: %w", err)
	}
	return progress, nil
}

func (s *roundTestService) GetHistory(ctx context.Context, roundID uint, filters repositories.HistoryFilters, actor models.Actor) ([]*models.StudentAttemptHistory, int64, error) {
	round, err := s.curriculum.Round(roundID)
	if err != nil {
		return nil, 0, ErrRoundNotFound
	}

	filters.UnitID = &round.UnitID
	filters.RoundID = &roundID
	entries, total, err := s.repo.Progress().ListHistory(ctx, actor.ID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempt history: %w", err)
	}
	return entries, total, nil
}

// ===== COMPLETION RECORDING =====

// recordCompletion upserts the latest-attempt row (bumping the counter
// atomically) and then appends the history entry carrying the returned
// counter. A history append failure leaves the latest row ahead of its
// history; that degraded state is logged, not surfaced.
func (s *roundTestService) recordCompletion(ctx context.Context, session *roundSession, score int, completedAt time.Time) (int, error) {
	attemptsJSON, err := json.Marshal(session.attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal attempts: %w", err)
	}

	progress := &models.StudentRoundProgress{
		StudentID:   session.studentID,
		UnitID:      session.unitID,
		RoundID:     session.roundID,
		Score:       score,
		Attempts:    attemptsJSON,
		Completed:   true,
		CompletedAt: completedAt,
	}

	attemptCount, err := s.repo.Progress().Upsert(ctx, progress)
	if err != nil {
		s.logger.Warn("Round progress upsert failed, retrying once",
			"student_id", session.studentID,
			"round_id", session.roundID,
			"error", err)
		attemptCount, err = s.repo.Progress().Upsert(ctx, progress)
		if err != nil {
			return 0, NewTransientIOError("upsert round progress", err)
		}
	}

	entry := &models.StudentAttemptHistory{
		StudentID:     session.studentID,
		UnitID:        session.unitID,
		RoundID:       session.roundID,
		Score:         score,
		Attempts:      attemptsJSON,
		AttemptNumber: attemptCount,
		CompletedAt:   completedAt,
	}
	if err := s.repo.Progress().AppendHistory(ctx, entry); err != nil {
		s.logger.Error("Failed to append attempt history; latest progress is ahead of the audit log",
			"student_id", session.studentID,
			"round_id", session.roundID,
			"attempt_number", attemptCount,
			"error", err)
	}

	s.invalidateUnitOverview(ctx, session.studentID, session.unitID)

	event := events.NewRoundCompletedEvent(session.studentID, session.unitID, session.roundID, score, attemptCount, completedAt)
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish round completed event",
			"student_id", session.studentID,
			"round_id", session.roundID,
			"error", err)
	}

	s.logger.Info("Round completion recorded",
		"student_id", session.studentID,
		"unit_id", session.unitID,
		"round_id", session.roundID,
		"score", score,
		"attempt_number", attemptCount)

	return attemptCount, nil
}

func (s *roundTestService) invalidateUnitOverview(ctx context.Context, studentID string, unitID uint) {
	key := unitOverviewCacheKey(studentID, unitID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to invalidate unit overview cache", "key", key, "error", err)
	}
}

// ===== SESSION HELPERS =====

func (s *roundTestService) ownedSession(sessionID string, actor models.Actor) (*roundSession, error) {
	session, ok := s.sessions.get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.studentID != actor.ID {
		return nil, NewPermissionError(actor.ID, "round_test_session", "submit", "not owned by student")
	}
	return session, nil
}

// buildChoiceOptions prepares, for each word, the correct translation plus
// two distractors drawn from other words of the same round, shuffled.
func (s *roundTestService) buildChoiceOptions(session *roundSession) {
	for _, word := range session.words {
		options := []string{word.Russian}
		for _, idx := range s.pickDistractors(session, word.ID, 2) {
			options = append(options, session.words[idx].Russian)
		}
		s.shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
		session.options[word.ID] = options
	}
}

func (s *roundTestService) pickDistractors(session *roundSession, excludeWordID uint, n int) []int {
	candidates := make([]int, 0, len(session.words))
	for i, w := range session.words {
		if w.ID != excludeWordID {
			candidates = append(candidates, i)
		}
	}
	s.shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

func (s *roundTestService) shuffle(n int, swap func(i, j int)) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(n, swap)
}

func (s *roundTestService) buildView(session *roundSession, lastCorrect *bool) *RoundSessionView {
	view := &RoundSessionView{
		SessionID:   session.id,
		RoundID:     session.roundID,
		Stage:       session.stage,
		WordIndex:   session.wordIndex,
		WordCount:   len(session.words),
		LastCorrect: lastCorrect,
	}

	if session.stage == StageFinished || session.wordIndex >= len(session.words) {
		return view
	}

	word := session.words[session.wordIndex]
	switch session.stage {
	case StageWriting:
		view.Prompt = word.Russian
	case StageChoosing:
		view.Prompt = word.English
		view.Transcription = word.Transcription
		view.Options = session.options[word.ID]
	}
	return view
}

// AnswersMatch compares a typed translation against the expected one:
// case-insensitive, trimmed, with backtick and typographic apostrophes
// normalized to the plain one.
func AnswersMatch(given, expected string) bool {
	return normalizeAnswer(given) == normalizeAnswer(expected)
}

var apostropheReplacer = strings.NewReplacer("`", "'", "’", "'")

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(apostropheReplacer.Replace(s)))
}
