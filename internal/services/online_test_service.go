package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/wordpath/learning-service/internal/cache"
	"github.com/wordpath/learning-service/internal/curriculum"
	"github.com/wordpath/learning-service/internal/events"
	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/utils"
)

// deadlineGrace is the slack allowed past the nominal deadline before a
// submission's duration gets clamped to the planned time. It covers clock
// skew and slow networks; it is not a second timer for the student.
const deadlineGrace = 30 * time.Second

// OnlineTestService runs the timed, single-attempt online test. Session
// state lives in Redis so any instance can serve the next request; the
// deadline is enforced server-side from the stored start time rather than
// trusted from the client.
type OnlineTestService interface {
	StartSession(ctx context.Context, testID uint, actor models.Actor) (*OnlineSessionView, error)
	SaveAnswer(ctx context.Context, sessionID string, req *SaveAnswerRequest, actor models.Actor) (*OnlineSessionView, error)
	Submit(ctx context.Context, sessionID string, actor models.Actor) (*models.OnlineTestResult, error)
	// Beacon is the page-unload submission path: best effort, never blocks,
	// errors are swallowed by design.
	Beacon(ctx context.Context, sessionID string, actor models.Actor)
	GetResult(ctx context.Context, testID uint, studentID string, actor models.Actor) (*models.OnlineTestResult, error)
}

type SaveAnswerRequest struct {
	WordID uint   `json:"word_id" validate:"required"`
	Answer string `json:"answer"`
}

// OnlineSessionView is the client-facing snapshot of a running session.
type OnlineSessionView struct {
	SessionID        string         `json:"session_id"`
	TestID           uint           `json:"test_id"`
	Words            []*models.Word `json:"words,omitempty"`
	AnsweredCount    int            `json:"answered_count"`
	WordCount        int            `json:"word_count"`
	RemainingSeconds int            `json:"remaining_seconds"`
}

// onlineSession is the Redis-persisted session record.
type onlineSession struct {
	ID             string          `json:"id"`
	StudentID      string          `json:"student_id"`
	TestID         uint            `json:"test_id"`
	WordIDs        []uint          `json:"word_ids"` // shuffled once at start
	Answers        map[uint]string `json:"answers"`  // keyed by word id, overwrite on revisit
	StartedAt      time.Time       `json:"started_at"`
	PlannedSeconds int             `json:"planned_seconds"`
}

func (s *onlineSession) deadline() time.Time {
	return s.StartedAt.Add(time.Duration(s.PlannedSeconds) * time.Second)
}

func (s *onlineSession) remainingSeconds(now time.Time) int {
	remaining := int(s.deadline().Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func onlineSessionKey(sessionID string) string {
	return "online_test_session:" + sessionID
}

func onlineSessionIndexKey(studentID string, testID uint) string {
	return fmt.Sprintf("online_test_session_index:%s:%d", studentID, testID)
}

type onlineTestService struct {
	repo       repositories.Repository
	curriculum *curriculum.Store
	cache      cache.CacheService
	publisher  events.EventPublisher
	logger     utils.Logger
	validator  *utils.Validator
	shuffler   func(n int, swap func(i, j int))
}

func NewOnlineTestService(
	repo repositories.Repository,
	store *curriculum.Store,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger utils.Logger,
	validator *utils.Validator,
) OnlineTestService {
	return &onlineTestService{
		repo:       repo,
		curriculum: store,
		cache:      cacheService,
		publisher:  publisher,
		logger:     logger,
		validator:  validator,
		shuffler:   defaultShuffler,
	}
}

// StartSession refuses to open a session when a stored result already exists
// for (student, test): once submitted, the student sees the result instead of
// a fresh attempt, until a teacher clears it. An unexpired live session is
// resumed rather than replaced.
func (s *onlineTestService) StartSession(ctx context.Context, testID uint, actor models.Actor) (*OnlineSessionView, error) {
	if !actor.IsStudent() {
		return nil, NewPermissionError(actor.ID, "online_test", "start", "only students take online tests")
	}

	test, err := s.curriculum.OnlineTest(testID)
	if err != nil {
		return nil, ErrTestNotFound
	}

	_, err = s.repo.OnlineTestResult().GetByKey(ctx, actor.ID, testID)
	if err == nil {
		return nil, ErrTestAlreadySubmitted
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing result: %w", err)
	}

	// Resume a live session if one exists. A session past its grace window
	// is finalized with the answers already saved, never discarded.
	var existingID string
	if err := s.cache.Get(ctx, onlineSessionIndexKey(actor.ID, testID), &existingID); err == nil {
		var session onlineSession
		if err := s.cache.Get(ctx, onlineSessionKey(existingID), &session); err == nil {
			now := time.Now()
			if now.Before(session.deadline().Add(deadlineGrace)) {
				return s.buildSessionView(&session, now, true)
			}
			s.logger.Info("Expired session found at start, auto-submitting",
				"session_id", session.ID,
				"student_id", actor.ID,
				"test_id", testID)
			if _, err := s.finalize(ctx, &session, true); err != nil {
				return nil, err
			}
			return nil, ErrTestAlreadySubmitted
		}
	}

	words, err := s.curriculum.TestWords(testID)
	if err != nil {
		return nil, ErrTestNotFound
	}
	wordIDs := make([]uint, len(words))
	for i, w := range words {
		wordIDs[i] = w.ID
	}
	s.shuffler(len(wordIDs), func(i, j int) {
		wordIDs[i], wordIDs[j] = wordIDs[j], wordIDs[i]
	})

	session := &onlineSession{
		ID:             uuid.NewString(),
		StudentID:      actor.ID,
		TestID:         testID,
		WordIDs:        wordIDs,
		Answers:        make(map[uint]string),
		StartedAt:      time.Now(),
		PlannedSeconds: test.DurationSeconds(),
	}
	if err := s.storeSession(ctx, session); err != nil {
		return nil, NewTransientIOError("store online test session", err)
	}

	s.logger.Info("Online test session started",
		"session_id", session.ID,
		"student_id", actor.ID,
		"test_id", testID,
		"planned_seconds", session.PlannedSeconds)

	return s.buildSessionView(session, time.Now(), true)
}

// SaveAnswer captures one word's answer, overwriting any earlier answer for
// the same word. Past the grace window the session is auto-submitted instead.
func (s *onlineTestService) SaveAnswer(ctx context.Context, sessionID string, req *SaveAnswerRequest, actor models.Actor) (*OnlineSessionView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	session, err := s.loadOwnedSession(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if now.After(session.deadline().Add(deadlineGrace)) {
		s.logger.Info("Answer arrived past the deadline, auto-submitting session",
			"session_id", sessionID,
			"student_id", actor.ID)
		if _, err := s.finalize(ctx, session, true); err != nil {
			return nil, err
		}
		return nil, ErrTestAlreadySubmitted
	}

	found := false
	for _, id := range session.WordIDs {
		if id == req.WordID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrValidationFailed
	}

	session.Answers[req.WordID] = req.Answer
	if err := s.storeSession(ctx, session); err != nil {
		return nil, NewTransientIOError("store online test session", err)
	}

	return s.buildSessionView(session, now, false)
}

// Submit is the explicit submission path: one synchronous retry on storage
// failure before the error surfaces to the student.
func (s *onlineTestService) Submit(ctx context.Context, sessionID string, actor models.Actor) (*models.OnlineTestResult, error) {
	session, err := s.loadOwnedSession(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, session, true)
}

// Beacon handles the navigator.sendBeacon unload path. It reuses the same
// submission payload but swallows every error: the unload cannot block, and
// losing this write is an accepted limitation.
func (s *onlineTestService) Beacon(ctx context.Context, sessionID string, actor models.Actor) {
	session, err := s.loadOwnedSession(ctx, sessionID, actor)
	if err != nil {
		s.logger.Debug("Beacon submission skipped", "session_id", sessionID, "error", err)
		return
	}
	if _, err := s.finalize(ctx, session, false); err != nil {
		s.logger.Warn("Beacon submission lost", "session_id", sessionID, "error", err)
	}
}

func (s *onlineTestService) GetResult(ctx context.Context, testID uint, studentID string, actor models.Actor) (*models.OnlineTestResult, error) {
	if !actor.IsTeacher() && actor.ID != studentID {
		return nil, NewPermissionError(actor.ID, "online_test_result", "read", "students may only read their own results")
	}

	result, err := s.repo.OnlineTestResult().GetByKey(ctx, studentID, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

// ===== SUBMISSION =====

// finalize converges every termination trigger on the same payload: an
// answer entry for every word of the test (empty string when never
// attempted) and duration = planned - remaining, clamped to planned when the
// submission arrived late.
func (s *onlineTestService) finalize(ctx context.Context, session *onlineSession, retry bool) (*models.OnlineTestResult, error) {
	now := time.Now()
	elapsed := int(now.Sub(session.StartedAt).Seconds())
	if elapsed > session.PlannedSeconds {
		if now.After(session.deadline().Add(deadlineGrace)) {
			s.logger.Warn("Submission past deadline grace, clamping duration",
				"session_id", session.ID,
				"student_id", session.StudentID,
				"elapsed_seconds", elapsed)
		}
		elapsed = session.PlannedSeconds
	}

	answers := make([]models.OnlineTestAnswer, 0, len(session.WordIDs))
	for _, wordID := range session.WordIDs {
		answers = append(answers, models.OnlineTestAnswer{
			WordID:     wordID,
			UserAnswer: session.Answers[wordID],
		})
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answers: %w", err)
	}

	// The student-side score is informational; grading recomputes it from
	// teacher-marked flags.
	selfScore := 0
	if words, err := s.curriculum.TestWords(session.TestID); err == nil {
		correct := 0
		for _, w := range words {
			if answer, ok := session.Answers[w.ID]; ok && AnswersMatch(answer, w.English) {
				correct++
			}
		}
		selfScore = Percentage(correct, len(words))
	}

	result := &models.OnlineTestResult{
		StudentID:       session.StudentID,
		OnlineTestID:    session.TestID,
		Score:           selfScore,
		Answers:         answersJSON,
		CompletedAt:     now,
		DurationSeconds: elapsed,
	}

	err = s.repo.OnlineTestResult().Upsert(ctx, result)
	if err != nil && retry {
		s.logger.Warn("Result upsert failed, retrying once",
			"session_id", session.ID,
			"student_id", session.StudentID,
			"error", err)
		err = s.repo.OnlineTestResult().Upsert(ctx, result)
	}
	if err != nil {
		return nil, NewTransientIOError("upsert online test result", err)
	}

	s.dropSession(ctx, session)

	title := ""
	if test, err := s.curriculum.OnlineTest(session.TestID); err == nil {
		title = test.Title
	}
	event := events.NewTestSubmittedEvent(result.ID, session.TestID, title, session.StudentID, elapsed, now)
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish test submitted event",
			"result_id", result.ID,
			"error", err)
	}

	s.logger.Info("Online test submitted",
		"result_id", result.ID,
		"student_id", session.StudentID,
		"test_id", session.TestID,
		"duration_seconds", elapsed)

	return result, nil
}

// ===== SESSION STORAGE =====

func (s *onlineTestService) storeSession(ctx context.Context, session *onlineSession) error {
	ttl := time.Duration(session.PlannedSeconds)*time.Second + deadlineGrace + time.Minute
	if err := s.cache.Set(ctx, onlineSessionKey(session.ID), session, ttl); err != nil {
		return err
	}
	return s.cache.Set(ctx, onlineSessionIndexKey(session.StudentID, session.TestID), session.ID, ttl)
}

func (s *onlineTestService) dropSession(ctx context.Context, session *onlineSession) {
	if err := s.cache.Delete(ctx, onlineSessionKey(session.ID)); err != nil {
		s.logger.Warn("Failed to drop session key", "session_id", session.ID, "error", err)
	}
	if err := s.cache.Delete(ctx, onlineSessionIndexKey(session.StudentID, session.TestID)); err != nil {
		s.logger.Warn("Failed to drop session index key", "session_id", session.ID, "error", err)
	}
}

func (s *onlineTestService) loadOwnedSession(ctx context.Context, sessionID string, actor models.Actor) (*onlineSession, error) {
	var session onlineSession
	if err := s.cache.Get(ctx, onlineSessionKey(sessionID), &session); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, NewTransientIOError("load online test session", err)
	}
	if session.StudentID != actor.ID {
		return nil, NewPermissionError(actor.ID, "online_test_session", "submit", "not owned by student")
	}
	return &session, nil
}

func (s *onlineTestService) buildSessionView(session *onlineSession, now time.Time, includeWords bool) (*OnlineSessionView, error) {
	view := &OnlineSessionView{
		SessionID:        session.ID,
		TestID:           session.TestID,
		AnsweredCount:    len(session.Answers),
		WordCount:        len(session.WordIDs),
		RemainingSeconds: session.remainingSeconds(now),
	}
	if includeWords {
		words := make([]*models.Word, 0, len(session.WordIDs))
		for _, id := range session.WordIDs {
			w, err := s.curriculum.Word(id)
			if err != nil {
				return nil, fmt.Errorf("session references unknown word %d: %w", id, err)
			}
			words = append(words, w)
		}
		view.Words = words
	}
	return view, nil
}

func defaultShuffler(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}
