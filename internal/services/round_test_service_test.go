package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wordpath/learning-service/internal/events"
	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/utils"
	"gorm.io/gorm"
)

// Fixture translations, keyed both ways so tests can answer correctly no
// matter how the session shuffled the words.
var (
	englishByRussian = map[string]string{
		"кошка":       "cat",
		"собака":      "dog",
		"не волнуйся": "don't worry",
		"дом":         "house",
		"дерево":      "tree",
		"река":        "river",
	}
	russianByEnglish = map[string]string{
		"cat":         "кошка",
		"dog":         "собака",
		"don't worry": "не волнуйся",
		"house":       "дом",
		"tree":        "дерево",
		"river":       "река",
	}
)

func newRoundTestFixture(t *testing.T) (RoundTestService, *mockRepository, *events.MockEventPublisher) {
	t.Helper()
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testSlog())
	svc := NewRoundTestService(repo, loadTestCurriculum(t), publisher, newMemoryCache(), testLogger(), utils.NewValidator())
	return svc, repo, publisher
}

// walkWrittenStage answers every written prompt correctly and returns the
// first choosing-stage view.
func walkWrittenStage(t *testing.T, svc RoundTestService, view *RoundSessionView) *RoundSessionView {
	t.Helper()
	ctx := context.Background()
	for view.Stage == StageWriting {
		answer, ok := englishByRussian[view.Prompt]
		require.True(t, ok, "unknown prompt %q", view.Prompt)

		next, err := svc.SubmitWritten(ctx, view.SessionID, &SubmitWrittenRequest{Answer: answer}, studentActor)
		require.NoError(t, err)
		require.NotNil(t, next.LastCorrect)
		assert.True(t, *next.LastCorrect)
		view = next
	}
	return view
}

// walkChoiceStage answers every choice prompt correctly and returns the
// finished view.
func walkChoiceStage(t *testing.T, svc RoundTestService, view *RoundSessionView) *RoundSessionView {
	t.Helper()
	ctx := context.Background()
	for view.Stage == StageChoosing {
		choice, ok := russianByEnglish[view.Prompt]
		require.True(t, ok, "unknown prompt %q", view.Prompt)
		assert.Contains(t, view.Options, choice)
		assert.Len(t, view.Options, 3)

		next, err := svc.SubmitChoice(ctx, view.SessionID, &SubmitChoiceRequest{Choice: choice}, studentActor)
		require.NoError(t, err)
		view = next
	}
	return view
}

func TestRoundTestService_FullWalk(t *testing.T) {
	svc, repo, publisher := newRoundTestFixture(t)
	ctx := context.Background()

	var savedProgress *models.StudentRoundProgress
	repo.progress.On("Upsert", mock.Anything, mock.AnythingOfType("*models.StudentRoundProgress")).
		Run(func(args mock.Arguments) {
			savedProgress = args.Get(1).(*models.StudentRoundProgress)
		}).
		Return(1, nil).Once()
	repo.progress.On("AppendHistory", mock.Anything, mock.AnythingOfType("*models.StudentAttemptHistory")).
		Return(nil).Once()

	view, err := svc.Start(ctx, 10, studentActor)
	require.NoError(t, err)
	assert.Equal(t, StageWriting, view.Stage)
	assert.Equal(t, 3, view.WordCount)
	assert.Equal(t, 0, view.WordIndex)
	assert.NotEmpty(t, view.Prompt)

	view = walkWrittenStage(t, svc, view)
	assert.Equal(t, StageChoosing, view.Stage)
	assert.Equal(t, 0, view.WordIndex)

	view = walkChoiceStage(t, svc, view)
	assert.Equal(t, StageFinished, view.Stage)
	require.NotNil(t, view.Score)
	assert.Equal(t, 100, *view.Score)
	require.NotNil(t, view.AttemptCount)
	assert.Equal(t, 1, *view.AttemptCount)

	require.NotNil(t, savedProgress)
	assert.Equal(t, "student-1", savedProgress.StudentID)
	assert.Equal(t, uint(100), savedProgress.UnitID)
	assert.Equal(t, uint(10), savedProgress.RoundID)
	assert.Equal(t, 100, savedProgress.Score)
	assert.True(t, savedProgress.Completed)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventRoundCompleted, published[0].Type)

	// The session is gone once recorded.
	_, err = svc.SubmitChoice(ctx, view.SessionID, &SubmitChoiceRequest{Choice: "кошка"}, studentActor)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	repo.progress.AssertExpectations(t)
}

func TestRoundTestService_AttemptCountMonotonic(t *testing.T) {
	svc, repo, _ := newRoundTestFixture(t)
	ctx := context.Background()

	var historyNumbers []int
	repo.progress.On("Upsert", mock.Anything, mock.Anything).Return(1, nil).Once()
	repo.progress.On("Upsert", mock.Anything, mock.Anything).Return(2, nil).Once()
	repo.progress.On("AppendHistory", mock.Anything, mock.AnythingOfType("*models.StudentAttemptHistory")).
		Run(func(args mock.Arguments) {
			historyNumbers = append(historyNumbers, args.Get(1).(*models.StudentAttemptHistory).AttemptNumber)
		}).
		Return(nil).Twice()

	for i := 1; i <= 2; i++ {
		view, err := svc.Start(ctx, 10, studentActor)
		require.NoError(t, err)
		view = walkChoiceStage(t, svc, walkWrittenStage(t, svc, view))
		require.NotNil(t, view.AttemptCount)
		assert.Equal(t, i, *view.AttemptCount)
	}

	// History mirrors the counter the upsert returned.
	assert.Equal(t, []int{1, 2}, historyNumbers)
}

func TestRoundTestService_MixedScore(t *testing.T) {
	svc, repo, _ := newRoundTestFixture(t)
	ctx := context.Background()

	var savedProgress *models.StudentRoundProgress
	repo.progress.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedProgress = args.Get(1).(*models.StudentRoundProgress)
		}).
		Return(1, nil).Once()
	repo.progress.On("AppendHistory", mock.Anything, mock.Anything).Return(nil).Once()

	view, err := svc.Start(ctx, 10, studentActor)
	require.NoError(t, err)

	// Miss every written answer, then answer every choice correctly: 3/6.
	for view.Stage == StageWriting {
		next, err := svc.SubmitWritten(ctx, view.SessionID, &SubmitWrittenRequest{Answer: "wrong"}, studentActor)
		require.NoError(t, err)
		require.NotNil(t, next.LastCorrect)
		assert.False(t, *next.LastCorrect)
		view = next
	}
	view = walkChoiceStage(t, svc, view)

	require.NotNil(t, view.Score)
	assert.Equal(t, 50, *view.Score)
	assert.Equal(t, 50, savedProgress.Score)
}

func TestRoundTestService_StageOrderEnforced(t *testing.T) {
	svc, _, _ := newRoundTestFixture(t)
	ctx := context.Background()

	view, err := svc.Start(ctx, 10, studentActor)
	require.NoError(t, err)

	// Choice submissions are refused while the written stage is running.
	_, err = svc.SubmitChoice(ctx, view.SessionID, &SubmitChoiceRequest{Choice: "кошка"}, studentActor)
	assert.ErrorIs(t, err, ErrSessionNotInChoosing)

	view = walkWrittenStage(t, svc, view)

	// And written submissions are refused once in the choice stage.
	_, err = svc.SubmitWritten(ctx, view.SessionID, &SubmitWrittenRequest{Answer: "cat"}, studentActor)
	assert.ErrorIs(t, err, ErrSessionNotInWriting)
}

func TestRoundTestService_RestartReplacesSession(t *testing.T) {
	svc, _, _ := newRoundTestFixture(t)
	ctx := context.Background()

	first, err := svc.Start(ctx, 10, studentActor)
	require.NoError(t, err)
	second, err := svc.Start(ctx, 10, studentActor)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	// The abandoned session is unreachable.
	_, err = svc.SubmitWritten(ctx, first.SessionID, &SubmitWrittenRequest{Answer: "cat"}, studentActor)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRoundTestService_Permissions(t *testing.T) {
	svc, _, _ := newRoundTestFixture(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, 10, teacherActor)
	assert.True(t, IsPermission(err))

	view, err := svc.Start(ctx, 10, studentActor)
	require.NoError(t, err)

	otherStudent := models.Actor{ID: "student-2", Role: models.RoleStudent}
	_, err = svc.SubmitWritten(ctx, view.SessionID, &SubmitWrittenRequest{Answer: "cat"}, otherStudent)
	assert.True(t, IsPermission(err))
}

func TestRoundTestService_ConcurrentSubmitsSerialized(t *testing.T) {
	svc, _, _ := newRoundTestFixture(t)
	ctx := context.Background()

	view, err := svc.Start(ctx, 10, studentActor)
	require.NoError(t, err)

	// Six racing written submissions against a three-word round (two tabs,
	// double clicks): exactly one advance per word, the surplus refused once
	// the stage flips. No double-append, no index past the attempt set.
	const submitters = 6
	errs := make(chan error, submitters)
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitWritten(ctx, view.SessionID, &SubmitWrittenRequest{Answer: "wrong"}, studentActor)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted, refused := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrSessionNotInWriting):
			refused++
		default:
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	assert.Equal(t, 3, accepted)
	assert.Equal(t, 3, refused)

	// The session landed cleanly in the choice stage.
	_, err = svc.SubmitWritten(ctx, view.SessionID, &SubmitWrittenRequest{Answer: "wrong"}, studentActor)
	assert.ErrorIs(t, err, ErrSessionNotInWriting)
}

func TestRoundTestService_UpsertFailureKeepsSessionAlive(t *testing.T) {
	svc, repo, _ := newRoundTestFixture(t)
	ctx := context.Background()

	dbDown := errors.New("connection refused")
	repo.progress.On("Upsert", mock.Anything, mock.Anything).Return(0, dbDown).Twice()
	repo.progress.On("Upsert", mock.Anything, mock.Anything).Return(1, nil).Once()
	repo.progress.On("AppendHistory", mock.Anything, mock.Anything).Return(nil).Once()

	view, err := svc.Start(ctx, 10, studentActor)
	require.NoError(t, err)
	view = walkWrittenStage(t, svc, view)

	// Advance to the last choice, then fail the save: both upsert tries are
	// consumed and the error surfaces as transient.
	for view.WordIndex < view.WordCount-1 {
		choice := russianByEnglish[view.Prompt]
		view, err = svc.SubmitChoice(ctx, view.SessionID, &SubmitChoiceRequest{Choice: choice}, studentActor)
		require.NoError(t, err)
	}
	lastChoice := russianByEnglish[view.Prompt]
	_, err = svc.SubmitChoice(ctx, view.SessionID, &SubmitChoiceRequest{Choice: lastChoice}, studentActor)
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	// The session survived the failure; the retried submit succeeds.
	finished, err := svc.SubmitChoice(ctx, view.SessionID, &SubmitChoiceRequest{Choice: lastChoice}, studentActor)
	require.NoError(t, err)
	assert.Equal(t, StageFinished, finished.Stage)
	repo.progress.AssertExpectations(t)
}

func TestRoundTestService_HistoryAppendFailureIsNotFatal(t *testing.T) {
	svc, repo, _ := newRoundTestFixture(t)
	ctx := context.Background()

	repo.progress.On("Upsert", mock.Anything, mock.Anything).Return(1, nil).Once()
	repo.progress.On("AppendHistory", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	view, err := svc.Start(ctx, 10, studentActor)
	require.NoError(t, err)
	view = walkChoiceStage(t, svc, walkWrittenStage(t, svc, view))

	// Latest progress is saved; the lost history row is only logged.
	assert.Equal(t, StageFinished, view.Stage)
	require.NotNil(t, view.AttemptCount)
	assert.Equal(t, 1, *view.AttemptCount)
}

func TestRoundTestService_GetProgress(t *testing.T) {
	svc, repo, _ := newRoundTestFixture(t)
	ctx := context.Background()

	t.Run("unknown round", func(t *testing.T) {
		_, err := svc.GetProgress(ctx, 999, studentActor)
		assert.ErrorIs(t, err, ErrRoundNotFound)
	})

	t.Run("no progress yet", func(t *testing.T) {
		repo.progress.On("GetByKey", mock.Anything, "student-1", uint(100), uint(10)).
			Return(nil, gorm.ErrRecordNotFound).Once()
		_, err := svc.GetProgress(ctx, 10, studentActor)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("existing progress", func(t *testing.T) {
		stored := &models.StudentRoundProgress{StudentID: "student-1", UnitID: 100, RoundID: 10, Score: 80, AttemptCount: 3, Completed: true}
		repo.progress.On("GetByKey", mock.Anything, "student-1", uint(100), uint(10)).
			Return(stored, nil).Once()
		progress, err := svc.GetProgress(ctx, 10, studentActor)
		require.NoError(t, err)
		assert.Equal(t, 80, progress.Score)
		assert.Equal(t, 3, progress.AttemptCount)
	})
}
