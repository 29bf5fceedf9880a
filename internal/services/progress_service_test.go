package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wordpath/learning-service/internal/curriculum"
	"github.com/wordpath/learning-service/internal/models"
)

func newProgressFixture(t *testing.T, store *curriculum.Store) (ProgressService, *mockRepository, *memoryCache) {
	t.Helper()
	repo := newMockRepository()
	cacheSvc := newMemoryCache()
	return NewProgressService(repo, store, cacheSvc, testLogger()), repo, cacheSvc
}

func TestProgressService_UnitOverview(t *testing.T) {
	svc, repo, _ := newProgressFixture(t, loadTestCurriculum(t))
	ctx := context.Background()

	// Round 10 completed with 80, round 11 never attempted.
	repo.progress.On("ListByUnit", mock.Anything, "student-1", uint(100)).
		Return([]*models.StudentRoundProgress{
			{StudentID: "student-1", UnitID: 100, RoundID: 10, Score: 80, AttemptCount: 2, Completed: true},
		}, nil).Once()

	overview, err := svc.UnitOverview(ctx, 100, "student-1", studentActor)
	require.NoError(t, err)

	assert.Equal(t, uint(100), overview.UnitID)
	assert.Equal(t, "Unit 1", overview.Title)
	assert.Equal(t, 2, overview.RoundCount)
	assert.Equal(t, 1, overview.CompletedRounds)
	assert.False(t, overview.Complete)

	// The unattempted round is excluded from the average, not counted as 0.
	require.NotNil(t, overview.AverageScore)
	assert.Equal(t, 80.0, *overview.AverageScore)

	require.Len(t, overview.Rounds, 2)
	assert.True(t, overview.Rounds[0].Completed)
	require.NotNil(t, overview.Rounds[0].Score)
	assert.Equal(t, 80, *overview.Rounds[0].Score)
	require.NotNil(t, overview.Rounds[0].AttemptCount)
	assert.Equal(t, 2, *overview.Rounds[0].AttemptCount)
	assert.False(t, overview.Rounds[1].Completed)
	assert.Nil(t, overview.Rounds[1].Score)
}

func TestProgressService_UnitOverviewAllCompleted(t *testing.T) {
	svc, repo, _ := newProgressFixture(t, loadTestCurriculum(t))
	ctx := context.Background()

	repo.progress.On("ListByUnit", mock.Anything, "student-1", uint(100)).
		Return([]*models.StudentRoundProgress{
			{StudentID: "student-1", UnitID: 100, RoundID: 10, Score: 80, AttemptCount: 1, Completed: true},
			{StudentID: "student-1", UnitID: 100, RoundID: 11, Score: 50, AttemptCount: 1, Completed: true},
		}, nil).Once()

	overview, err := svc.UnitOverview(ctx, 100, "student-1", studentActor)
	require.NoError(t, err)

	assert.True(t, overview.Complete)
	require.NotNil(t, overview.AverageScore)
	assert.Equal(t, 65.0, *overview.AverageScore)
}

func TestProgressService_UnitOverviewNoAttempts(t *testing.T) {
	svc, repo, _ := newProgressFixture(t, loadTestCurriculum(t))
	ctx := context.Background()

	repo.progress.On("ListByUnit", mock.Anything, "student-1", uint(100)).
		Return([]*models.StudentRoundProgress{}, nil).Once()

	overview, err := svc.UnitOverview(ctx, 100, "student-1", studentActor)
	require.NoError(t, err)

	assert.Equal(t, 0, overview.CompletedRounds)
	assert.False(t, overview.Complete)
	assert.Nil(t, overview.AverageScore)
}

func TestProgressService_EmptyUnitIsVacuouslyComplete(t *testing.T) {
	// A unit with no rounds at all: complete, with no average.
	const emptyUnitCurriculum = `{
		"words": [],
		"rounds": [],
		"units": [{"id": 200, "title": "Empty Unit", "round_ids": []}],
		"online_tests": []
	}`
	store, err := curriculum.LoadBytes([]byte(emptyUnitCurriculum))
	require.NoError(t, err)

	svc, repo, _ := newProgressFixture(t, store)
	repo.progress.On("ListByUnit", mock.Anything, "student-1", uint(200)).
		Return([]*models.StudentRoundProgress{}, nil).Once()

	overview, err := svc.UnitOverview(context.Background(), 200, "student-1", studentActor)
	require.NoError(t, err)

	assert.Equal(t, 0, overview.RoundCount)
	assert.True(t, overview.Complete)
	assert.Nil(t, overview.AverageScore)
	assert.Empty(t, overview.Rounds)
}

func TestProgressService_OverviewIsCached(t *testing.T) {
	svc, repo, _ := newProgressFixture(t, loadTestCurriculum(t))
	ctx := context.Background()

	repo.progress.On("ListByUnit", mock.Anything, "student-1", uint(100)).
		Return([]*models.StudentRoundProgress{
			{StudentID: "student-1", UnitID: 100, RoundID: 10, Score: 90, AttemptCount: 1, Completed: true},
		}, nil).Once()

	first, err := svc.UnitOverview(ctx, 100, "student-1", studentActor)
	require.NoError(t, err)

	// Second read is served from cache; the single mock expectation holds.
	second, err := svc.UnitOverview(ctx, 100, "student-1", studentActor)
	require.NoError(t, err)
	assert.Equal(t, first.CompletedRounds, second.CompletedRounds)
	repo.progress.AssertExpectations(t)
}

func TestProgressService_Permissions(t *testing.T) {
	svc, repo, _ := newProgressFixture(t, loadTestCurriculum(t))
	ctx := context.Background()

	_, err := svc.UnitOverview(ctx, 100, "student-2", studentActor)
	assert.True(t, IsPermission(err))

	// Teachers may read any student.
	repo.progress.On("ListByUnit", mock.Anything, "student-2", uint(100)).
		Return([]*models.StudentRoundProgress{}, nil).Once()
	_, err = svc.UnitOverview(ctx, 100, "student-2", teacherActor)
	require.NoError(t, err)
}

func TestProgressService_UnknownUnit(t *testing.T) {
	svc, _, _ := newProgressFixture(t, loadTestCurriculum(t))
	_, err := svc.UnitOverview(context.Background(), 999, "student-1", studentActor)
	assert.ErrorIs(t, err, ErrUnitNotFound)
}
