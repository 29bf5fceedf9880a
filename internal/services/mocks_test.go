package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wordpath/learning-service/internal/cache"
	"github.com/wordpath/learning-service/internal/curriculum"
	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/utils"
)

// testCurriculum is the fixture every service test loads: one unit with two
// rounds of three words each, plus one ten-minute online test over round one.
const testCurriculum = `{
	"words": [
		{"id": 1, "english": "cat", "russian": "кошка", "transcription": "[kæt]"},
		{"id": 2, "english": "dog", "russian": "собака", "transcription": "[dɒɡ]"},
		{"id": 3, "english": "don't worry", "russian": "не волнуйся", "transcription": ""},
		{"id": 4, "english": "house", "russian": "дом", "transcription": "[haʊs]"},
		{"id": 5, "english": "tree", "russian": "дерево", "transcription": "[triː]"},
		{"id": 6, "english": "river", "russian": "река", "transcription": "[ˈrɪvə]"}
	],
	"rounds": [
		{"id": 10, "unit_id": 100, "title": "Round 1", "word_ids": [1, 2, 3]},
		{"id": 11, "unit_id": 100, "title": "Round 2", "word_ids": [4, 5, 6]}
	],
	"units": [
		{"id": 100, "title": "Unit 1", "round_ids": [10, 11]}
	],
	"online_tests": [
		{"id": 50, "title": "Midterm", "duration_minutes": 10, "word_ids": [1, 2, 3], "created_by": "teacher-1"}
	]
}`

func loadTestCurriculum(t *testing.T) *curriculum.Store {
	t.Helper()
	store, err := curriculum.LoadBytes([]byte(testCurriculum))
	require.NoError(t, err)
	return store
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
}

func testSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

var (
	studentActor = models.Actor{ID: "student-1", Role: models.RoleStudent}
	teacherActor = models.Actor{ID: "teacher-1", Role: models.RoleTeacher}
)

// ===== REPOSITORY MOCKS =====

type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) Upsert(ctx context.Context, progress *models.StudentRoundProgress) (int, error) {
	args := m.Called(ctx, progress)
	return args.Int(0), args.Error(1)
}

func (m *MockProgressRepository) GetByKey(ctx context.Context, studentID string, unitID, roundID uint) (*models.StudentRoundProgress, error) {
	args := m.Called(ctx, studentID, unitID, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentRoundProgress), args.Error(1)
}

func (m *MockProgressRepository) ListByUnit(ctx context.Context, studentID string, unitID uint) ([]*models.StudentRoundProgress, error) {
	args := m.Called(ctx, studentID, unitID)
	return args.Get(0).([]*models.StudentRoundProgress), args.Error(1)
}

func (m *MockProgressRepository) AppendHistory(ctx context.Context, entry *models.StudentAttemptHistory) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockProgressRepository) ListHistory(ctx context.Context, studentID string, filters repositories.HistoryFilters) ([]*models.StudentAttemptHistory, int64, error) {
	args := m.Called(ctx, studentID, filters)
	return args.Get(0).([]*models.StudentAttemptHistory), args.Get(1).(int64), args.Error(2)
}

type MockOnlineTestResultRepository struct {
	mock.Mock
}

func (m *MockOnlineTestResultRepository) GetByID(ctx context.Context, id uint) (*models.OnlineTestResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OnlineTestResult), args.Error(1)
}

func (m *MockOnlineTestResultRepository) GetByKey(ctx context.Context, studentID string, testID uint) (*models.OnlineTestResult, error) {
	args := m.Called(ctx, studentID, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OnlineTestResult), args.Error(1)
}

func (m *MockOnlineTestResultRepository) Upsert(ctx context.Context, result *models.OnlineTestResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockOnlineTestResultRepository) Grade(ctx context.Context, id uint, fields repositories.GradingFields) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockOnlineTestResultRepository) ClearResult(ctx context.Context, studentID string, testID uint) error {
	args := m.Called(ctx, studentID, testID)
	return args.Error(0)
}

func (m *MockOnlineTestResultRepository) ListByTest(ctx context.Context, testID uint) ([]*models.OnlineTestResult, error) {
	args := m.Called(ctx, testID)
	return args.Get(0).([]*models.OnlineTestResult), args.Error(1)
}

type MockOfflineScoreRepository struct {
	mock.Mock
}

func (m *MockOfflineScoreRepository) Create(ctx context.Context, score *models.OfflineTestScore) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

func (m *MockOfflineScoreRepository) ListByStudent(ctx context.Context, studentID string, filters repositories.RecordFilters) ([]*models.OfflineTestScore, error) {
	args := m.Called(ctx, studentID, filters)
	return args.Get(0).([]*models.OfflineTestScore), args.Error(1)
}

type MockUnitGradeRepository struct {
	mock.Mock
}

func (m *MockUnitGradeRepository) Save(ctx context.Context, grade *models.StudentUnitGrade) error {
	args := m.Called(ctx, grade)
	return args.Error(0)
}

func (m *MockUnitGradeRepository) GetByKey(ctx context.Context, studentID string, unitID uint) (*models.StudentUnitGrade, error) {
	args := m.Called(ctx, studentID, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentUnitGrade), args.Error(1)
}

func (m *MockUnitGradeRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.StudentUnitGrade, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).([]*models.StudentUnitGrade), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListStudents(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.User), args.Error(1)
}

// mockRepository bundles the per-table mocks behind the aggregate interface.
type mockRepository struct {
	progress  *MockProgressRepository
	result    *MockOnlineTestResultRepository
	offline   *MockOfflineScoreRepository
	unitGrade *MockUnitGradeRepository
	user      *MockUserRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		progress:  &MockProgressRepository{},
		result:    &MockOnlineTestResultRepository{},
		offline:   &MockOfflineScoreRepository{},
		unitGrade: &MockUnitGradeRepository{},
		user:      &MockUserRepository{},
	}
}

func (r *mockRepository) Progress() repositories.ProgressRepository                { return r.progress }
func (r *mockRepository) OnlineTestResult() repositories.OnlineTestResultRepository { return r.result }
func (r *mockRepository) OfflineScore() repositories.OfflineScoreRepository         { return r.offline }
func (r *mockRepository) UnitGrade() repositories.UnitGradeRepository               { return r.unitGrade }
func (r *mockRepository) User() repositories.UserRepository                         { return r.user }

// ===== IN-MEMORY CACHE =====

// memoryCache mimics the Redis cache with the same JSON round-trip so tests
// exercise real (de)serialization of session state.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	return nil
}
