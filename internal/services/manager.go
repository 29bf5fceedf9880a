package services

import (
	"github.com/wordpath/learning-service/internal/cache"
	"github.com/wordpath/learning-service/internal/curriculum"
	"github.com/wordpath/learning-service/internal/events"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/utils"
)

// ServiceManager bundles all services for handler wiring.
type ServiceManager interface {
	RoundTest() RoundTestService
	OnlineTest() OnlineTestService
	Grading() GradingService
	Progress() ProgressService
	Records() RecordsService
	TestAdmin() TestAdminService
}

type serviceManager struct {
	roundTest  RoundTestService
	onlineTest OnlineTestService
	grading    GradingService
	progress   ProgressService
	records    RecordsService
	testAdmin  TestAdminService
}

func NewServiceManager(
	repo repositories.Repository,
	store *curriculum.Store,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger utils.Logger,
	validator *utils.Validator,
) ServiceManager {
	return &serviceManager{
		roundTest:  NewRoundTestService(repo, store, publisher, cacheService, logger, validator),
		onlineTest: NewOnlineTestService(repo, store, cacheService, publisher, logger, validator),
		grading:    NewGradingService(repo, store, publisher, logger, validator),
		progress:   NewProgressService(repo, store, cacheService, logger),
		records:    NewRecordsService(repo, store, publisher, logger, validator),
		testAdmin:  NewTestAdminService(repo, store, publisher, logger, validator),
	}
}

func (m *serviceManager) RoundTest() RoundTestService   { return m.roundTest }
func (m *serviceManager) OnlineTest() OnlineTestService { return m.onlineTest }
func (m *serviceManager) Grading() GradingService       { return m.grading }
func (m *serviceManager) Progress() ProgressService     { return m.progress }
func (m *serviceManager) Records() RecordsService       { return m.records }
func (m *serviceManager) TestAdmin() TestAdminService   { return m.testAdmin }
