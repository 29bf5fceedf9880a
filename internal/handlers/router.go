package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/wordpath/learning-service/internal/services"
	"github.com/wordpath/learning-service/internal/utils"
)

type HandlerManager struct {
	roundTestHandler  *RoundTestHandler
	onlineTestHandler *OnlineTestHandler
	gradingHandler    *GradingHandler
	progressHandler   *ProgressHandler
	recordsHandler    *RecordsHandler
	testAdminHandler  *TestAdminHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		roundTestHandler:  NewRoundTestHandler(serviceManager.RoundTest(), validator, logger),
		onlineTestHandler: NewOnlineTestHandler(serviceManager.OnlineTest(), validator, logger),
		gradingHandler:    NewGradingHandler(serviceManager.Grading(), validator, logger),
		progressHandler:   NewProgressHandler(serviceManager.Progress(), logger),
		recordsHandler:    NewRecordsHandler(serviceManager.Records(), validator, logger),
		testAdminHandler:  NewTestAdminHandler(serviceManager.TestAdmin(), validator, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(ActorMiddleware())
	{
		// Round test routes
		rounds := v1.Group("/rounds")
		{
			rounds.POST("/:round_id/attempts/start", hm.roundTestHandler.StartRound)
			rounds.POST("/attempts/:session_id/written", hm.roundTestHandler.SubmitWritten)
			rounds.POST("/attempts/:session_id/choice", hm.roundTestHandler.SubmitChoice)
			rounds.GET("/:round_id/progress", hm.roundTestHandler.GetProgress)
			rounds.GET("/:round_id/history", hm.roundTestHandler.GetHistory)
		}

		// Online test routes
		onlineTests := v1.Group("/online-tests")
		{
			onlineTests.POST("", hm.testAdminHandler.CreateTest)
			onlineTests.POST("/:test_id/session", hm.onlineTestHandler.StartSession)
			onlineTests.POST("/sessions/:session_id/answers", hm.onlineTestHandler.SaveAnswer)
			onlineTests.POST("/sessions/:session_id/submit", hm.onlineTestHandler.Submit)
			onlineTests.POST("/sessions/:session_id/beacon", hm.onlineTestHandler.Beacon)

			// Teacher review and grading
			onlineTests.GET("/:test_id/results", hm.gradingHandler.ListResults)
			onlineTests.GET("/:test_id/results/:student_id", hm.onlineTestHandler.GetResult)
			onlineTests.POST("/:test_id/results/:student_id/grade", hm.gradingHandler.GradeResult)
			onlineTests.POST("/:test_id/results/:student_id/reset", hm.gradingHandler.AllowRetake)
			onlineTests.GET("/:test_id/export", hm.testAdminHandler.ExportResults)
		}

		// Progress routes
		units := v1.Group("/units")
		{
			units.GET("/:unit_id/overview", hm.progressHandler.UnitOverview)
			units.GET("/:unit_id/grades/export", hm.testAdminHandler.ExportUnitGrades)
		}

		// Teacher record keeping
		v1.POST("/offline-scores", hm.recordsHandler.AddOfflineScore)
		v1.POST("/unit-grades", hm.recordsHandler.AssignUnitGrade)

		students := v1.Group("/students")
		{
			students.GET("/:student_id/offline-scores", hm.recordsHandler.ListOfflineScores)
			students.GET("/:student_id/unit-grades", hm.recordsHandler.ListUnitGrades)
		}
	}
}
