package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"otogram/internal/api/handlers"
	"otogram/internal/processing"
	"otogram/internal/repository"
	"otogram/internal/storage"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, s3Service storage.S3Service, testRepo repository.HearingTestRepository, processingSvc processing.ProcessingService) {
	testHandler := handlers.NewHearingTestHandler(testRepo, s3Service, processingSvc)

	huma.Register(api, huma.Operation{
		OperationID: "createTest",
		Method:      http.MethodPost,
		Path:        "/api/tests",
		Summary:     "Create a new hearing test",
		Description: "Creates a new hearing test record and returns an upload URL for the chart image",
		Tags:        []string{"HearingTests"},
	}, testHandler.CreateTest)

	huma.Register(api, huma.Operation{
		OperationID: "getTestStatus",
		Method:      http.MethodGet,
		Path:        "/api/tests/{id}/status",
		Summary:     "Get hearing test status",
		Description: "Returns the current status and progress of a hearing test extraction",
		Tags:        []string{"HearingTests"},
	}, testHandler.GetTestStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getTestResults",
		Method:      http.MethodGet,
		Path:        "/api/tests/{id}/results",
		Summary:     "Get hearing test results",
		Description: "Returns the extracted measurements, metadata and confidence score",
		Tags:        []string{"HearingTests"},
	}, testHandler.GetTestResults)

	huma.Register(api, huma.Operation{
		OperationID: "startProcessing",
		Method:      http.MethodPost,
		Path:        "/api/tests/{id}/process",
		Summary:     "Start chart extraction",
		Description: "Starts extracting measurements from an uploaded chart image",
		Tags:        []string{"HearingTests"},
	}, testHandler.StartProcessing)

	huma.Register(api, huma.Operation{
		OperationID: "listTests",
		Method:      http.MethodGet,
		Path:        "/api/tests",
		Summary:     "List a session's hearing tests",
		Description: "Returns all hearing tests created by a session, newest first",
		Tags:        []string{"HearingTests"},
	}, testHandler.ListTests)
}
