package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-live-api/internal/dto"
	"github.com/noah-isme/gema-live-api/internal/judge"
	"github.com/noah-isme/gema-live-api/internal/models"
)

func TestSubmissionJudgedAndVisibleInStats(t *testing.T) {
	app, db := setupApp(t, &handlerTestJudge{result: judge.Result{Stdout: "5\n", StatusID: 3, StatusDescription: "Accepted"}})

	require.NoError(t, db.Create(&models.Room{ID: "room-1", OwnerID: "teacher-1"}).Error)
	require.NoError(t, db.Create(&models.TestCase{
		ID:             "tc-1",
		RoomID:         "room-1",
		Input:          "2 3",
		ExpectedOutput: "5",
		Published:      true,
		CreatedBy:      "teacher-1",
	}).Error)

	body, err := json.Marshal(dto.SubmissionRequest{
		TestCaseID:       "tc-1",
		LanguageID:       71,
		Source:           "print(2+3)",
		TimeTakenSeconds: 42,
	})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/v1/submissions/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "alice")
	req.Header.Set("X-Test-Role", "STUDENT")
	resp, err := app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var judged struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
		Message string                 `json:"message"`
	}
	decodeResponse(t, resp.Body, &judged)
	require.True(t, judged.Success)
	require.Equal(t, "submission judged", judged.Message)
	require.Equal(t, models.SubmissionStatusSolved, judged.Data.Status)
	require.Equal(t, 42, judged.Data.TimeTakenSeconds)

	statsReq := httptest.NewRequest("GET", "/api/v1/students/alice/stats", nil)
	statsReq.Header.Set("X-Test-User", "alice")
	statsReq.Header.Set("X-Test-Role", "STUDENT")
	statsResp, err := app.Test(statsReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, statsResp.StatusCode)

	var stats struct {
		Success bool                     `json:"success"`
		Data    dto.StudentStatsResponse `json:"data"`
	}
	decodeResponse(t, statsResp.Body, &stats)
	require.Equal(t, 1, stats.Data.TotalSolved)
	require.Equal(t, []string{"tc-1"}, stats.Data.SolvedTestCases)

	roomStatsReq := httptest.NewRequest("GET", "/api/v1/rooms/room-1/stats?window=30m", nil)
	roomStatsReq.Header.Set("X-Test-User", "teacher-1")
	roomStatsReq.Header.Set("X-Test-Role", "TEACHER")
	roomStatsResp, err := app.Test(roomStatsReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, roomStatsResp.StatusCode)

	var roomStats struct {
		Success bool                  `json:"success"`
		Data    dto.RoomStatsResponse `json:"data"`
	}
	decodeResponse(t, roomStatsResp.Body, &roomStats)
	require.Equal(t, 1, roomStats.Data.TotalActive)
	require.Equal(t, 1, roomStats.Data.TotalSolved)
	require.Len(t, roomStats.Data.PerStudent, 1)
	require.Equal(t, 42, roomStats.Data.PerStudent[0].AverageTimeSeconds)
}

func TestSubmissionJudgeTimeoutMapsToGatewayTimeout(t *testing.T) {
	app, db := setupApp(t, &handlerTestJudge{err: judge.ErrJudgeTimeout})

	require.NoError(t, db.Create(&models.Room{ID: "room-1", OwnerID: "teacher-1"}).Error)
	require.NoError(t, db.Create(&models.TestCase{ID: "tc-1", RoomID: "room-1", ExpectedOutput: "5", Published: true}).Error)

	body, err := json.Marshal(dto.SubmissionRequest{TestCaseID: "tc-1", LanguageID: 71, Source: "while True: pass"})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/v1/submissions/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "alice")
	req.Header.Set("X-Test-Role", "STUDENT")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusGatewayTimeout, resp.StatusCode)
}

func TestSubmissionRequiresAuthenticatedUser(t *testing.T) {
	app, _ := setupApp(t, &handlerTestJudge{})

	body, err := json.Marshal(dto.SubmissionRequest{TestCaseID: "tc-1", LanguageID: 71, Source: "print(1)"})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/v1/submissions/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
