package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"labbooking/internal/config"
	"labbooking/internal/database"
	"labbooking/internal/domain"
	"labbooking/internal/modules/auth"
	"labbooking/internal/repository"
	"labbooking/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type E2ETestSuite struct {
	router *gin.Engine
	db     *gorm.DB
}

type TestResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type bookingRow struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"user_id"`
	EquipmentID   int64  `json:"equipment_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Username      string `json:"username"`
	EquipmentName string `json:"equipment_name"`
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:", nil)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, repository.Migrate(db))

	cfg := &config.Config{
		AppEnv:       "test",
		JWTSecret:    "test_secret_key_32_characters_min",
		JWTAccessTTL: time.Hour,
		Location:     time.UTC,
		ServiceName:  "labbooking-test",
	}
	app := server.NewRouter(server.Deps{Config: cfg, DB: db})

	// Admins are provisioned out of band, never through registration.
	hash, err := auth.HashPassword("admin123")
	require.NoError(t, err)
	require.NoError(t, repository.NewUserRepository(db, nil).Create(t.Context(), &domain.User{
		Username: "admin", PasswordHash: hash, Role: domain.RoleAdmin,
	}))

	return &E2ETestSuite{router: app.Engine, db: db}
}

func (s *E2ETestSuite) makeRequest(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) *TestResponse {
	t.Helper()
	var resp TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return &resp
}

func decodeData(t *testing.T, resp *TestResponse, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := parseResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func (s *E2ETestSuite) register(t *testing.T, username, role string) {
	t.Helper()
	w := s.makeRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": username, "password": "password1", "role": role,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (s *E2ETestSuite) login(t *testing.T, username, password string) string {
	t.Helper()
	w := s.makeRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username, "password": password,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, parseResponse(t, w), &data)
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

func (s *E2ETestSuite) addEquipment(t *testing.T, token, name string) int64 {
	t.Helper()
	w := s.makeRequest(http.MethodPost, "/api/v1/equipment", map[string]string{
		"name": name, "model": "M1", "location": "Lab 1",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Equipment domain.Equipment `json:"equipment"`
	}
	decodeData(t, parseResponse(t, w), &data)
	require.Positive(t, data.Equipment.ID)
	return data.Equipment.ID
}

func (s *E2ETestSuite) book(token string, equipmentID int64, date, slot string) *httptest.ResponseRecorder {
	return s.makeRequest(http.MethodPost, "/api/v1/book-equipment", map[string]interface{}{
		"equipment_id": equipmentID, "date": date, "time_slot": slot,
	}, token)
}

func (s *E2ETestSuite) listMine(t *testing.T, token string) []bookingRow {
	t.Helper()
	w := s.makeRequest(http.MethodGet, "/api/v1/view-bookings", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Bookings []bookingRow `json:"bookings"`
	}
	decodeData(t, parseResponse(t, w), &data)
	return data.Bookings
}

func tomorrow() string {
	return domain.DateOf(time.Now().UTC()).AddDays(1).String()
}

func TestFlow1_RegistrationAndLogin(t *testing.T) {
	suite := setupTestSuite(t)

	suite.register(t, "alice", "student")

	t.Run("duplicate username", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"username": "alice", "password": "password2", "role": "teacher",
		}, "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "USERNAME_TAKEN", errorCode(t, w))
	})

	t.Run("admin cannot be self-assigned", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"username": "mallory", "password": "password1", "role": "admin",
		}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("multi-byte password over 72 bytes", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"username": "euro", "password": strings.Repeat("€", 30), "role": "student",
		}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("wrong password", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"username": "alice", "password": "nope-nope",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
	})

	t.Run("me", func(t *testing.T) {
		token := suite.login(t, "alice", "password1")
		w := suite.makeRequest(http.MethodGet, "/api/v1/auth/me", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var data struct {
			User domain.User `json:"user"`
		}
		decodeData(t, parseResponse(t, w), &data)
		assert.Equal(t, "alice", data.User.Username)
		assert.Equal(t, domain.RoleStudent, data.User.Role)
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("protected route without token", func(t *testing.T) {
		w := suite.makeRequest(http.MethodGet, "/api/v1/view-bookings", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "AUTH_HEADER_MISSING", errorCode(t, w))
	})
}

func TestFlow2_EquipmentManagementIsTeacherOnly(t *testing.T) {
	suite := setupTestSuite(t)
	suite.register(t, "tina", "teacher")
	suite.register(t, "sam", "student")
	teacher := suite.login(t, "tina", "password1")
	student := suite.login(t, "sam", "password1")

	w := suite.makeRequest(http.MethodPost, "/api/v1/equipment", map[string]string{"name": "Microscope"}, student)
	assert.Equal(t, http.StatusForbidden, w.Code)

	id := suite.addEquipment(t, teacher, "Microscope")

	w = suite.makeRequest(http.MethodPut, fmt.Sprintf("/api/v1/equipment/%d", id), map[string]string{
		"name": "Microscope", "status": "unavailable",
	}, teacher)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = suite.makeRequest(http.MethodGet, "/api/v1/equipment", nil, student)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Equipment []domain.Equipment `json:"equipment"`
	}
	decodeData(t, parseResponse(t, w), &data)
	require.Len(t, data.Equipment, 1)
	assert.Equal(t, domain.EquipmentUnavailable, data.Equipment[0].Status)

	w = suite.book(student, id, tomorrow(), "9-10")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = suite.makeRequest(http.MethodDelete, fmt.Sprintf("/api/v1/equipment/%d", id), nil, teacher)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EQUIPMENT_IN_USE", errorCode(t, w))
}

func TestFlow3_BookingConflicts(t *testing.T) {
	suite := setupTestSuite(t)
	suite.register(t, "tina", "teacher")
	suite.register(t, "alice", "student")
	suite.register(t, "bob", "student")
	teacher := suite.login(t, "tina", "password1")
	alice := suite.login(t, "alice", "password1")
	bob := suite.login(t, "bob", "password1")
	microscope := suite.addEquipment(t, teacher, "Microscope")
	date := tomorrow()

	w := suite.book(alice, microscope, date, "9-11")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("overlap is rejected", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/book-equipment", map[string]interface{}{
			"equipment_id": microscope, "date": date, "start_time": "09:30", "end_time": "10:30",
		}, bob)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "BOOKING_CONFLICT", errorCode(t, w))
	})

	t.Run("touching slot is accepted", func(t *testing.T) {
		w := suite.book(bob, microscope, date, "11-12")
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("same slot on another date is accepted", func(t *testing.T) {
		other := domain.DateOf(time.Now().UTC()).AddDays(2).String()
		w := suite.book(bob, microscope, other, "9-11")
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("unknown equipment", func(t *testing.T) {
		w := suite.book(bob, 9999, date, "9-10")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "EQUIPMENT_NOT_FOUND", errorCode(t, w))
	})

	t.Run("inverted slot", func(t *testing.T) {
		w := suite.book(bob, microscope, date, "14-13")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("each user sees only their own bookings", func(t *testing.T) {
		mine := suite.listMine(t, alice)
		require.Len(t, mine, 1)
		assert.Equal(t, "09:00", mine[0].StartTime)
		assert.Equal(t, "11:00", mine[0].EndTime)
		assert.Equal(t, "Microscope", mine[0].EquipmentName)

		assert.Len(t, suite.listMine(t, bob), 2)
	})
}

func TestFlow4_EditAndCancelOwnership(t *testing.T) {
	suite := setupTestSuite(t)
	suite.register(t, "tina", "teacher")
	suite.register(t, "alice", "student")
	suite.register(t, "bob", "student")
	teacher := suite.login(t, "tina", "password1")
	alice := suite.login(t, "alice", "password1")
	bob := suite.login(t, "bob", "password1")
	admin := suite.login(t, "admin", "admin123")
	microscope := suite.addEquipment(t, teacher, "Microscope")
	date := tomorrow()

	require.Equal(t, http.StatusCreated, suite.book(alice, microscope, date, "9-10").Code)
	require.Equal(t, http.StatusCreated, suite.book(bob, microscope, date, "11-12").Code)
	id := suite.listMine(t, alice)[0].ID
	path := fmt.Sprintf("/api/v1/edit-booking/%d", id)

	t.Run("another user cannot cancel", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, fmt.Sprintf("/api/v1/cancel-booking/%d", id), nil, bob)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", errorCode(t, w))
		assert.Len(t, suite.listMine(t, alice), 1)
	})

	t.Run("admin cannot cancel either", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, fmt.Sprintf("/api/v1/cancel-booking/%d", id), nil, admin)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("another user cannot edit", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, path, map[string]interface{}{
			"equipment_id": microscope, "date": date, "time_slot": "13-14",
		}, bob)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("edit into a taken slot", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, path, map[string]interface{}{
			"equipment_id": microscope, "date": date, "time_slot": "10-12",
		}, alice)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("edit overlapping only itself", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, path, map[string]interface{}{
			"equipment_id": microscope, "date": date, "start_time": "09:30", "end_time": "11:00",
		}, alice)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = suite.makeRequest(http.MethodGet, path, nil, alice)
		require.Equal(t, http.StatusOK, w.Code)
		var data struct {
			Booking bookingRow `json:"booking"`
		}
		decodeData(t, parseResponse(t, w), &data)
		assert.Equal(t, "09:30", data.Booking.StartTime)
		assert.Equal(t, "11:00", data.Booking.EndTime)
	})

	t.Run("owner cancels", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, fmt.Sprintf("/api/v1/cancel-booking/%d", id), nil, alice)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, suite.listMine(t, alice))

		w = suite.makeRequest(http.MethodPost, fmt.Sprintf("/api/v1/cancel-booking/%d", id), nil, alice)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFlow5_ScheduleAndAdminView(t *testing.T) {
	suite := setupTestSuite(t)
	suite.register(t, "tina", "teacher")
	suite.register(t, "alice", "student")
	teacher := suite.login(t, "tina", "password1")
	alice := suite.login(t, "alice", "password1")
	admin := suite.login(t, "admin", "admin123")
	x := suite.addEquipment(t, teacher, "X")
	suite.addEquipment(t, teacher, "Y")

	t.Run("empty schedule lists every equipment", func(t *testing.T) {
		w := suite.makeRequest(http.MethodGet, "/api/v1/equipment-schedule", nil, alice)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var view struct {
			ByName map[string][]bookingRow `json:"by_name"`
		}
		decodeData(t, parseResponse(t, w), &view)
		require.Len(t, view.ByName, 2)
		assert.NotNil(t, view.ByName["X"])
		assert.Empty(t, view.ByName["X"])
		assert.Empty(t, view.ByName["Y"])
		assert.Contains(t, w.Body.String(), `"X":[]`)
	})

	require.Equal(t, http.StatusCreated, suite.book(alice, x, tomorrow(), "14-15").Code)
	far := domain.DateOf(time.Now().UTC()).AddDays(8).String()
	require.Equal(t, http.StatusCreated, suite.book(alice, x, far, "14-15").Code)

	t.Run("schedule covers seven days ahead", func(t *testing.T) {
		w := suite.makeRequest(http.MethodGet, "/api/v1/equipment-schedule", nil, alice)
		require.Equal(t, http.StatusOK, w.Code)
		var view struct {
			ByName map[string][]struct {
				Username  string `json:"username"`
				StartTime string `json:"start_time"`
			} `json:"by_name"`
		}
		decodeData(t, parseResponse(t, w), &view)
		require.Len(t, view.ByName["X"], 1)
		assert.Equal(t, "alice", view.ByName["X"][0].Username)
		assert.Equal(t, "14:00", view.ByName["X"][0].StartTime)
	})

	t.Run("admin view", func(t *testing.T) {
		w := suite.makeRequest(http.MethodGet, "/api/v1/admin/bookings", nil, alice)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = suite.makeRequest(http.MethodGet, "/api/v1/admin/bookings", nil, admin)
		require.Equal(t, http.StatusOK, w.Code)
		var data struct {
			Bookings []bookingRow `json:"bookings"`
		}
		decodeData(t, parseResponse(t, w), &data)
		require.Len(t, data.Bookings, 2)
		assert.Equal(t, "alice", data.Bookings[0].Username)
	})

	t.Run("health", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, suite.makeRequest(http.MethodGet, "/healthz", nil, "").Code)
		assert.Equal(t, http.StatusOK, suite.makeRequest(http.MethodGet, "/readyz", nil, "").Code)
	})
}
