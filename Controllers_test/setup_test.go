package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restroflow/controllers"
	"github.com/yeremiapane/restroflow/database"
	"github.com/yeremiapane/restroflow/hub"
	"github.com/yeremiapane/restroflow/router"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	adminUser     = "admin"
	adminPassword = "s3cret"
)

type testEnv struct {
	t          *testing.T
	Router     *gin.Engine
	R          *services.Restaurant
	Hub        *hub.Hub
	AdminToken string
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// setupTestDB opens a private in-memory SQLite store with one connection.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:ctrl_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db, false))
	return db
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("controllers-test-secret")

	h := hub.New(nil)
	t.Cleanup(h.Close)
	r := services.NewRestaurant(setupTestDB(t), services.Options{
		Changes:          h,
		AllocateOnToggle: true,
		Location:         time.UTC,
	})
	engine := router.SetupRouter(router.Options{
		Restaurant:     r,
		Hub:            h,
		Admin:          controllers.AdminCredentials{Username: adminUser, Password: adminPassword},
		TokenTTL:       time.Hour,
		AllowedOrigins: []string{"*"},
		LoginRate:      100,
		LoginBurst:     100,
	})

	env := &testEnv{t: t, Router: engine, R: r, Hub: h}
	env.AdminToken = env.login(adminUser, adminPassword)
	return env
}

func (e *testEnv) login(username, password string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/login", "", gin.H{"username": username, "password": password})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token    string `json:"token"`
		UserRole string `json:"user_role"`
	}
	e.decode(w, &data)
	require.NotEmpty(e.t, data.Token)
	return data.Token
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// decode unpacks the response envelope into data and returns it.
func (e *testEnv) decode(w *httptest.ResponseRecorder, data interface{}) envelope {
	e.t.Helper()
	var env envelope
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(e.t, json.Unmarshal(env.Data, data))
	}
	return env
}

type tableDTO struct {
	ID           uint    `json:"id"`
	TableNumber  string  `json:"table_number"`
	Capacity     int     `json:"capacity"`
	Status       string  `json:"status"`
	CustomerName *string `json:"customer_name"`
}

type partyDTO struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	PartySize int     `json:"party_size"`
	Contact   *string `json:"contact"`
}

func (e *testEnv) createTable(capacity int) tableDTO {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/admin/tables", e.AdminToken, gin.H{"capacity": capacity})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var table tableDTO
	e.decode(w, &table)
	return table
}

func (e *testEnv) setAllocator(enabled bool) {
	e.t.Helper()
	w := e.do(http.MethodPut, "/api/admin/allocator", e.AdminToken, gin.H{"enabled": enabled})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
}

func (e *testEnv) addCustomer(name string, size int, contact string) partyDTO {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/customers", e.AdminToken, gin.H{"name": name, "party_size": size, "contact": contact})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		Party partyDTO `json:"party"`
	}
	e.decode(w, &res)
	return res.Party
}
