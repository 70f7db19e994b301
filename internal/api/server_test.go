package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platewise/internal/api"
	"platewise/internal/catalog"
	"platewise/internal/config"
	"platewise/internal/models"
	"platewise/internal/monitoring"
	"platewise/internal/optimizer"
	"platewise/internal/solver"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]models.FoodItem{
		{Name: "Oatmeal", MealTime: models.MealBreakfast, Category: "Cereal", Calories: 150, Protein: 5},
		{Name: "Eggs", MealTime: models.MealBreakfast, Category: "Protein", Calories: 140, Protein: 12},
		{Name: "Yogurt", MealTime: models.MealBreakfast, Category: "Dairy", Calories: 120, Protein: 10},
		{Name: "Chicken", MealTime: models.MealLunch, Category: "Entree", Calories: 250, Protein: 30},
	}, "test")
	require.NoError(t, err)
	return cat
}

func newTestServer(t *testing.T, mutate func(*config.Config), cat *catalog.Catalog) *api.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Server.RateLimit.RPS = 0
	if mutate != nil {
		mutate(cfg)
	}
	monitor := monitoring.NewMonitor()
	metrics := monitoring.NewMetricsCollector(monitor)

	return api.NewServer(cfg, api.Deps{
		Holder:    catalog.NewHolder(cat),
		Optimizer: optimizer.New(solver.NewBranchAndBound(solver.Options{}), optimizer.WithRecorder(metrics)),
		Monitor:   monitor,
		Metrics:   metrics,
	})
}

func breakfastBody(extra string) string {
	body := `"selected_meals": ["breakfast"], "target_calories": 300, "target_protein": 15,
		"calorie_tolerance": 50, "protein_tolerance": 5`
	if extra != "" {
		body += ", " + extra
	}
	return "{" + body + "}"
}

func do(s *api.Server, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	s.Router.ServeHTTP(w, req)
	return w
}

func TestHandleHome(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	w := do(s, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "running", response["status"])
	assert.Contains(t, response, "endpoints")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	w := do(s, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, true, response["optimizer_loaded"])
	assert.Equal(t, 4.0, response["menu_items"])
}

func TestHandleHealth_LastSolveStatus(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))

	var response map[string]interface{}
	w := do(s, http.MethodGet, "/api/health", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Nil(t, response["last_solve_status"])

	w = do(s, http.MethodPost, "/api/optimize", breakfastBody(""))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/api/health", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Optimal", response["last_solve_status"])
}

func TestHandleHealth_NoCatalog(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodGet, "/api/health", "")

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, false, response["optimizer_loaded"])
	assert.Equal(t, 0.0, response["menu_items"])
}

func TestHandleMenu(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	w := do(s, http.MethodGet, "/api/menu", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		TotalItems int                          `json:"total_items"`
		ByMeal     map[string][]models.FoodItem `json:"by_meal"`
		AllItems   []models.FoodItem            `json:"all_items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 4, response.TotalItems)
	assert.Len(t, response.ByMeal["breakfast"], 3)
	assert.Len(t, response.ByMeal["lunch"], 1)
	assert.Empty(t, response.ByMeal["dinner"])
	assert.Len(t, response.AllItems, 4)
}

func TestHandleMenu_TagFilter(t *testing.T) {
	cat, err := catalog.New([]models.FoodItem{
		{Name: "Oatmeal", MealTime: models.MealBreakfast, DietaryTags: []string{"vegan"}},
		{Name: "Eggs", MealTime: models.MealBreakfast, DietaryTags: []string{"vegetarian"}},
		{Name: "Lentil Soup", MealTime: models.MealLunch, DietaryTags: []string{"vegan", "halal"}},
	}, "test")
	require.NoError(t, err)
	s := newTestServer(t, nil, cat)

	w := do(s, http.MethodGet, "/api/menu?tag=vegan", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		TotalItems int                          `json:"total_items"`
		ByMeal     map[string][]models.FoodItem `json:"by_meal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.TotalItems)
	require.Len(t, response.ByMeal["breakfast"], 1)
	assert.Equal(t, "Oatmeal", response.ByMeal["breakfast"][0].Name)
	assert.Len(t, response.ByMeal["lunch"], 1)
}

func TestHandleOptimize(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	w := do(s, http.MethodPost, "/api/optimize", breakfastBody(""))

	assert.Equal(t, http.StatusOK, w.Code)
	var result models.PlanResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.StatusOptimal, result.Status)
	assert.GreaterOrEqual(t, result.Totals.Calories, 250.0)
	assert.LessOrEqual(t, result.Totals.Calories, 350.0)
	assert.GreaterOrEqual(t, result.Totals.Protein, 10.0)
	assert.LessOrEqual(t, result.Totals.Protein, 20.0)
	assert.Equal(t, []models.MealTime{models.MealBreakfast}, result.SelectedMeals)
}

func TestHandleOptimize_ErrorResult(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	w := do(s, http.MethodPost, "/api/optimize", `{"selected_meals": ["brunch"]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var result models.PlanResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.StatusError, result.Status)
	assert.Contains(t, result.Message, "No valid meals selected")
}

func TestHandleOptimize_BadBody(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))

	w := do(s, http.MethodPost, "/api/optimize", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No JSON data provided")

	w = do(s, http.MethodPost, "/api/optimize", `{"target_calories": "lots"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid parameter value")
}

func TestHandleOptimize_NoCatalog(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := do(s, http.MethodPost, "/api/optimize", breakfastBody(""))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Optimizer not initialized")
}

func TestHandleOptimizeMultiple(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	w := do(s, http.MethodPost, "/api/optimize/multiple", breakfastBody(`"num_plans": 2`))

	assert.Equal(t, http.StatusOK, w.Code)
	var response api.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "success", response.Status)
	assert.Equal(t, len(response.Plans), response.Count)
	assert.GreaterOrEqual(t, response.Count, 1)
	assert.LessOrEqual(t, response.Count, 2)
	for _, plan := range response.Plans {
		assert.Equal(t, models.StatusOptimal, plan.Status)
	}
}

func TestHandleOptimizeMultiple_NumPlansRange(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))

	for _, n := range []string{"0", "11", "-2"} {
		w := do(s, http.MethodPost, "/api/optimize/multiple", breakfastBody(`"num_plans": `+n))
		assert.Equal(t, http.StatusBadRequest, w.Code, n)
		assert.Contains(t, w.Body.String(), "num_plans must be between 1 and 10")
	}
}

func TestHandleOptimizeMultiple_Infeasible(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	w := do(s, http.MethodPost, "/api/optimize/multiple", `{"selected_meals": ["lunch"], "target_calories": 5000, "calorie_tolerance": 10, "num_plans": 3}`)
	assert.Equal(t, http.StatusOK, w.Code)
	var response api.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "success", response.Status)
	assert.Equal(t, 0, response.Count)
	assert.Empty(t, response.Plans)
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	w := do(s, http.MethodGet, "/api/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Endpoint not found"}`, w.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	do(s, http.MethodPost, "/api/optimize", breakfastBody(""))

	w := do(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `platewise_solves_total{status="Optimal"} 1`)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.CORSOrigins = []string{"https://plates.example"}
	}, testCatalog(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/api/optimize", nil)
	req.Header.Set("Origin", "https://plates.example")
	s.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://plates.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	s.Router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit.RPS = 0.001
		c.Server.RateLimit.Burst = 1
	}, testCatalog(t))

	w := do(s, http.MethodPost, "/api/optimize", breakfastBody(""))
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(s, http.MethodPost, "/api/optimize", breakfastBody(""))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Read routes are not limited
	w = do(s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	s := newTestServer(t, func(c *config.Config) { c.Server.JWTSecret = secret }, testCatalog(t))

	w := do(s, http.MethodPost, "/api/optimize", breakfastBody(""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   "tester",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	send := func(tok string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/api/optimize", bytes.NewBufferString(breakfastBody("")))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+tok)
		s.Router.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send(token))
	assert.Equal(t, http.StatusUnauthorized, send(token+"x"))
}

func TestStream(t *testing.T) {
	s := newTestServer(t, nil, testCatalog(t))
	ts := httptest.NewServer(s.Router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/optimize/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(breakfastBody(`"num_plans": 2`))))

	var plans int
	for {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg api.StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "done" {
			assert.Equal(t, plans, msg.Count)
			break
		}
		require.Equal(t, "plan", msg.Type, msg.Error)
		require.NotNil(t, msg.Plan)
		assert.Equal(t, plans, msg.Index)
		assert.Equal(t, models.StatusOptimal, msg.Plan.Status)
		plans++
	}
	assert.GreaterOrEqual(t, plans, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"num_plans": 99}`)))
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var msg api.StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Error, "num_plans")
}
