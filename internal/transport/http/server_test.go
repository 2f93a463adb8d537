package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gifts-assessment-service/internal/app"
	"gifts-assessment-service/internal/catalog"
	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/infra/memory"
	"gifts-assessment-service/internal/insight"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	router  *gin.Engine
	auth    *Auth
	service *app.AssessmentService
	stores  StateStoreFactory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(catalog.MustBuiltin()), time.Minute)
	pool := app.NewQuestionPool(repo, catalog.MustBuiltin(), nil, nil)
	service := app.NewAssessmentService(memory.NewScoringRepository(), pool, nil, nil)
	analyzer := insight.NewAnalyzer(insight.MustBuiltinTables(), insight.Options{}, nil,
		insight.WithCache(memory.NewAnalysisCache(16, time.Hour)))
	auth := NewAuth(testSecret, time.Hour)
	stores := MemoryStateStores(0, 0)

	router := NewRouter(RouterConfig{
		Assessments: NewAssessmentHandler(service, analyzer, 2, nil),
		WS:          NewWSHandler(service, analyzer, auth, stores, 2, nil),
		Auth:        auth,
	})
	return &testEnv{router: router, auth: auth, service: service, stores: stores}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRESTAssessmentFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/assessments", startRequest{Locale: "pt"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var started app.StartResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.Len(t, started.Questions, 14)
	assert.Equal(t, "pt", started.Session.Locale)

	rec = env.do(t, http.MethodGet, "/api/v1/assessments/"+started.Session.ID+"/questions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	answers := make(map[string]int, len(started.Questions))
	for _, q := range started.Questions {
		answers[q.ID] = app.EffectiveScore(q, 0)
		if q.Gift == "mercy" {
			answers[q.ID] = app.EffectiveScore(q, 3)
		}
	}
	rec = env.do(t, http.MethodPost, "/api/v1/assessments/"+started.Session.ID+"/submit",
		submitRequest{Answers: answers, Analyze: true}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Ranked)
	assert.Equal(t, domain.GiftKey("mercy"), resp.Ranked[0].Gift)
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, domain.ConfidenceTemplate, resp.Analysis.Confidence)
	assert.Equal(t, "pt", resp.Analysis.Locale)

	rec = env.do(t, http.MethodPost, "/api/v1/assessments/"+started.Session.ID+"/submit",
		submitRequest{Answers: answers}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartRecordsIdentityFromToken(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.auth.Mint("user-9")
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/assessments", nil, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var started app.StartResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, "user-9", started.Session.UserID)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/assessments/missing/questions", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_not_found")
}

func TestSubmitRequiresAnswers(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/assessments/any/submit", map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsightsRequireToken(t *testing.T) {
	env := newTestEnv(t)
	body := insightRequest{Scores: []domain.GiftScore{{Gift: "mercy", WeightedTotal: 27, Percentage: 90}}}

	rec := env.do(t, http.MethodPost, "/api/v1/insights", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/insights", body, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInsightsAnalyzeForTokenSubject(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.auth.Mint("user-1")
	require.NoError(t, err)

	body := insightRequest{Locale: "en", Scores: []domain.GiftScore{
		{Gift: "mercy", WeightedTotal: 27, Percentage: 90},
		{Gift: "service", WeightedTotal: 21, Percentage: 70},
		{Gift: "giving", WeightedTotal: 18, Percentage: 60},
	}}
	rec := env.do(t, http.MethodPost, "/api/v1/insights", body, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []domain.GiftKey{"mercy", "service", "giving"}, result.TopGifts)
	assert.False(t, result.Cached)

	// Templates are never written through, so a repeat is regenerated.
	rec = env.do(t, http.MethodPost, "/api/v1/insights", body, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Cached)
}

func TestInsightsRejectEmptyScores(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.auth.Mint("user-1")
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/insights", insightRequest{Scores: []domain.GiftScore{}}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthRoundTripAndExpiry(t *testing.T) {
	auth := NewAuth(testSecret, time.Minute)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }

	token, err := auth.Mint("user-7")
	require.NoError(t, err)
	subject, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", subject)

	auth.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = auth.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	other := NewAuth("another-secret", time.Minute)
	other.now = func() time.Time { return issued }
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	auth := NewAuth("", time.Minute)
	assert.False(t, auth.Enabled())
	_, err := auth.Mint("user-1")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
}

func TestRemoteTierCallsInsightsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	token, err := env.auth.Mint("user-3")
	require.NoError(t, err)

	tier := NewRemoteTier(server.URL+"/", time.Second)
	entry, err := tier.Narrative(context.Background(), insight.ServerRequest{
		Identity: "user-3",
		Token:    token,
		Locale:   "en",
		Scores:   insightVector(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ConfidenceTemplate, entry.Confidence)
	assert.NotEmpty(t, entry.Narrative.PersonalizedInsights)

	_, err = tier.Narrative(context.Background(), insight.ServerRequest{Token: "bad", Scores: insightVector()})
	assert.Error(t, err)
}

func insightVector() domain.ScoreVector {
	return vectorFrom([]domain.GiftScore{
		{Gift: "mercy", Ordinal: 7, WeightedTotal: 27, Percentage: 90},
		{Gift: "service", Ordinal: 2, WeightedTotal: 21, Percentage: 70},
		{Gift: "giving", Ordinal: 5, WeightedTotal: 18, Percentage: 60},
	})
}
