package expertapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truffle/expertise-miner/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStorage struct {
	searchResult []storage.ExpertResult
	searchErr    error
	skills       []storage.SkillSummary
	skillsErr    error
	health       *storage.HealthStatus
	healthErr    error
}

func (f *fakeStorage) SearchExperts(context.Context, storage.ExpertQuery) ([]storage.ExpertResult, error) {
	return f.searchResult, f.searchErr
}

func (f *fakeStorage) ListSkills(context.Context) ([]storage.SkillSummary, error) {
	return f.skills, f.skillsErr
}

func (f *fakeStorage) Health(context.Context) (*storage.HealthStatus, error) {
	return f.health, f.healthErr
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch_AggregatesRowsPerUser(t *testing.T) {
	store := &fakeStorage{searchResult: []storage.ExpertResult{
		{UserExternalID: "U1", DisplayName: "Ada", SkillKey: "python", ExpertiseScore: 0.9, EvidenceCount: 3},
		{UserExternalID: "U1", DisplayName: "Ada", SkillKey: "django", ExpertiseScore: 0.6, EvidenceCount: 2},
		{UserExternalID: "U2", DisplayName: "Grace", SkillKey: "python", ExpertiseScore: 0.95, EvidenceCount: 5},
	}}
	s := New(store)

	rec := doRequest(t, s, http.MethodPost, "/experts/search", searchRequest{Skills: []string{"python", "django"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Results, 2)
	// Grace has the higher confidence score and should rank first.
	assert.Equal(t, "U2", resp.Results[0].ExternalID)
	assert.Equal(t, 0.95, resp.Results[0].ConfidenceScore)

	assert.Equal(t, "U1", resp.Results[1].ExternalID)
	assert.ElementsMatch(t, []string{"python", "django"}, resp.Results[1].Skills)
	assert.Equal(t, 5, resp.Results[1].EvidenceCount)
	assert.Equal(t, 0.9, resp.Results[1].ConfidenceScore)
}

func TestHandleSearch_EmptySkillsIsBadRequest(t *testing.T) {
	s := New(&fakeStorage{})
	rec := doRequest(t, s, http.MethodPost, "/experts/search", searchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_StorageFailureReturns200WithEmptyResults(t *testing.T) {
	s := New(&fakeStorage{searchErr: assert.AnError})
	rec := doRequest(t, s, http.MethodPost, "/experts/search", searchRequest{Skills: []string{"python"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.TotalFound)
}

func TestHandleSearch_LimitClampedToRequestedCardCount(t *testing.T) {
	store := &fakeStorage{searchResult: []storage.ExpertResult{
		{UserExternalID: "U1", DisplayName: "Ada", SkillKey: "python", ExpertiseScore: 0.9, EvidenceCount: 1},
		{UserExternalID: "U2", DisplayName: "Grace", SkillKey: "python", ExpertiseScore: 0.8, EvidenceCount: 1},
		{UserExternalID: "U3", DisplayName: "Alan", SkillKey: "python", ExpertiseScore: 0.7, EvidenceCount: 1},
	}}
	s := New(store)

	rec := doRequest(t, s, http.MethodPost, "/experts/search", searchRequest{Skills: []string{"python"}, Limit: 2})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 2)
}

func TestHandleListSkills_GroupsDomainsAndCounts(t *testing.T) {
	store := &fakeStorage{skills: []storage.SkillSummary{
		{Key: "python", Name: "Python", Domain: "languages", Aliases: []string{"py"}, ExpertCount: 4},
		{Key: "redis", Name: "Redis", Domain: "infra", Aliases: nil, ExpertCount: 2},
	}}
	s := New(store)

	rec := doRequest(t, s, http.MethodGet, "/skills", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp skillsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalCount)
	assert.ElementsMatch(t, []string{"languages", "infra"}, resp.Domains)
}

func TestHandleHealth_ReportsUnhealthyOn503(t *testing.T) {
	s := New(&fakeStorage{healthErr: assert.AnError})
	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleHealth_ReportsHealthy(t *testing.T) {
	s := New(&fakeStorage{health: &storage.HealthStatus{Status: "healthy"}})
	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
