package review

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"SSPLab/internal/config"
	"SSPLab/internal/repo"
	"SSPLab/internal/stats"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	saved []repo.ManualResult
}

func (f *fakeRepo) CreateUser(ctx context.Context, login, email, password string) (int, error) {
	return 1, nil
}
func (f *fakeRepo) GetByLogin(ctx context.Context, login string) (int, string, error) {
	return 1, "", nil
}
func (f *fakeRepo) GetProfile(ctx context.Context, userID int) (repo.Profile, error) {
	return repo.Profile{ID: userID}, nil
}
func (f *fakeRepo) UpdateProfile(ctx context.Context, userID int, login, description string) error {
	return nil
}
func (f *fakeRepo) SaveRun(ctx context.Context, records []stats.SampleRecord) error { return nil }
func (f *fakeRepo) SaveManualResult(ctx context.Context, mr repo.ManualResult) (int, error) {
	mr.ID = len(f.saved) + 1
	f.saved = append(f.saved, mr)
	return mr.ID, nil
}
func (f *fakeRepo) ListManualResults(ctx context.Context, filename string) ([]repo.ManualResult, error) {
	var out []repo.ManualResult
	for _, mr := range f.saved {
		if filename == "" || mr.Filename == filename {
			out = append(out, mr)
		}
	}
	return out, nil
}

func testHandler(t *testing.T) (*Handler, *fakeRepo) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "Selected_data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	data := "Crossheadmm,LoadN\n"
	for i := 0; i < 20; i++ {
		x := float64(i) * 0.1
		data += fmt.Sprintf("%g,%g\n", x, 150*x)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "SSP_2025-03-20_D1_OPER.csv"), []byte(data), 0644))

	cfgJSON := `{"data_paths": {"selected_data_dir": "Selected_data"}}`
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgJSON), 0644))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	fake := &fakeRepo{}
	h := &Handler{
		Cfg: cfg,
		Records: []stats.SampleRecord{
			{Filename: "SSP_2025-03-20_D1_OPER.csv", SampleID: "D1", Condition: "OPER", Subgroup: "TFL", MaxLoadN: 285, Stiffness: 150},
		},
		Repo: fake,
	}
	return h, fake
}

func TestListSamples_Filters(t *testing.T) {
	h, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/samples?group=TFL", nil)
	rec := httptest.NewRecorder()
	h.ListSamples(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []stats.SampleRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 1)

	req = httptest.NewRequest(http.MethodGet, "/samples?group=MSC", nil)
	rec = httptest.NewRecorder()
	h.ListSamples(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 0)
}

func TestGetCurve(t *testing.T) {
	h, _ := testHandler(t)

	router := mux.NewRouter()
	router.HandleFunc("/samples/{filename}/curve", h.GetCurve)

	req := httptest.NewRequest(http.MethodGet, "/samples/SSP_2025-03-20_D1_OPER.csv/curve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Displacement []float64 `json:"displacement_mm"`
		Load         []float64 `json:"load_n"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Displacement, 20)
	assert.Len(t, body.Load, 20)
}

func TestGetCurve_Missing(t *testing.T) {
	h, _ := testHandler(t)

	router := mux.NewRouter()
	router.HandleFunc("/samples/{filename}/curve", h.GetCurve)

	req := httptest.NewRequest(http.MethodGet, "/samples/nope.csv/curve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveManualResult(t *testing.T) {
	h, fake := testHandler(t)

	body := `{"filename": "SSP_2025-03-20_D1_OPER.csv", "indices": [2, 3, 4, 5, 6]}`
	req := httptest.NewRequest(http.MethodPost, "/manual-results", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SaveManualResult(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fake.saved, 1)

	saved := fake.saved[0]
	assert.Equal(t, "D1", saved.SubjectID)
	assert.Equal(t, "OPER", saved.Condition)
	assert.Equal(t, "TFL", saved.Subgroup)
	assert.Equal(t, "D1_OPER", saved.SampleKey)
	assert.Equal(t, 2, saved.StartIdx)
	assert.Equal(t, 7, saved.EndIdx)
	assert.InDelta(t, 150.0, saved.Stiffness, 1e-6)
	assert.NotEmpty(t, saved.SessionID, "a session id is generated when absent")
}

func TestSaveManualResult_BadSelection(t *testing.T) {
	h, _ := testHandler(t)

	body := `{"filename": "SSP_2025-03-20_D1_OPER.csv", "indices": [500]}`
	req := httptest.NewRequest(http.MethodPost, "/manual-results", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SaveManualResult(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListManualResults(t *testing.T) {
	h, fake := testHandler(t)
	fake.saved = []repo.ManualResult{{ID: 1, Filename: "a.csv"}, {ID: 2, Filename: "b.csv"}}

	req := httptest.NewRequest(http.MethodGet, "/manual-results?filename=a.csv", nil)
	rec := httptest.NewRecorder()
	h.ListManualResults(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []repo.ManualResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "a.csv", out[0].Filename)
}

func TestGroupStats(t *testing.T) {
	h, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	h.GroupStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []stats.GroupStat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "TFL", out[0].Subgroup)
}
