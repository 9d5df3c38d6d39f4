package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/feature-engine/internal/features"
)

func setupFeatureRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	handler := NewFeatureHandler(features.NewDefaultResolver(), features.DefaultRegistry(), logger)

	router := gin.New()
	router.POST("/features/resolve", handler.ResolveFeatures)
	router.POST("/features/validate", handler.ValidateFeatures)
	router.POST("/features/dependents", handler.GetDependentFeatures)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestResolveFeatures(t *testing.T) {
	router := setupFeatureRouter(t)

	w := postJSON(t, router, "/features/resolve", gin.H{
		"features": []string{"inj_impact|blend|raw|diff", "wins|season|avg|diff"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Requested    []string            `json:"requested"`
			Dependencies []string            `json:"dependencies"`
			All          []string            `json:"all"`
			DirectDeps   map[string][]string `json:"direct_deps"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	assert.ElementsMatch(t, []string{"inj_impact|blend|raw|diff", "wins|season|avg|diff"}, resp.Data.Requested)
	assert.Contains(t, resp.Data.Dependencies, "inj_severity|none|raw|diff")
	assert.Len(t, resp.Data.All, 5)
	assert.Contains(t, resp.Data.DirectDeps, "inj_impact|blend|raw|diff")
}

func TestResolveFeatures_NonTransitive(t *testing.T) {
	router := setupFeatureRouter(t)

	w := postJSON(t, router, "/features/resolve", gin.H{
		"features":           []string{"pts_blend|blend:season:0.6/games_10:0.4|avg|diff"},
		"include_transitive": false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			All []string `json:"all"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{
		"pts_blend|blend:season:0.6/games_10:0.4|avg|diff",
		"pts|season|avg|diff",
		"pts|games_10|avg|diff",
	}, resp.Data.All)
}

func TestResolveFeatures_BadRequest(t *testing.T) {
	router := setupFeatureRouter(t)

	w := postJSON(t, router, "/features/resolve", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateFeatures(t *testing.T) {
	router := setupFeatureRouter(t)

	w := postJSON(t, router, "/features/validate", gin.H{
		"features": []string{
			"pts|season|avg|diff",
			"not-an-identifier",
			"efg_pct|season|avg|diff",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			Feature  string `json:"feature"`
			Valid    bool   `json:"valid"`
			Category string `json:"category"`
			Error    string `json:"error"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 3)

	assert.True(t, resp.Data[0].Valid)
	assert.Equal(t, "basic", resp.Data[0].Category)

	assert.False(t, resp.Data[1].Valid)
	assert.NotEmpty(t, resp.Data[1].Error)

	// Parses fine but violates a registry constraint; still a per-entry
	// rejection, not a request failure.
	assert.False(t, resp.Data[2].Valid)
	assert.NotEmpty(t, resp.Data[2].Error)
}

func TestGetDependentFeatures(t *testing.T) {
	router := setupFeatureRouter(t)

	w := postJSON(t, router, "/features/dependents", gin.H{
		"feature": "inj_severity|none|raw|diff",
		"universe": []string{
			"inj_impact|blend|raw|diff",
			"wins|season|avg|diff",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Feature    string   `json:"feature"`
			Dependents []string `json:"dependents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "inj_severity|none|raw|diff", resp.Data.Feature)
	assert.Equal(t, []string{"inj_impact|blend|raw|diff"}, resp.Data.Dependents)
}
