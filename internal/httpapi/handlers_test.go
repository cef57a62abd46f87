package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRunRequest() runRequest {
	var req runRequest
	req.Parameters = parametersDTO{
		YearsForFundingStart: 2025,
		YearsForFundingEnd:   2025,
		YearsForObjFuncStart: 2025,
		YearsForObjFuncEnd:   2025,
		ModelledCountries:    []string{"KEN"},
		PortfolioCountries:   []string{"KEN"},
		ObjectiveIndicators:  []string{"cases", "deaths"},
		Indicators: []indicatorDTO{
			{Name: "cases", UseScaling: true},
			{Name: "deaths", UseScaling: true},
			{Name: "cost", UseScaling: false},
		},
	}
	fractions := []float64{0, 0.5, 1}
	cases := []float64{100, 60, 40}
	deaths := []float64{50, 30, 20}
	cost := []float64{0, 50, 100}
	for i, ff := range fractions {
		req.ModelResults = append(req.ModelResults,
			modelResultRowDTO{Scenario: "programmatic_funded", FundingFraction: ff, Country: "KEN", Year: 2025, Indicator: "cases", Central: cases[i]},
			modelResultRowDTO{Scenario: "programmatic_funded", FundingFraction: ff, Country: "KEN", Year: 2025, Indicator: "deaths", Central: deaths[i]},
			modelResultRowDTO{Scenario: "programmatic_funded", FundingFraction: ff, Country: "KEN", Year: 2025, Indicator: "cost", Central: cost[i]},
		)
	}
	req.TgfFunding = []fundingRowDTO{{Country: "KEN", Amount: 0}}
	return req
}

func TestHandleRun_ReturnsMeasures(t *testing.T) {
	srv := New(Config{Port: "0", Logger: zerolog.Nop()})
	handler := srv.httpServer.Handler

	body, err := json.Marshal(sampleRunRequest())
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/analysis/run", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp runResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.NotEmpty(t, resp.Measures)
}

func TestHandleRun_RejectsMalformedJSON(t *testing.T) {
	srv := New(Config{Port: "0", Logger: zerolog.Nop()})
	handler := srv.httpServer.Handler

	r := httptest.NewRequest(http.MethodPost, "/api/analysis/run", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := New(Config{Port: "0", Logger: zerolog.Nop()})
	handler := srv.httpServer.Handler

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}
