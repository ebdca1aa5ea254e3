package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/chart-trainer/src/backtester-api/models"
	"github.com/jiaming2012/chart-trainer/src/backtester-api/services"
	"github.com/jiaming2012/chart-trainer/src/eventmodels"
	"github.com/jiaming2012/chart-trainer/src/eventpubsub"
)

func newTestRouter(t *testing.T, mode models.EvaluationMode, rateLimit float64) *mux.Router {
	t.Helper()

	start := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	series := models.NewPriceSeries([]eventmodels.PriceBar{
		{Date: start, Open: 100, High: 101, Low: 99, Close: 100},
		{Date: start.AddDate(0, 0, 1), Open: 100, High: 102, Low: 94, Close: 96},
		{Date: start.AddDate(0, 0, 2), Open: 96, High: 98, Low: 95, Close: 97},
		{Date: start.AddDate(0, 0, 3), Open: 97, High: 99, Low: 96, Close: 98},
	})

	evaluator, err := models.NewPositionEvaluator(mode, 0)
	require.NoError(t, err)

	svc, err := services.NewSimulatorService(series, models.NewAccountLedger(models.DefaultStartingBalance), evaluator, eventpubsub.NewBus(), services.NewEvaluationHistory(50))
	require.NoError(t, err)

	router := mux.NewRouter()
	_, err = SetupHandler(router, svc, rateLimit, 1)
	require.NoError(t, err)

	return router
}

func doRequest(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const lossPayload = `{"position_type":"long","entry_index":0,"stop_level":95,"take_profit_level":110,"bet_amount":50}`

func TestEvaluatePositionRoute(t *testing.T) {
	t.Run("priced evaluation updates the balance", func(t *testing.T) {
		router := newTestRouter(t, models.EvaluationModePriced, 0)

		rec := doRequest(router, http.MethodPost, "/evaluate_position", lossPayload)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "Loss", body["result"])
		assert.Equal(t, 100.0, body["entry_price"])
		assert.Equal(t, 95.0, body["exit_price"])
		assert.InDelta(t, -5.0, body["percentage_change"], 1e-9)
		assert.InDelta(t, -2.5, body["profit_loss"], 1e-9)
		assert.InDelta(t, 997.5, body["new_balance"], 1e-9)
		assert.Equal(t, "long", body["position_type"])
		assert.NotEmpty(t, body["id"])

		rec = doRequest(router, http.MethodGet, "/get_balance", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, 997.5, decodeBody(t, rec)["balance"], 1e-9)
	})

	t.Run("open positions report null exit fields", func(t *testing.T) {
		router := newTestRouter(t, models.EvaluationModePriced, 0)

		rec := doRequest(router, http.MethodPost, "/evaluate_position",
			`{"position_type":"long","entry_index":0,"stop_level":50,"take_profit_level":150,"bet_amount":50}`)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "Open", body["result"])
		assert.Nil(t, body["exit_price"])
		assert.Nil(t, body["percentage_change"])
		assert.Equal(t, 0.0, body["profit_loss"])
		assert.Equal(t, 1000.0, body["new_balance"])
	})

	t.Run("fixed window evaluation returns the signed stake", func(t *testing.T) {
		router := newTestRouter(t, models.EvaluationModeFixedWindow, 0)

		rec := doRequest(router, http.MethodPost, "/evaluate_position",
			`{"position_type":"long","entry_index":0,"stop_level":95,"take_profit_level":110,"stake":10}`)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, -10.0, body["result"])
		assert.Equal(t, 10.0, body["stake"])
		assert.Equal(t, "long", body["position_type"])
		assert.NotContains(t, body, "new_balance")
	})

	t.Run("validation failures are classified", func(t *testing.T) {
		router := newTestRouter(t, models.EvaluationModePriced, 0)

		cases := []struct {
			name    string
			payload string
			errType string
		}{
			{"not json", `{`, "MalformedInput"},
			{"missing field", `{"position_type":"long","entry_index":0,"stop_level":95,"bet_amount":5}`, "MalformedInput"},
			{"non-numeric field", `{"position_type":"long","entry_index":"0","stop_level":95,"take_profit_level":110,"bet_amount":5}`, "MalformedInput"},
			{"unknown position type", `{"position_type":"sideways","entry_index":0,"stop_level":95,"take_profit_level":110,"bet_amount":5}`, "MalformedInput"},
			{"index past the end", `{"position_type":"long","entry_index":4,"stop_level":95,"take_profit_level":110,"bet_amount":5}`, "IndexOutOfRange"},
			{"negative index", `{"position_type":"long","entry_index":-1,"stop_level":95,"take_profit_level":110,"bet_amount":5}`, "IndexOutOfRange"},
			{"long ordering", `{"position_type":"long","entry_index":0,"stop_level":110,"take_profit_level":95,"bet_amount":5}`, "InvalidThresholdOrdering"},
			{"short ordering", `{"position_type":"short","entry_index":0,"stop_level":95,"take_profit_level":110,"bet_amount":5}`, "InvalidThresholdOrdering"},
			{"zero stake", `{"position_type":"long","entry_index":0,"stop_level":95,"take_profit_level":110,"bet_amount":0}`, "InvalidStake"},
			{"stake above balance", `{"position_type":"long","entry_index":0,"stop_level":95,"take_profit_level":110,"bet_amount":1500}`, "InvalidStake"},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				rec := doRequest(router, http.MethodPost, "/evaluate_position", tc.payload)
				require.Equal(t, http.StatusBadRequest, rec.Code)

				body := decodeBody(t, rec)
				assert.Equal(t, tc.errType, body["type"])
				assert.NotEmpty(t, body["error"])
			})
		}

		rec := doRequest(router, http.MethodGet, "/get_balance", "")
		assert.Equal(t, 1000.0, decodeBody(t, rec)["balance"])
	})

	t.Run("rate limit yields 429", func(t *testing.T) {
		router := newTestRouter(t, models.EvaluationModePriced, 0.001)

		rec := doRequest(router, http.MethodPost, "/evaluate_position", lossPayload)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(router, http.MethodPost, "/evaluate_position", lossPayload)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "RateLimited", decodeBody(t, rec)["type"])
	})

	t.Run("wrong method is rejected", func(t *testing.T) {
		router := newTestRouter(t, models.EvaluationModePriced, 0)

		rec := doRequest(router, http.MethodGet, "/evaluate_position", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestBalanceRoutes(t *testing.T) {
	router := newTestRouter(t, models.EvaluationModePriced, 0)

	rec := doRequest(router, http.MethodPost, "/evaluate_position", lossPayload)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("reset restores the starting balance", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/reset_balance", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1000.0, decodeBody(t, rec)["balance"])
	})

	t.Run("history lists evaluations and resets", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/history", "")
		require.Equal(t, http.StatusOK, rec.Code)

		history, ok := decodeBody(t, rec)["history"].([]interface{})
		require.True(t, ok)
		require.Len(t, history, 2)
		assert.Equal(t, "evaluation", history[0].(map[string]interface{})["type"])
		assert.Equal(t, "reset", history[1].(map[string]interface{})["type"])
	})

	t.Run("landing page resets the balance", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/evaluate_position", lossPayload)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(router, http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "1000.00")

		rec = doRequest(router, http.MethodGet, "/get_balance", "")
		assert.Equal(t, 1000.0, decodeBody(t, rec)["balance"])
	})
}

func TestSeriesRoutes(t *testing.T) {
	router := newTestRouter(t, models.EvaluationModePriced, 0)

	t.Run("chart data returns every record", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/get_chart_data", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var bars []eventmodels.PriceBarDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bars))
		require.Len(t, bars, 4)
		assert.Equal(t, "2024-01-02", bars[0].Date)
		assert.Equal(t, 100.0, bars[0].Close)
	})

	t.Run("chart data honours start and limit", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/get_chart_data?start=1&limit=2", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var bars []eventmodels.PriceBarDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bars))
		require.Len(t, bars, 2)
		assert.Equal(t, "2024-01-03", bars[0].Date)
	})

	t.Run("chart data accepts a limit at the int maximum", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/get_chart_data?start=1&limit=9223372036854775807", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var bars []eventmodels.PriceBarDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bars))
		require.Len(t, bars, 3)
		assert.Equal(t, "2024-01-03", bars[0].Date)
	})

	t.Run("chart data rejects a bad start", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/get_chart_data?start=9", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "RangeError", decodeBody(t, rec)["type"])

		rec = doRequest(router, http.MethodGet, "/get_chart_data?start=abc", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "MalformedInput", decodeBody(t, rec)["type"])
	})

	t.Run("summary statistics", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/summary_statistics", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, 4.0, body["total_entries"])
		assert.Equal(t, 100.0, body["max_close"])
		assert.Equal(t, 96.0, body["min_close"])
		assert.Equal(t, 97.75, body["average_close"])
		assert.Equal(t, "2024-01-05", body["latest_date"])
		assert.Equal(t, "2024-01-02", body["earliest_date"])
	})

	t.Run("last entries", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/last_entries/2", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var bars []eventmodels.PriceBarDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bars))
		require.Len(t, bars, 2)
		assert.Equal(t, 98.0, bars[1].Close)

		rec = doRequest(router, http.MethodGet, "/last_entries/0", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "RangeError", decodeBody(t, rec)["type"])
	})

	t.Run("average price", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/average_price/0/2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 98.0, decodeBody(t, rec)["average_price"])

		for _, target := range []string{"/average_price/2/2", "/average_price/0/4", "/average_price/-1/2"} {
			rec := doRequest(router, http.MethodGet, target, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, target)
			assert.Equal(t, "RangeError", decodeBody(t, rec)["type"], target)
		}

		rec = doRequest(router, http.MethodGet, "/average_price/x/2", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "MalformedInput", decodeBody(t, rec)["type"])
	})
}
