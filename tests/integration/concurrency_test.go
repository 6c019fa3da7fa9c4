package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentBets_SamePlayer hammers one balance row with concurrent bets.
// Row locking must serialize the debits: exactly starting/stake bets succeed,
// the rest decline, and the balance never goes negative.
func TestConcurrentBets_SamePlayer(t *testing.T) {
	app := newTestApp(t, defaultTestPolicy())
	defer app.close()

	app.seedPlayer("p1", "USD", "100.00")

	const workers = 50
	var accepted, declined atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			body := fmt.Sprintf(
				`{"playerId":"p1","amount":"10.00","type":"debit","reference":"bet-%d","roundId":"r-%d"}`, n, n)
			resp, err := http.Post(app.server.URL+"/api/v1/callbacks/pragmatic", "application/json", strings.NewReader(body))
			if err != nil {
				t.Error(err)
				return
			}
			defer resp.Body.Close()

			var decoded map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
				t.Error(err)
				return
			}
			if decoded["errorcode"] == "0" {
				accepted.Add(1)
			} else {
				declined.Add(1)
			}
		}(i)
	}
	wg.Wait()

	// 100.00 at 10.00 a bet funds exactly ten.
	assert.Equal(t, int64(10), accepted.Load())
	assert.Equal(t, int64(workers-10), declined.Load())

	final := app.postCallback(t, "/api/v1/callbacks/pragmatic", `{"playerId":"p1","type":"balance"}`)
	assert.Equal(t, 0.0, final["balance"])
}

// TestConcurrentDuplicates_SameExternalID fires the same callback many times
// at once. The ledger must record exactly one debit.
func TestConcurrentDuplicates_SameExternalID(t *testing.T) {
	app := newTestApp(t, defaultTestPolicy())
	defer app.close()

	app.seedPlayer("p1", "USD", "100.00")

	const workers = 20
	var wg sync.WaitGroup
	balances := make(chan float64, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := `{"playerId":"p1","amount":"10.00","type":"debit","reference":"bet-same","roundId":"r-1"}`
			resp, err := http.Post(app.server.URL+"/api/v1/callbacks/pragmatic", "application/json", strings.NewReader(body))
			if err != nil {
				t.Error(err)
				return
			}
			defer resp.Body.Close()

			var decoded map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
				t.Error(err)
				return
			}
			if decoded["errorcode"] != "0" {
				t.Errorf("duplicate delivery must replay, got %v", decoded)
				return
			}
			balances <- decoded["balance"].(float64)
		}()
	}
	wg.Wait()
	close(balances)

	// Every delivery reports the single post-debit balance.
	for b := range balances {
		assert.Equal(t, 90.0, b)
	}

	final := app.postCallback(t, "/api/v1/callbacks/pragmatic", `{"playerId":"p1","type":"balance"}`)
	assert.Equal(t, 90.0, final["balance"])
}

// TestConcurrentPlayers_NoCrossInterference runs independent players in
// parallel and verifies each ledger stays internally consistent.
func TestConcurrentPlayers_NoCrossInterference(t *testing.T) {
	app := newTestApp(t, defaultTestPolicy())
	defer app.close()

	const players = 10
	const betsPerPlayer = 5

	for i := 0; i < players; i++ {
		app.seedPlayer(fmt.Sprintf("p%d", i), "USD", "100.00")
	}

	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		for j := 0; j < betsPerPlayer; j++ {
			wg.Add(1)
			go func(p, n int) {
				defer wg.Done()
				body := fmt.Sprintf(
					`{"playerId":"p%d","amount":"10.00","type":"debit","reference":"bet-%d-%d","roundId":"r-%d-%d"}`,
					p, p, n, p, n)
				resp, err := http.Post(app.server.URL+"/api/v1/callbacks/pragmatic", "application/json", strings.NewReader(body))
				if err != nil {
					t.Error(err)
					return
				}
				resp.Body.Close()
			}(i, j)
		}
	}
	wg.Wait()

	expected := decimal.RequireFromString("50.00")
	for i := 0; i < players; i++ {
		playerID := fmt.Sprintf("p%d", i)
		final := app.postCallback(t, "/api/v1/callbacks/pragmatic",
			fmt.Sprintf(`{"playerId":"%s","type":"balance"}`, playerID))
		require.Equal(t, "0", final["errorcode"])
		got := decimal.NewFromFloat(final["balance"].(float64))
		assert.True(t, got.Equal(expected), "player %s: got %s", playerID, got)
	}
}
