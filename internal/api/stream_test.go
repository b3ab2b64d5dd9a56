package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carnival-games/carnival/internal/database"
	"github.com/carnival-games/carnival/internal/stats"
	"github.com/carnival-games/carnival/internal/types"
)

// readLine reads the next ndjson line off the stream, failing the test if
// none arrives in time.
func readLine(t *testing.T, scanner *bufio.Scanner) types.JoinRequest {
	t.Helper()

	lines := make(chan string, 1)
	go func() {
		if scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	select {
	case line := <-lines:
		var jr types.JoinRequest
		require.NoError(t, json.Unmarshal([]byte(line), &jr), "expected a json line")
		return jr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a stream line")
		return types.JoinRequest{}
	}
}

func TestStreamQueue(t *testing.T) {
	db := database.NewMemCarnivalRepository()
	app, mux := newTestApp(t, db)

	game := seedGame(t, db, "ring toss")
	other := seedGame(t, db, "duck pond")
	alice := seedPlayer(t, db, "alice", "alice-xid")
	bob := seedPlayer(t, db, "bob", "bob-xid")
	carol := seedPlayer(t, db, "carol", "carol-xid")

	// alice is already queued before the stream opens
	existing, err := db.CreateJoinRequest(database.CreateJoinRequestParams{GameId: game.Id, PlayerId: alice.Id})
	require.NoError(t, err)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/games/%d/queue", srv.URL, game.Id))
	require.NoError(t, err, "expected stream request to succeed")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)

	first := readLine(t, scanner)
	assert.Equal(t, existing.Id, first.Id, "expected the snapshot line first")
	assert.Equal(t, alice.Id, first.PlayerId)

	// wait for the stream's subscription before emitting live events
	require.Eventually(t, func() bool {
		return app.queue.Len() > 0
	}, time.Second, 10*time.Millisecond, "expected the stream to subscribe")

	// an event for another game must not appear on this stream
	_, err = app.queue.Create(other.Id, carol.Id, nil)
	require.NoError(t, err)

	live, err := app.queue.Create(game.Id, bob.Id, nil)
	require.NoError(t, err)

	second := readLine(t, scanner)
	assert.Equal(t, live.Id, second.Id, "expected bob's request, not the other game's")
	assert.Equal(t, bob.Id, second.PlayerId)
}

func TestStreamQueueDeliversSnapshotOverlapOnce(t *testing.T) {
	db := database.NewMemCarnivalRepository()
	app, mux := newTestApp(t, db)

	game := seedGame(t, db, "ring toss")
	alice := seedPlayer(t, db, "alice", "alice-xid")
	bob := seedPlayer(t, db, "bob", "bob-xid")

	existing, err := db.CreateJoinRequest(database.CreateJoinRequestParams{GameId: game.Id, PlayerId: alice.Id})
	require.NoError(t, err)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/games/%d/queue", srv.URL, game.Id))
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	first := readLine(t, scanner)
	assert.Equal(t, existing.Id, first.Id)

	require.Eventually(t, func() bool {
		return app.queue.Len() > 0
	}, time.Second, 10*time.Millisecond)

	// replay the snapshot row on the bus: the stream must drop it and move
	// straight on to the next new request
	app.queue.Publish(existing)

	live, err := app.queue.Create(game.Id, bob.Id, nil)
	require.NoError(t, err)

	second := readLine(t, scanner)
	assert.Equal(t, live.Id, second.Id, "expected the duplicate to be dropped")
}

func TestStreamQueueCountsActiveStreams(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("Incr", metricActiveQueueStreams).Once()
	su.On("Decr", metricActiveQueueStreams).Once()

	db := database.NewMemCarnivalRepository()
	app, mux := newTestAppWithStats(t, db, su)
	game := seedGame(t, db, "ring toss")

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/games/%d/queue", srv.URL, game.Id))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		return app.queue.Len() > 0
	}, time.Second, 10*time.Millisecond, "expected the stream to subscribe")

	resp.Body.Close()

	// the handler unsubscribes after decrementing the gauge on exit
	require.Eventually(t, func() bool {
		return app.queue.Len() == 0
	}, time.Second, 10*time.Millisecond, "expected the stream to unsubscribe")
}

func TestStreamQueueUnknownGame(t *testing.T) {
	db := database.NewMemCarnivalRepository()
	_, mux := newTestApp(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/games/9999/queue", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
