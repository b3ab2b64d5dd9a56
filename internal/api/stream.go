package api

import (
	"encoding/json"
	"net/http"

	"github.com/carnival-games/carnival/internal/database"
	"github.com/carnival-games/carnival/internal/event"
)

// streamQueue writes the game's pending join requests as newline-delimited
// JSON and keeps the connection open, appending a line whenever a new
// request arrives. Subscribing before the snapshot read means nothing is
// missed in between; live events already present in the snapshot are
// dropped by id so nothing is written twice either.
func (s *CarnivalApp) streamQueue(w http.ResponseWriter, r *http.Request) {
	game, ok := s.gameFromPath(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		errResp := NewInternalServerError(nil)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	incoming := event.NewQueue[database.JoinRequest]()
	subId := s.queue.Subscribe(func(jr database.JoinRequest) {
		if jr.GameId == game.Id {
			incoming.Enqueue(jr)
		}
	})
	defer s.queue.Unsubscribe(subId)

	pending, err := s.queue.Pending(game.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if s.stats != nil {
		s.stats.Incr(metricActiveQueueStreams)
		defer s.stats.Decr(metricActiveQueueStreams)
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	seen := make(map[int]bool, len(pending))
	for _, jr := range pending {
		seen[jr.Id] = true
		if err := enc.Encode(toJoinRequest(jr)); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		jr, err := incoming.Next(ctx)
		if err != nil {
			return
		}

		if seen[jr.Id] {
			continue
		}
		seen[jr.Id] = true

		if err := enc.Encode(toJoinRequest(jr)); err != nil {
			return
		}
		flusher.Flush()
	}
}
