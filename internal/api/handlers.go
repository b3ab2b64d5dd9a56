package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/teris-io/shortid"

	"github.com/carnival-games/carnival/internal/database"
	"github.com/carnival-games/carnival/internal/types"
)

type CreateGameRequest struct {
	Name string `json:"name"`
}

type CreatePlayerRequest struct {
	Name string `json:"name"`
}

type ForceJoinRequest struct {
	GameId int `json:"game_id"`
}

type CreateSessionRequest struct {
	PlayerIds []int `json:"player_ids"`
}

func (s *CarnivalApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *CarnivalApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// gameFromPath resolves the {id} path segment to a game, writing the
// error response itself when that fails.
func (s *CarnivalApp) gameFromPath(w http.ResponseWriter, r *http.Request) (database.Game, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		errResp := NewValidationError("invalid game id")
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Game{}, false
	}

	game, err := s.db.GetGame(id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewValidationError("game not found")
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Game{}, false
	}

	return game, true
}

func toJoinRequest(jr database.JoinRequest) types.JoinRequest {
	return types.JoinRequest{
		Id:          jr.Id,
		GameId:      jr.GameId,
		PlayerId:    jr.PlayerId,
		Status:      string(jr.Status),
		ForceSentBy: jr.ForceSentBy,
		CreatedAt:   jr.CreatedAt,
	}
}

func toPlayer(p database.Player) types.Player {
	return types.Player{
		Id:         p.Id,
		ExternalId: p.ExternalId,
		Name:       p.Name,
		Archived:   p.Archived,
		CreatedAt:  p.CreatedAt,
	}
}

func toSession(session database.Session) types.Session {
	resp := types.Session{
		Id:        session.Id,
		GameId:    session.GameId,
		Active:    session.Active,
		Data:      session.Data,
		CreatedAt: session.CreatedAt,
	}
	for _, p := range session.Players {
		resp.Players = append(resp.Players, toPlayer(p))
	}
	return resp
}

func (s *CarnivalApp) createGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" {
		errResp := NewValidationError("name is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	game, err := s.db.CreateGame(database.CreateGameParams{
		Name:  req.Name,
		Token: uuid.NewString(),
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Game{
		Id:        game.Id,
		Name:      game.Name,
		Token:     game.Token,
		CreatedAt: game.CreatedAt,
	})
}

func (s *CarnivalApp) getGame(w http.ResponseWriter, r *http.Request) {
	game, ok := s.gameFromPath(w, r)
	if !ok {
		return
	}

	s.writeJson(w, http.StatusOK, types.Game{
		Id:        game.Id,
		Name:      game.Name,
		Token:     game.Token,
		CreatedAt: game.CreatedAt,
	})
}

func (s *CarnivalApp) createPlayer(w http.ResponseWriter, r *http.Request) {
	officer, ok := s.currentOfficer(w, r)
	if !ok {
		return
	}

	var req CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" {
		errResp := NewValidationError("name is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := shortid.Generate()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	player, err := s.db.CreatePlayer(database.CreatePlayerParams{
		Name:               req.Name,
		ExternalId:         sid,
		CreatedByOfficerId: &officer.Id,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, toPlayer(player))
}

func (s *CarnivalApp) playerFromPath(w http.ResponseWriter, r *http.Request) (database.Player, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		errResp := NewValidationError("invalid player id")
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Player{}, false
	}

	player, err := s.db.GetPlayer(id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Player{}, false
	}

	return player, true
}

func (s *CarnivalApp) getPlayer(w http.ResponseWriter, r *http.Request) {
	player, ok := s.playerFromPath(w, r)
	if !ok {
		return
	}

	score, err := s.db.PlayerScore(player.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	resp := toPlayer(player)
	resp.Score = score
	s.writeJson(w, http.StatusOK, resp)
}

func (s *CarnivalApp) archivePlayer(w http.ResponseWriter, r *http.Request) {
	player, ok := s.playerFromPath(w, r)
	if !ok {
		return
	}

	if err := s.db.ArchivePlayer(player.Id); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// forceJoin enqueues a player on an officer's behalf, recording the
// officer on the join request.
func (s *CarnivalApp) forceJoin(w http.ResponseWriter, r *http.Request) {
	officer, ok := s.currentOfficer(w, r)
	if !ok {
		return
	}

	player, ok := s.playerFromPath(w, r)
	if !ok {
		return
	}

	if player.Archived {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ForceJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	game, err := s.db.GetGame(req.GameId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewValidationError("game not found")
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	jr, err := s.queue.Create(game.Id, player.Id, &officer.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if s.stats != nil {
		s.stats.Incr(metricJoinRequestsCreated)
	}

	s.writeJson(w, http.StatusCreated, toJoinRequest(jr))
}

func (s *CarnivalApp) cancelJoin(w http.ResponseWriter, r *http.Request) {
	player, ok := s.playerFromPath(w, r)
	if !ok {
		return
	}

	jr, err := s.queue.CancelForPlayer(player.Id)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, sql.ErrNoRows):
			errResp = NewValidationError("no active join request")
		case errors.Is(err, database.ErrNotPending):
			errResp = NewValidationError(err.Error())
		default:
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toJoinRequest(jr))
}

type JoinResponse struct {
	JoinRequest     types.JoinRequest `json:"join_request"`
	CancelsExisting bool              `json:"cancels_existing"`
}

func (s *CarnivalApp) joinGame(w http.ResponseWriter, r *http.Request) {
	game, ok := s.gameFromPath(w, r)
	if !ok {
		return
	}

	externalId := r.URL.Query().Get("user")
	if externalId == "" {
		errResp := NewValidationError("user not specified")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	player, err := s.db.GetPlayerByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewValidationError("user not found")
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if player.Archived {
		errResp := NewValidationError("user not found")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// remembered only for the response: the create itself supersedes
	// any pending request atomically
	_, err = s.db.GetPendingJoinRequest(game.Id, player.Id)
	cancelsExisting := err == nil

	jr, err := s.queue.Create(game.Id, player.Id, nil)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if s.stats != nil {
		s.stats.Incr(metricJoinRequestsCreated)
	}

	s.writeJson(w, http.StatusCreated, JoinResponse{
		JoinRequest:     toJoinRequest(jr),
		CancelsExisting: cancelsExisting,
	})
}

type QueueEntry struct {
	types.JoinRequest
	Player types.Player `json:"player"`
}

type QueueSnapshotResponse struct {
	JoinRequests []QueueEntry `json:"join_requests"`
}

// queueSnapshot returns the pending queue with each player's lifetime
// score, for scanner UIs that poll instead of streaming.
func (s *CarnivalApp) queueSnapshot(w http.ResponseWriter, r *http.Request) {
	game, ok := s.gameFromPath(w, r)
	if !ok {
		return
	}

	pending, err := s.queue.Pending(game.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	resp := QueueSnapshotResponse{JoinRequests: []QueueEntry{}}
	for _, jr := range pending {
		player, err := s.db.GetPlayer(jr.PlayerId)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		score, err := s.db.PlayerScore(player.Id)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		p := toPlayer(player)
		p.Score = score
		resp.JoinRequests = append(resp.JoinRequests, QueueEntry{
			JoinRequest: toJoinRequest(jr),
			Player:      p,
		})
	}

	s.writeJson(w, http.StatusOK, resp)
}

type AckResponse struct {
	Session types.Session `json:"session"`
}

func (s *CarnivalApp) acknowledgeRequests(w http.ResponseWriter, r *http.Request) {
	game, ok := s.gameFromPath(w, r)
	if !ok {
		return
	}

	rawIds := r.URL.Query()["id"]
	if len(rawIds) == 0 {
		errResp := NewValidationError("no join requests provided")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	ids := make([]int, 0, len(rawIds))
	for _, raw := range rawIds {
		id, err := strconv.Atoi(raw)
		if err != nil {
			errResp := NewValidationError("invalid join request id")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		ids = append(ids, id)
	}

	session, err := s.queue.Acknowledge(game.Id, ids)
	if err != nil {
		var (
			errResp  *ApiError
			notFound *database.JoinRequestNotFoundError
		)
		switch {
		case errors.As(err, &notFound), errors.Is(err, database.ErrNotPending):
			errResp = NewValidationError(err.Error())
		default:
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, AckResponse{Session: toSession(session)})
}

func (s *CarnivalApp) createSession(w http.ResponseWriter, r *http.Request) {
	game, ok := s.gameFromPath(w, r)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if len(req.PlayerIds) == 0 {
		errResp := NewValidationError("no players provided")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, err := s.db.CreateSession(game.Id, req.PlayerIds)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, AckResponse{Session: toSession(session)})
}

func (s *CarnivalApp) activeSession(w http.ResponseWriter, r *http.Request) {
	game, ok := s.gameFromPath(w, r)
	if !ok {
		return
	}

	session, err := s.db.GetActiveSession(game.Id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, AckResponse{Session: toSession(session)})
}

type FinishResponse struct {
	Session    types.Session    `json:"session"`
	ScoreBlock types.ScoreBlock `json:"score_block"`
}

// finishSession appends a score block to the game's active session and
// optionally closes it. The scored player is named by the user param, or
// defaults to the session's sole participant.
func (s *CarnivalApp) finishSession(w http.ResponseWriter, r *http.Request) {
	game, ok := s.gameFromPath(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	data := query.Get("data")
	rawScore := query.Get("score")
	finished := query.Get("finished") == "true"

	if data == "" {
		errResp := NewValidationError("no data provided")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if rawScore == "" {
		errResp := NewValidationError("no score provided")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	score, err := strconv.Atoi(rawScore)
	if err != nil {
		errResp := NewValidationError("invalid score")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, err := s.db.GetActiveSession(game.Id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewValidationError("no active session found")
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	player, apiErr := resolveScoredPlayer(session, query.Get("user"))
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	block, err := s.db.AppendScoreBlock(database.AppendScoreBlockParams{
		SessionId: session.Id,
		PlayerId:  player.Id,
		Score:     score,
		Data:      data,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.UpdateSessionState(session.Id, !finished, data); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session.Active = !finished
	session.Data = data

	s.writeJson(w, http.StatusOK, FinishResponse{
		Session: toSession(session),
		ScoreBlock: types.ScoreBlock{
			Id:        block.Id,
			SessionId: block.SessionId,
			PlayerId:  block.PlayerId,
			Score:     block.Score,
			Data:      block.Data,
			CreatedAt: block.CreatedAt,
		},
	})
}

func resolveScoredPlayer(session database.Session, externalId string) (database.Player, *ApiError) {
	if externalId != "" {
		for _, p := range session.Players {
			if p.ExternalId == externalId {
				return p, nil
			}
		}
		return database.Player{}, NewValidationError("user is not part of the session")
	}

	if len(session.Players) == 1 {
		return session.Players[0], nil
	}

	return database.Player{}, NewValidationError("user required for multi-player session")
}
