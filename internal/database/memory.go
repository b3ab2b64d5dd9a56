package database

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemCarnivalRepository is an in-memory CarnivalRepository with the same
// transition semantics as the Postgres implementation. It backs the state
// machine and streaming tests, where the scripted mock is too rigid.
type MemCarnivalRepository struct {
	mu sync.Mutex

	games          map[int]Game
	players        map[int]Player
	officers       map[int]Officer
	joinRequests   map[int]JoinRequest
	sessions       map[int]Session
	sessionPlayers map[int][]int
	scoreBlocks    map[int]ScoreBlock
	pagerMessages  []PagerMessage

	nextId int
}

func NewMemCarnivalRepository() *MemCarnivalRepository {
	return &MemCarnivalRepository{
		games:          make(map[int]Game),
		players:        make(map[int]Player),
		officers:       make(map[int]Officer),
		joinRequests:   make(map[int]JoinRequest),
		sessions:       make(map[int]Session),
		sessionPlayers: make(map[int][]int),
		scoreBlocks:    make(map[int]ScoreBlock),
	}
}

func (m *MemCarnivalRepository) id() int {
	m.nextId++
	return m.nextId
}

func (m *MemCarnivalRepository) Ping() error { return nil }

func (m *MemCarnivalRepository) CreateGame(params CreateGameParams) (Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := Game{Id: m.id(), Name: params.Name, Token: params.Token, CreatedAt: time.Now().UTC()}
	m.games[g.Id] = g
	return g, nil
}

func (m *MemCarnivalRepository) GetGame(id int) (Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[id]
	if !ok {
		return Game{}, sql.ErrNoRows
	}
	return g, nil
}

func (m *MemCarnivalRepository) CreatePlayer(params CreatePlayerParams) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := Player{
		Id:                 m.id(),
		ExternalId:         params.ExternalId,
		Name:               params.Name,
		CreatedByOfficerId: params.CreatedByOfficerId,
		CreatedAt:          time.Now().UTC(),
	}
	m.players[p.Id] = p
	return p, nil
}

func (m *MemCarnivalRepository) GetPlayer(id int) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return Player{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *MemCarnivalRepository) GetPlayerByExternalId(externalId string) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.players {
		if p.ExternalId == externalId {
			return p, nil
		}
	}
	return Player{}, sql.ErrNoRows
}

func (m *MemCarnivalRepository) ArchivePlayer(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Archived = true
	m.players[id] = p
	return nil
}

func (m *MemCarnivalRepository) PlayerScore(playerId int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int
	for _, sb := range m.scoreBlocks {
		if sb.PlayerId == playerId {
			total += sb.Score
		}
	}
	return total, nil
}

func (m *MemCarnivalRepository) CreateOfficer(params CreateOfficerParams) (Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := Officer{
		Id:                 m.id(),
		Name:               params.Name,
		PasswordHash:       params.PasswordHash,
		Admin:              params.Admin,
		CreatedByOfficerId: params.CreatedByOfficerId,
		CreatedAt:          time.Now().UTC(),
	}
	m.officers[o.Id] = o
	return o, nil
}

func (m *MemCarnivalRepository) GetOfficerById(id int) (Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.officers[id]
	if !ok || o.Archived {
		return Officer{}, sql.ErrNoRows
	}
	return o, nil
}

func (m *MemCarnivalRepository) GetOfficerByName(name string) (Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.officers {
		if o.Name == name && !o.Archived {
			return o, nil
		}
	}
	return Officer{}, sql.ErrNoRows
}

func (m *MemCarnivalRepository) pendingLocked(gameId, playerId int) (JoinRequest, bool) {
	for _, jr := range m.joinRequests {
		if jr.GameId == gameId && jr.PlayerId == playerId && jr.Status == JoinRequestPending {
			return jr, true
		}
	}
	return JoinRequest{}, false
}

func (m *MemCarnivalRepository) CreateJoinRequest(params CreateJoinRequestParams) (JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, hasExisting := m.pendingLocked(params.GameId, params.PlayerId)

	jr := JoinRequest{
		Id:          m.id(),
		GameId:      params.GameId,
		PlayerId:    params.PlayerId,
		Status:      JoinRequestPending,
		ForceSentBy: params.ForceSentBy,
		CreatedAt:   time.Now().UTC(),
	}
	m.joinRequests[jr.Id] = jr

	if hasExisting {
		existing.Status = JoinRequestSuperseded
		successor := jr.Id
		existing.SupersededBy = &successor
		m.joinRequests[existing.Id] = existing
	}

	return jr, nil
}

func (m *MemCarnivalRepository) GetJoinRequest(id int) (JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	jr, ok := m.joinRequests[id]
	if !ok {
		return JoinRequest{}, sql.ErrNoRows
	}
	return jr, nil
}

func (m *MemCarnivalRepository) GetPendingJoinRequest(gameId, playerId int) (JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if jr, ok := m.pendingLocked(gameId, playerId); ok {
		return jr, nil
	}
	return JoinRequest{}, sql.ErrNoRows
}

func (m *MemCarnivalRepository) GetPendingJoinRequestForPlayer(playerId int) (JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := JoinRequest{}
	ok := false
	for _, jr := range m.joinRequests {
		if jr.PlayerId == playerId && jr.Status == JoinRequestPending {
			if !ok || jr.Id > found.Id {
				found = jr
				ok = true
			}
		}
	}
	if !ok {
		return JoinRequest{}, sql.ErrNoRows
	}
	return found, nil
}

func (m *MemCarnivalRepository) ListPendingJoinRequests(gameId int) ([]JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var requests []JoinRequest
	for _, jr := range m.joinRequests {
		if jr.GameId == gameId && jr.Status == JoinRequestPending {
			requests = append(requests, jr)
		}
	}

	sort.Slice(requests, func(i, j int) bool { return requests[i].Id < requests[j].Id })
	return requests, nil
}

func (m *MemCarnivalRepository) AcknowledgeJoinRequests(gameId int, ids []int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// validate everything before mutating anything
	var playerIds []int
	seen := make(map[int]struct{})
	for _, id := range ids {
		jr, ok := m.joinRequests[id]
		if !ok || jr.GameId != gameId {
			return Session{}, &JoinRequestNotFoundError{Id: id}
		}
		if jr.Status != JoinRequestPending {
			return Session{}, fmt.Errorf("join request %d: %w", id, ErrNotPending)
		}
		if _, dup := seen[jr.PlayerId]; !dup {
			seen[jr.PlayerId] = struct{}{}
			playerIds = append(playerIds, jr.PlayerId)
		}
	}

	session := m.createSessionLocked(gameId, playerIds)

	for _, id := range ids {
		jr := m.joinRequests[id]
		jr.Status = JoinRequestAcknowledged
		m.joinRequests[id] = jr
	}

	return session, nil
}

func (m *MemCarnivalRepository) TerminateJoinRequest(id int) (JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	jr, ok := m.joinRequests[id]
	if !ok {
		return JoinRequest{}, sql.ErrNoRows
	}
	if jr.Status != JoinRequestPending {
		return JoinRequest{}, fmt.Errorf("join request %d: %w", id, ErrNotPending)
	}

	jr.Status = JoinRequestTerminated
	m.joinRequests[id] = jr
	return jr, nil
}

func (m *MemCarnivalRepository) createSessionLocked(gameId int, playerIds []int) Session {
	s := Session{
		Id:        m.id(),
		GameId:    gameId,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	for _, pid := range playerIds {
		if p, ok := m.players[pid]; ok {
			s.Players = append(s.Players, p)
		}
	}

	m.sessions[s.Id] = s
	m.sessionPlayers[s.Id] = playerIds
	return s
}

func (m *MemCarnivalRepository) CreateSession(gameId int, playerIds []int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createSessionLocked(gameId, playerIds), nil
}

func (m *MemCarnivalRepository) GetActiveSession(gameId int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := Session{}
	ok := false
	for _, s := range m.sessions {
		if s.GameId == gameId && s.Active {
			if !ok || s.Id > found.Id {
				found = s
				ok = true
			}
		}
	}
	if !ok {
		return Session{}, sql.ErrNoRows
	}

	found.Players = nil
	for _, pid := range m.sessionPlayers[found.Id] {
		if p, exists := m.players[pid]; exists {
			found.Players = append(found.Players, p)
		}
	}

	return found, nil
}

func (m *MemCarnivalRepository) UpdateSessionState(id int, active bool, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Active = active
	s.Data = data
	m.sessions[id] = s
	return nil
}

func (m *MemCarnivalRepository) AppendScoreBlock(params AppendScoreBlockParams) (ScoreBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sb := ScoreBlock{
		Id:        m.id(),
		SessionId: params.SessionId,
		PlayerId:  params.PlayerId,
		Score:     params.Score,
		Data:      params.Data,
		CreatedAt: time.Now().UTC(),
	}
	m.scoreBlocks[sb.Id] = sb
	return sb, nil
}

func (m *MemCarnivalRepository) CreatePagerMessage(officerId int, body string) (PagerMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.officers[officerId]
	if !ok {
		return PagerMessage{}, sql.ErrNoRows
	}

	msg := PagerMessage{
		Id:          m.id(),
		OfficerId:   officerId,
		OfficerName: o.Name,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	m.pagerMessages = append(m.pagerMessages, msg)
	return msg, nil
}

func (m *MemCarnivalRepository) ListPagerMessages() ([]PagerMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := make([]PagerMessage, len(m.pagerMessages))
	copy(messages, m.pagerMessages)
	return messages, nil
}
