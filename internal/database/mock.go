package database

import (
	"github.com/stretchr/testify/mock"
)

type MockCarnivalRepository struct {
	mock.Mock
}

func (m *MockCarnivalRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCarnivalRepository) CreateGame(params CreateGameParams) (Game, error) {
	args := m.Called(params)
	return args.Get(0).(Game), args.Error(1)
}

func (m *MockCarnivalRepository) GetGame(id int) (Game, error) {
	args := m.Called(id)
	return args.Get(0).(Game), args.Error(1)
}

func (m *MockCarnivalRepository) CreatePlayer(params CreatePlayerParams) (Player, error) {
	args := m.Called(params)
	return args.Get(0).(Player), args.Error(1)
}

func (m *MockCarnivalRepository) GetPlayer(id int) (Player, error) {
	args := m.Called(id)
	return args.Get(0).(Player), args.Error(1)
}

func (m *MockCarnivalRepository) GetPlayerByExternalId(externalId string) (Player, error) {
	args := m.Called(externalId)
	return args.Get(0).(Player), args.Error(1)
}

func (m *MockCarnivalRepository) ArchivePlayer(id int) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockCarnivalRepository) PlayerScore(playerId int) (int, error) {
	args := m.Called(playerId)
	return args.Int(0), args.Error(1)
}

func (m *MockCarnivalRepository) CreateOfficer(params CreateOfficerParams) (Officer, error) {
	args := m.Called(params)
	return args.Get(0).(Officer), args.Error(1)
}

func (m *MockCarnivalRepository) GetOfficerById(id int) (Officer, error) {
	args := m.Called(id)
	return args.Get(0).(Officer), args.Error(1)
}

func (m *MockCarnivalRepository) GetOfficerByName(name string) (Officer, error) {
	args := m.Called(name)
	return args.Get(0).(Officer), args.Error(1)
}

func (m *MockCarnivalRepository) CreateJoinRequest(params CreateJoinRequestParams) (JoinRequest, error) {
	args := m.Called(params)
	return args.Get(0).(JoinRequest), args.Error(1)
}

func (m *MockCarnivalRepository) GetJoinRequest(id int) (JoinRequest, error) {
	args := m.Called(id)
	return args.Get(0).(JoinRequest), args.Error(1)
}

func (m *MockCarnivalRepository) GetPendingJoinRequest(gameId, playerId int) (JoinRequest, error) {
	args := m.Called(gameId, playerId)
	return args.Get(0).(JoinRequest), args.Error(1)
}

func (m *MockCarnivalRepository) GetPendingJoinRequestForPlayer(playerId int) (JoinRequest, error) {
	args := m.Called(playerId)
	return args.Get(0).(JoinRequest), args.Error(1)
}

func (m *MockCarnivalRepository) ListPendingJoinRequests(gameId int) ([]JoinRequest, error) {
	args := m.Called(gameId)
	return args.Get(0).([]JoinRequest), args.Error(1)
}

func (m *MockCarnivalRepository) AcknowledgeJoinRequests(gameId int, ids []int) (Session, error) {
	args := m.Called(gameId, ids)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockCarnivalRepository) TerminateJoinRequest(id int) (JoinRequest, error) {
	args := m.Called(id)
	return args.Get(0).(JoinRequest), args.Error(1)
}

func (m *MockCarnivalRepository) CreateSession(gameId int, playerIds []int) (Session, error) {
	args := m.Called(gameId, playerIds)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockCarnivalRepository) GetActiveSession(gameId int) (Session, error) {
	args := m.Called(gameId)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockCarnivalRepository) UpdateSessionState(id int, active bool, data string) error {
	args := m.Called(id, active, data)
	return args.Error(0)
}

func (m *MockCarnivalRepository) AppendScoreBlock(params AppendScoreBlockParams) (ScoreBlock, error) {
	args := m.Called(params)
	return args.Get(0).(ScoreBlock), args.Error(1)
}

func (m *MockCarnivalRepository) CreatePagerMessage(officerId int, body string) (PagerMessage, error) {
	args := m.Called(officerId, body)
	return args.Get(0).(PagerMessage), args.Error(1)
}

func (m *MockCarnivalRepository) ListPagerMessages() ([]PagerMessage, error) {
	args := m.Called()
	return args.Get(0).([]PagerMessage), args.Error(1)
}
