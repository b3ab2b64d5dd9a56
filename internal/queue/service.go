package queue

import (
	"log"

	"github.com/carnival-games/carnival/internal/database"
	"github.com/carnival-games/carnival/internal/event"
)

// Service drives the join-request state machine and publishes every new
// request on the bus so live queue streams pick it up. The bus carries
// requests for all games; filtering by game happens at the listener.
type Service struct {
	log *log.Logger
	db  database.CarnivalRepository
	bus *event.Bus[database.JoinRequest]
}

func NewService(logger *log.Logger, db database.CarnivalRepository, bus *event.Bus[database.JoinRequest]) *Service {
	return &Service{
		log: logger,
		db:  db,
		bus: bus,
	}
}

// Create queues a join request for the player. An existing pending request
// for the same (game, player) pair is superseded atomically by the
// repository; the new row is published on the bus after it is persisted.
// forceSentBy is the id of the officer force-enqueuing the player, or nil
// for a self-service join.
func (s *Service) Create(gameId, playerId int, forceSentBy *int) (database.JoinRequest, error) {
	jr, err := s.db.CreateJoinRequest(database.CreateJoinRequestParams{
		GameId:      gameId,
		PlayerId:    playerId,
		ForceSentBy: forceSentBy,
	})
	if err != nil {
		return database.JoinRequest{}, err
	}

	s.bus.Emit(jr)
	return jr, nil
}

// Acknowledge consumes the pending requests into a new active session.
// All-or-nothing: if any id is unknown or not pending, no request
// transitions and no session is created.
func (s *Service) Acknowledge(gameId int, ids []int) (database.Session, error) {
	return s.db.AcknowledgeJoinRequests(gameId, ids)
}

// Terminate cancels a pending request without acknowledging it.
func (s *Service) Terminate(id int) (database.JoinRequest, error) {
	return s.db.TerminateJoinRequest(id)
}

// CancelForPlayer terminates the player's current pending request,
// whichever game it is queued for.
func (s *Service) CancelForPlayer(playerId int) (database.JoinRequest, error) {
	jr, err := s.db.GetPendingJoinRequestForPlayer(playerId)
	if err != nil {
		return database.JoinRequest{}, err
	}

	return s.db.TerminateJoinRequest(jr.Id)
}

// Pending returns the game's queue in FIFO order by creation time.
func (s *Service) Pending(gameId int) ([]database.JoinRequest, error) {
	return s.db.ListPendingJoinRequests(gameId)
}

// Subscribe registers a listener for newly created join requests across
// all games. The listener must not block; streaming consumers should only
// enqueue into a per-connection buffer.
func (s *Service) Subscribe(fn func(database.JoinRequest)) int {
	return s.bus.Subscribe(fn)
}

func (s *Service) Unsubscribe(id int) {
	s.bus.Unsubscribe(id)
}

// Publish re-announces an existing join request on the bus, for example
// after a scanner asks for a queue refresh.
func (s *Service) Publish(jr database.JoinRequest) {
	s.bus.Emit(jr)
}

// Len reports the number of active listeners.
func (s *Service) Len() int {
	return s.bus.Len()
}
