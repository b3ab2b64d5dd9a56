package database

import "time"

// JoinRequestStatus is the state of a join request. A row is created
// pending and ends in exactly one of the three terminal states: superseded
// (a newer request from the same player replaced it), acknowledged (it was
// consumed into a session) or terminated (it was cancelled). Rows are never
// deleted.
type JoinRequestStatus string

const (
	JoinRequestPending      JoinRequestStatus = "pending"
	JoinRequestSuperseded   JoinRequestStatus = "superseded"
	JoinRequestAcknowledged JoinRequestStatus = "acknowledged"
	JoinRequestTerminated   JoinRequestStatus = "terminated"
)

type Game struct {
	Id        int
	Name      string
	Token     string
	CreatedAt time.Time
}

type Player struct {
	Id                 int
	ExternalId         string
	Name               string
	Archived           bool
	CreatedByOfficerId *int
	CreatedAt          time.Time
}

type Officer struct {
	Id                 int
	Name               string
	PasswordHash       string
	Admin              bool
	Archived           bool
	CreatedByOfficerId *int
	CreatedAt          time.Time
}

type JoinRequest struct {
	Id           int
	GameId       int
	PlayerId     int
	Status       JoinRequestStatus
	SupersededBy *int
	ForceSentBy  *int
	CreatedAt    time.Time
}

type Session struct {
	Id        int
	GameId    int
	Active    bool
	Data      string
	Players   []Player
	CreatedAt time.Time
}

type ScoreBlock struct {
	Id        int
	SessionId int
	PlayerId  int
	Score     int
	Data      string
	CreatedAt time.Time
}

type PagerMessage struct {
	Id          int
	OfficerId   int
	OfficerName string
	Body        string
	CreatedAt   time.Time
}

type CreateGameParams struct {
	Name  string
	Token string
}

type CreatePlayerParams struct {
	Name               string
	ExternalId         string
	CreatedByOfficerId *int
}

type CreateOfficerParams struct {
	Name               string
	PasswordHash       string
	Admin              bool
	CreatedByOfficerId *int
}

type CreateJoinRequestParams struct {
	GameId      int
	PlayerId    int
	ForceSentBy *int
}

type AppendScoreBlockParams struct {
	SessionId int
	PlayerId  int
	Score     int
	Data      string
}
