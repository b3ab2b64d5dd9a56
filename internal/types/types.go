package types

import (
	"time"
)

type Game struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Player struct {
	Id         int       `json:"id"`
	ExternalId string    `json:"external_id"`
	Name       string    `json:"name"`
	Archived   bool      `json:"archived,omitempty"`
	Score      int       `json:"score,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

type Officer struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type JoinRequest struct {
	Id          int       `json:"id"`
	GameId      int       `json:"game_id"`
	PlayerId    int       `json:"player_id"`
	Status      string    `json:"status"`
	ForceSentBy *int      `json:"force_sent_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Session struct {
	Id        int       `json:"id"`
	GameId    int       `json:"game_id"`
	Active    bool      `json:"active"`
	Data      string    `json:"data"`
	Players   []Player  `json:"players"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type ScoreBlock struct {
	Id        int       `json:"id"`
	SessionId int       `json:"session_id"`
	PlayerId  int       `json:"player_id"`
	Score     int       `json:"score"`
	Data      string    `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type PagerMessage struct {
	Id          int       `json:"id"`
	OfficerId   int       `json:"officer_id"`
	OfficerName string    `json:"officer_name"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}
