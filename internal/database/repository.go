package database

type CarnivalRepository interface {
	Ping() error

	CreateGame(params CreateGameParams) (Game, error)
	GetGame(id int) (Game, error)

	CreatePlayer(params CreatePlayerParams) (Player, error)
	GetPlayer(id int) (Player, error)
	GetPlayerByExternalId(externalId string) (Player, error)
	ArchivePlayer(id int) error
	PlayerScore(playerId int) (int, error)

	CreateOfficer(params CreateOfficerParams) (Officer, error)
	GetOfficerById(id int) (Officer, error)
	GetOfficerByName(name string) (Officer, error)

	// CreateJoinRequest inserts a pending join request. When the player
	// already has a pending request for the game, that row is linked to
	// the new one (status superseded, superseded_by set) in the same
	// transaction, so two pending rows for one (game, player) pair are
	// never observable.
	CreateJoinRequest(params CreateJoinRequestParams) (JoinRequest, error)
	GetJoinRequest(id int) (JoinRequest, error)
	GetPendingJoinRequest(gameId, playerId int) (JoinRequest, error)
	GetPendingJoinRequestForPlayer(playerId int) (JoinRequest, error)
	ListPendingJoinRequests(gameId int) ([]JoinRequest, error)

	// AcknowledgeJoinRequests is all-or-nothing: every id must be a
	// pending request of the game, otherwise no row transitions and no
	// session is created.
	AcknowledgeJoinRequests(gameId int, ids []int) (Session, error)
	TerminateJoinRequest(id int) (JoinRequest, error)

	CreateSession(gameId int, playerIds []int) (Session, error)
	GetActiveSession(gameId int) (Session, error)
	UpdateSessionState(id int, active bool, data string) error
	AppendScoreBlock(params AppendScoreBlockParams) (ScoreBlock, error)

	CreatePagerMessage(officerId int, body string) (PagerMessage, error)
	ListPagerMessages() ([]PagerMessage, error)
}
