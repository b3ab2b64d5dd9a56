package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const joinRequestColumns = "id, game_id, player_id, status, superseded_by, force_sent_by, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func scanJoinRequest(row scanner) (JoinRequest, error) {
	var (
		jr           JoinRequest
		supersededBy sql.NullInt64
		forceSentBy  sql.NullInt64
	)

	err := row.Scan(
		&jr.Id,
		&jr.GameId,
		&jr.PlayerId,
		&jr.Status,
		&supersededBy,
		&forceSentBy,
		&jr.CreatedAt,
	)
	if err != nil {
		return JoinRequest{}, err
	}

	jr.SupersededBy = intPtr(supersededBy)
	jr.ForceSentBy = intPtr(forceSentBy)
	return jr, nil
}

func scanPlayer(row scanner) (Player, error) {
	var (
		p         Player
		createdBy sql.NullInt64
	)

	err := row.Scan(
		&p.Id,
		&p.ExternalId,
		&p.Name,
		&p.Archived,
		&createdBy,
		&p.CreatedAt,
	)
	if err != nil {
		return Player{}, err
	}

	p.CreatedByOfficerId = intPtr(createdBy)
	return p, nil
}

func (db *PgCarnivalRepository) CreateGame(params CreateGameParams) (Game, error) {
	row := db.conn.QueryRow(
		"INSERT INTO games (name, token) VALUES ($1, $2) "+
			"RETURNING id, name, token, created_at",
		params.Name,
		params.Token,
	)

	var g Game
	err := row.Scan(&g.Id, &g.Name, &g.Token, &g.CreatedAt)
	return g, err
}

func (db *PgCarnivalRepository) GetGame(id int) (Game, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, token, created_at FROM games WHERE id = $1 LIMIT 1",
		id,
	)

	var g Game
	err := row.Scan(&g.Id, &g.Name, &g.Token, &g.CreatedAt)
	return g, err
}

func (db *PgCarnivalRepository) CreatePlayer(params CreatePlayerParams) (Player, error) {
	row := db.conn.QueryRow(
		"INSERT INTO players (external_id, name, created_by) VALUES ($1, $2, $3) "+
			"RETURNING id, external_id, name, archived, created_by, created_at",
		params.ExternalId,
		params.Name,
		nullInt(params.CreatedByOfficerId),
	)

	return scanPlayer(row)
}

func (db *PgCarnivalRepository) GetPlayer(id int) (Player, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, archived, created_by, created_at FROM players "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	return scanPlayer(row)
}

func (db *PgCarnivalRepository) GetPlayerByExternalId(externalId string) (Player, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, archived, created_by, created_at FROM players "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	return scanPlayer(row)
}

func (db *PgCarnivalRepository) ArchivePlayer(id int) error {
	res, err := db.conn.Exec("UPDATE players SET archived = TRUE WHERE id = $1", id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgCarnivalRepository) PlayerScore(playerId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COALESCE(SUM(score), 0) FROM score_blocks WHERE player_id = $1",
		playerId,
	)

	var score int
	err := row.Scan(&score)
	return score, err
}

func (db *PgCarnivalRepository) CreateOfficer(params CreateOfficerParams) (Officer, error) {
	row := db.conn.QueryRow(
		"INSERT INTO officers (name, password_hash, admin, created_by) VALUES ($1, $2, $3, $4) "+
			"RETURNING id, name, password_hash, admin, archived, created_at",
		params.Name,
		params.PasswordHash,
		params.Admin,
		nullInt(params.CreatedByOfficerId),
	)

	var o Officer
	err := row.Scan(&o.Id, &o.Name, &o.PasswordHash, &o.Admin, &o.Archived, &o.CreatedAt)
	o.CreatedByOfficerId = params.CreatedByOfficerId
	return o, err
}

func (db *PgCarnivalRepository) GetOfficerById(id int) (Officer, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, password_hash, admin, archived, created_at FROM officers "+
			"WHERE id = $1 AND archived = FALSE LIMIT 1",
		id,
	)

	var o Officer
	err := row.Scan(&o.Id, &o.Name, &o.PasswordHash, &o.Admin, &o.Archived, &o.CreatedAt)
	return o, err
}

func (db *PgCarnivalRepository) GetOfficerByName(name string) (Officer, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, password_hash, admin, archived, created_at FROM officers "+
			"WHERE name = $1 AND archived = FALSE LIMIT 1",
		name,
	)

	var o Officer
	err := row.Scan(&o.Id, &o.Name, &o.PasswordHash, &o.Admin, &o.Archived, &o.CreatedAt)
	return o, err
}

// CreateJoinRequest supersedes any existing pending request for the same
// (game, player) pair in the same transaction. The partial unique index on
// pending rows is the backstop against concurrent inserts racing past the
// row lock.
func (db *PgCarnivalRepository) CreateJoinRequest(params CreateJoinRequestParams) (JoinRequest, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return JoinRequest{}, err
	}
	defer tx.Rollback()

	var existingId sql.NullInt64
	err = tx.QueryRow(
		"SELECT id FROM join_requests WHERE game_id = $1 AND player_id = $2 AND status = 'pending' FOR UPDATE",
		params.GameId,
		params.PlayerId,
	).Scan(&existingId)
	if err != nil && err != sql.ErrNoRows {
		return JoinRequest{}, err
	}

	// flip the old row out of pending before inserting, so the unique
	// index never sees two pending rows for the pair
	if existingId.Valid {
		if _, err := tx.Exec(
			"UPDATE join_requests SET status = 'superseded' WHERE id = $1",
			existingId.Int64,
		); err != nil {
			return JoinRequest{}, err
		}
	}

	jr, err := scanJoinRequest(tx.QueryRow(
		"INSERT INTO join_requests (game_id, player_id, force_sent_by) VALUES ($1, $2, $3) "+
			"RETURNING "+joinRequestColumns,
		params.GameId,
		params.PlayerId,
		nullInt(params.ForceSentBy),
	))
	if err != nil {
		return JoinRequest{}, err
	}

	if existingId.Valid {
		if _, err := tx.Exec(
			"UPDATE join_requests SET superseded_by = $2 WHERE id = $1",
			existingId.Int64,
			jr.Id,
		); err != nil {
			return JoinRequest{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return JoinRequest{}, err
	}

	return jr, nil
}

func (db *PgCarnivalRepository) GetJoinRequest(id int) (JoinRequest, error) {
	return scanJoinRequest(db.conn.QueryRow(
		"SELECT "+joinRequestColumns+" FROM join_requests WHERE id = $1 LIMIT 1",
		id,
	))
}

func (db *PgCarnivalRepository) GetPendingJoinRequest(gameId, playerId int) (JoinRequest, error) {
	return scanJoinRequest(db.conn.QueryRow(
		"SELECT "+joinRequestColumns+" FROM join_requests "+
			"WHERE game_id = $1 AND player_id = $2 AND status = 'pending' LIMIT 1",
		gameId,
		playerId,
	))
}

func (db *PgCarnivalRepository) GetPendingJoinRequestForPlayer(playerId int) (JoinRequest, error) {
	return scanJoinRequest(db.conn.QueryRow(
		"SELECT "+joinRequestColumns+" FROM join_requests "+
			"WHERE player_id = $1 AND status = 'pending' "+
			"ORDER BY created_at DESC, id DESC LIMIT 1",
		playerId,
	))
}

func (db *PgCarnivalRepository) ListPendingJoinRequests(gameId int) ([]JoinRequest, error) {
	rows, err := db.conn.Query(
		"SELECT "+joinRequestColumns+" FROM join_requests "+
			"WHERE game_id = $1 AND status = 'pending' "+
			"ORDER BY created_at ASC, id ASC",
		gameId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []JoinRequest
	for rows.Next() {
		jr, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, jr)
	}

	return requests, rows.Err()
}

func (db *PgCarnivalRepository) AcknowledgeJoinRequests(gameId int, ids []int) (Session, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	var playerIds []int
	seen := make(map[int]struct{})
	for _, id := range ids {
		jr, err := scanJoinRequest(tx.QueryRow(
			"SELECT "+joinRequestColumns+" FROM join_requests "+
				"WHERE id = $1 AND game_id = $2 FOR UPDATE",
			id,
			gameId,
		))
		if err == sql.ErrNoRows {
			return Session{}, &JoinRequestNotFoundError{Id: id}
		}
		if err != nil {
			return Session{}, err
		}

		if jr.Status != JoinRequestPending {
			return Session{}, fmt.Errorf("join request %d: %w", id, ErrNotPending)
		}

		if _, ok := seen[jr.PlayerId]; !ok {
			seen[jr.PlayerId] = struct{}{}
			playerIds = append(playerIds, jr.PlayerId)
		}
	}

	session, err := createSessionTx(tx, gameId, playerIds)
	if err != nil {
		return Session{}, err
	}

	if _, err := tx.Exec(
		"UPDATE join_requests SET status = 'acknowledged' WHERE id = ANY($1)",
		pq.Array(ids),
	); err != nil {
		return Session{}, err
	}

	if err := tx.Commit(); err != nil {
		return Session{}, err
	}

	return session, nil
}

func (db *PgCarnivalRepository) TerminateJoinRequest(id int) (JoinRequest, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return JoinRequest{}, err
	}
	defer tx.Rollback()

	jr, err := scanJoinRequest(tx.QueryRow(
		"SELECT "+joinRequestColumns+" FROM join_requests WHERE id = $1 FOR UPDATE",
		id,
	))
	if err != nil {
		return JoinRequest{}, err
	}

	if jr.Status != JoinRequestPending {
		return JoinRequest{}, fmt.Errorf("join request %d: %w", id, ErrNotPending)
	}

	jr, err = scanJoinRequest(tx.QueryRow(
		"UPDATE join_requests SET status = 'terminated' WHERE id = $1 "+
			"RETURNING "+joinRequestColumns,
		id,
	))
	if err != nil {
		return JoinRequest{}, err
	}

	return jr, tx.Commit()
}

func createSessionTx(tx *sql.Tx, gameId int, playerIds []int) (Session, error) {
	var s Session
	err := tx.QueryRow(
		"INSERT INTO sessions (game_id, active) VALUES ($1, TRUE) "+
			"RETURNING id, game_id, active, data, created_at",
		gameId,
	).Scan(&s.Id, &s.GameId, &s.Active, &s.Data, &s.CreatedAt)
	if err != nil {
		return Session{}, err
	}

	for _, pid := range playerIds {
		if _, err := tx.Exec(
			"INSERT INTO session_players (session_id, player_id) VALUES ($1, $2)",
			s.Id,
			pid,
		); err != nil {
			return Session{}, err
		}
	}

	rows, err := tx.Query(
		"SELECT id, external_id, name, archived, created_by, created_at FROM players "+
			"WHERE id = ANY($1) ORDER BY id",
		pq.Array(playerIds),
	)
	if err != nil {
		return Session{}, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return Session{}, err
		}
		s.Players = append(s.Players, p)
	}

	return s, rows.Err()
}

func (db *PgCarnivalRepository) CreateSession(gameId int, playerIds []int) (Session, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	session, err := createSessionTx(tx, gameId, playerIds)
	if err != nil {
		return Session{}, err
	}

	return session, tx.Commit()
}

func (db *PgCarnivalRepository) GetActiveSession(gameId int) (Session, error) {
	var s Session
	err := db.conn.QueryRow(
		"SELECT id, game_id, active, data, created_at FROM sessions "+
			"WHERE game_id = $1 AND active = TRUE "+
			"ORDER BY created_at DESC LIMIT 1",
		gameId,
	).Scan(&s.Id, &s.GameId, &s.Active, &s.Data, &s.CreatedAt)
	if err != nil {
		return Session{}, err
	}

	rows, err := db.conn.Query(
		"SELECT p.id, p.external_id, p.name, p.archived, p.created_by, p.created_at "+
			"FROM players p JOIN session_players sp ON sp.player_id = p.id "+
			"WHERE sp.session_id = $1 ORDER BY p.id",
		s.Id,
	)
	if err != nil {
		return Session{}, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return Session{}, err
		}
		s.Players = append(s.Players, p)
	}

	return s, rows.Err()
}

func (db *PgCarnivalRepository) UpdateSessionState(id int, active bool, data string) error {
	res, err := db.conn.Exec(
		"UPDATE sessions SET active = $2, data = $3 WHERE id = $1",
		id,
		active,
		data,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgCarnivalRepository) AppendScoreBlock(params AppendScoreBlockParams) (ScoreBlock, error) {
	row := db.conn.QueryRow(
		"INSERT INTO score_blocks (session_id, player_id, score, data) VALUES ($1, $2, $3, $4) "+
			"RETURNING id, session_id, player_id, score, data, created_at",
		params.SessionId,
		params.PlayerId,
		params.Score,
		params.Data,
	)

	var sb ScoreBlock
	err := row.Scan(&sb.Id, &sb.SessionId, &sb.PlayerId, &sb.Score, &sb.Data, &sb.CreatedAt)
	return sb, err
}

func (db *PgCarnivalRepository) CreatePagerMessage(officerId int, body string) (PagerMessage, error) {
	row := db.conn.QueryRow(
		"WITH inserted AS ("+
			"INSERT INTO pager_messages (officer_id, body) VALUES ($1, $2) "+
			"RETURNING id, officer_id, body, created_at"+
			") SELECT i.id, i.officer_id, o.name, i.body, i.created_at "+
			"FROM inserted i JOIN officers o ON o.id = i.officer_id",
		officerId,
		body,
	)

	var m PagerMessage
	err := row.Scan(&m.Id, &m.OfficerId, &m.OfficerName, &m.Body, &m.CreatedAt)
	return m, err
}

func (db *PgCarnivalRepository) ListPagerMessages() ([]PagerMessage, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.officer_id, o.name, m.body, m.created_at " +
			"FROM pager_messages m JOIN officers o ON o.id = m.officer_id " +
			"ORDER BY m.created_at ASC, m.id ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []PagerMessage
	for rows.Next() {
		var m PagerMessage
		if err := rows.Scan(&m.Id, &m.OfficerId, &m.OfficerName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
