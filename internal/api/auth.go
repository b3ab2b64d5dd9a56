package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/carnival-games/carnival/internal/database"
	"github.com/carnival-games/carnival/internal/types"
)

var (
	defaultExp     = time.Hour * 24
	tokenCookieKey = "token"
)

const (
	officerIdClaim = "officer-id"
	expClaim       = "exp"
)

type contextKey string

const officerIdKey contextKey = "officer-id"

func WithOfficerId(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, officerIdKey, id)
}

func OfficerId(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(officerIdKey).(int)
	return id, ok
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type CreateOfficerRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Admin    bool   `json:"admin"`
}

func (s *CarnivalApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Name == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	officer, err := s.db.GetOfficerByName(lr.Name)
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

	if !verifyPassword(officer.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForOfficer(officer, defaultExp)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultExp))

	s.writeJson(w, http.StatusOK, types.Officer{
		Id:        officer.Id,
		Name:      officer.Name,
		Admin:     officer.Admin,
		CreatedAt: officer.CreatedAt,
	})
}

func (s *CarnivalApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *CarnivalApp) session(w http.ResponseWriter, r *http.Request) {
	officer, ok := s.currentOfficer(w, r)
	if !ok {
		return
	}

	s.writeJson(w, http.StatusOK, types.Officer{
		Id:        officer.Id,
		Name:      officer.Name,
		Admin:     officer.Admin,
		CreatedAt: officer.CreatedAt,
	})
}

func (s *CarnivalApp) createOfficer(w http.ResponseWriter, r *http.Request) {
	officer, ok := s.currentOfficer(w, r)
	if !ok {
		return
	}

	if !officer.Admin {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateOfficerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newOfficer, err := s.db.CreateOfficer(database.CreateOfficerParams{
		Name:               req.Name,
		PasswordHash:       pwdHash,
		Admin:              req.Admin,
		CreatedByOfficerId: &officer.Id,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Officer{
		Id:        newOfficer.Id,
		Name:      newOfficer.Name,
		Admin:     newOfficer.Admin,
		CreatedAt: newOfficer.CreatedAt,
	})
}

// currentOfficer resolves the authenticated officer from the request
// context, writing the error response itself when that fails.
func (s *CarnivalApp) currentOfficer(w http.ResponseWriter, r *http.Request) (database.Officer, bool) {
	id, ok := OfficerId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Officer{}, false
	}

	officer, err := s.db.GetOfficerById(id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return database.Officer{}, false
	}

	return officer, true
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}

func (s *CarnivalApp) createJwtForOfficer(officer database.Officer, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		officerIdClaim: officer.Id,
		expClaim:       time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *CarnivalApp) extractOfficerIdFromToken(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	officerId, ok := claims[officerIdClaim].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid officer id claim")
	}

	return int(officerId), nil
}
