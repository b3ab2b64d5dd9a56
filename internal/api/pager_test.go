package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carnival-games/carnival/internal/database"
	"github.com/carnival-games/carnival/internal/types"
)

func TestSendPage(t *testing.T) {
	db := database.NewMemCarnivalRepository()
	app, mux := newTestApp(t, db)
	officer, cookie := seedOfficer(t, app, db, "marge", false)

	t.Run("requires body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/pager", strings.NewReader(`{"body":""}`))
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("persists and publishes", func(t *testing.T) {
		received := make(chan database.PagerMessage, 1)
		subId := app.pager.Subscribe(func(msg database.PagerMessage) {
			received <- msg
		})
		defer app.pager.Unsubscribe(subId)

		body := strings.NewReader(`{"body":"all hands to the ring toss"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/pager", body)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		resp := decodeBody[types.PagerMessage](t, rr)
		assert.Equal(t, "all hands to the ring toss", resp.Body)
		assert.Equal(t, officer.Id, resp.OfficerId)
		assert.Equal(t, "marge", resp.OfficerName)

		select {
		case msg := <-received:
			assert.Equal(t, resp.Id, msg.Id, "expected the persisted message on the bus")
		case <-time.After(time.Second):
			t.Fatal("expected a bus message")
		}

		messages, err := db.ListPagerMessages()
		require.NoError(t, err)
		require.Len(t, messages, 1)
	})

	t.Run("truncates long bodies", func(t *testing.T) {
		long := strings.Repeat("x", maxPageLength+40)
		body := strings.NewReader(fmt.Sprintf(`{"body":%q}`, long))
		req := httptest.NewRequest(http.MethodPost, "/api/pager", body)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		resp := decodeBody[types.PagerMessage](t, rr)
		assert.Len(t, resp.Body, maxPageLength)
	})

	t.Run("truncates multi-byte bodies on rune boundaries", func(t *testing.T) {
		long := strings.Repeat("€", maxPageLength+40)
		body := strings.NewReader(fmt.Sprintf(`{"body":%q}`, long))
		req := httptest.NewRequest(http.MethodPost, "/api/pager", body)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		resp := decodeBody[types.PagerMessage](t, rr)
		assert.Equal(t, maxPageLength, utf8.RuneCountInString(resp.Body))
		assert.True(t, utf8.ValidString(resp.Body), "expected truncation to keep the body valid UTF-8")
	})
}

func TestListPages(t *testing.T) {
	db := database.NewMemCarnivalRepository()
	app, mux := newTestApp(t, db)
	officer, cookie := seedOfficer(t, app, db, "marge", false)

	_, err := db.CreatePagerMessage(officer.Id, "first")
	require.NoError(t, err)
	_, err = db.CreatePagerMessage(officer.Id, "second")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/pager", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[PagerMessagesResponse](t, rr)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "first", resp.Messages[0].Body)
	assert.Equal(t, "marge", resp.Messages[0].OfficerName)
}

func TestPagerWs(t *testing.T) {
	db := database.NewMemCarnivalRepository()
	app, mux := newTestApp(t, db)
	_, cookie := seedOfficer(t, app, db, "marge", false)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsUrl := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/pager/ws"
	header := http.Header{}
	header.Add("Cookie", cookie.String())

	conn, resp, err := websocket.DefaultDialer.Dial(wsUrl, header)
	require.NoError(t, err, "expected websocket dial to succeed")
	defer conn.Close()
	defer resp.Body.Close()

	// wait for the connection's bus subscription before paging
	require.Eventually(t, func() bool {
		return app.pager.Len() > 0
	}, time.Second, 10*time.Millisecond, "expected a pager subscription")

	msg, err := db.CreatePagerMessage(1, "report to the midway")
	require.NoError(t, err)
	app.pager.Emit(msg)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got types.PagerMessage
	require.NoError(t, conn.ReadJSON(&got), "expected a pager frame")
	assert.Equal(t, "report to the midway", got.Body)
	assert.Equal(t, msg.Id, got.Id)
}

func TestPagerWsRequiresAuth(t *testing.T) {
	db := database.NewMemCarnivalRepository()
	_, mux := newTestApp(t, db)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsUrl := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/pager/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	require.Error(t, err, "expected dial to fail without a cookie")
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
