package cognitive

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_CreateActivity(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := echo.New()
	body := `{"title":"Pairs","type":"memory","difficulty":"EASY","max_score":20,"content":{"cards":8}}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	require.NoError(t, h.CreateActivity(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "MEMORY", out["type"])
	assert.Equal(t, true, out["is_active"])
	assert.Equal(t, map[string]interface{}{"cards": 8.0}, out["content"])
}

func TestHandler_CreateActivity_BadEnum(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := echo.New()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"title":"x","type":"PUZZLE","difficulty":"EASY"}`), httptest.NewRecorder())

	assert.Equal(t, http.StatusBadRequest, httpStatus(h.CreateActivity(c)))
}

func TestHandler_SessionLifecycle(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := echo.New()
	a := env.activity(t, "Pairs", "MEMORY", "EASY", 20)
	pid := uuid.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"patient_id":"`+pid.String()+`"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	require.NoError(t, h.Start(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	var started Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, SessionInProgress, started.Status)
	assert.Equal(t, pid, started.PatientID)

	complete := func() (*httptest.ResponseRecorder, error) {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPut, `{"score":17,"time_spent_seconds":64}`), rec)
		c.SetParamNames("id")
		c.SetParamValues(started.ID.String())
		return rec, h.Complete(c)
	}

	rec, err := complete()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	var done Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.Equal(t, SessionCompleted, done.Status)
	require.NotNil(t, done.Score)
	assert.Equal(t, 17, *done.Score)

	_, err = complete()
	assert.Equal(t, http.StatusConflict, httpStatus(err))
}

func TestHandler_Start_InvalidID(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	c := echo.New().NewContext(jsonRequest(http.MethodPost, `{}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	assert.Equal(t, http.StatusBadRequest, httpStatus(h.Start(c)))
}

func TestHandler_Search_RequiresKeyword(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/search", nil), httptest.NewRecorder())

	assert.Equal(t, http.StatusBadRequest, httpStatus(h.Search(c)))
}

func TestHandler_History_FiltersByStatus(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := echo.New()
	pid := uuid.New()
	a := env.activity(t, "Pairs", "MEMORY", "EASY", 20)
	play(t, env, a, pid, intPtr(12))
	play(t, env, a, pid, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=completed", nil), rec)
	c.SetParamNames("patient_id")
	c.SetParamValues(pid.String())
	require.NoError(t, h.History(c))

	var out []Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, SessionCompleted, out[0].Status)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=PAUSED", nil), httptest.NewRecorder())
	c.SetParamNames("patient_id")
	c.SetParamValues(pid.String())
	assert.Equal(t, http.StatusBadRequest, httpStatus(h.History(c)))
}
