package api

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdb/domain/student"
	"studentdb/errors"
	httpx "studentdb/http"
	hbasic "studentdb/http/basic"
	"studentdb/logging"
	"studentdb/store"
	"studentdb/store/snapshot"
)

const aliceJSON = `{"name":"Alice","email":"a@x.com","age":20,"Roll_number":1,"course":"CS"}`

type testServer struct {
	handler http.Handler
	mirror  *snapshot.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mirror := snapshot.NewMemoryStore()
	s, err := store.Open(context.Background(), mirror, store.Options{Logger: logging.NewNoopLogger()})
	require.NoError(t, err)

	srv := hbasic.NewHTTPServer(httpx.DefaultWebConfig())
	srv.Use(hbasic.RequestID(), hbasic.AccessLog(logging.NewNoopLogger()))
	require.NoError(t, NewStudentRouter(s).Register(srv))
	return &testServer{handler: srv.Handler(), mirror: mirror}
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRoot(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Student Management API with Dictionary Storage"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(httpx.HeaderRequestID))
}

func TestCreateGetListDelete(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/students/", aliceJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":1,"name":"Alice","email":"a@x.com","age":20,"Roll_number":1,"course":"CS"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/students/", aliceJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(2), decodeJSON[student.Entry](t, rec).ID)

	rec = ts.do(http.MethodGet, "/students/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeJSON[map[string]student.Student](t, rec)
	assert.Len(t, all, 2)
	assert.Equal(t, "Alice", all["1"].Name)

	rec = ts.do(http.MethodGet, "/students/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decodeJSON[student.Entry](t, rec).ID)

	rec = ts.do(http.MethodDelete, "/students/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	del := decodeJSON[DeleteResponse](t, rec)
	assert.Equal(t, DeleteMessage, del.Message)
	assert.Equal(t, "Alice", del.DeletedStudent.Name)

	rec = ts.do(http.MethodGet, "/students/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Student not found", decodeJSON[httpx.ErrorPayload](t, rec).Detail)

	rec = ts.do(http.MethodGet, "/storage", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"students_db":{"2":{"name":"Alice","email":"a@x.com","age":20,"Roll_number":1,"course":"CS"}},"total_students":1,"next_id":3}`, rec.Body.String())
}

func TestUpdate(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/students/", aliceJSON).Code)

	body := `{"name":"Bob","email":"b@x.com","age":21,"Roll_number":2,"course":"Math"}`
	rec := ts.do(http.MethodPut, "/students/1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"Bob","email":"b@x.com","age":21,"Roll_number":2,"course":"Math"}`, rec.Body.String())

	rec = ts.do(http.MethodPut, "/students/9", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFoundForAbsentIDs(t *testing.T) {
	ts := newTestServer(t)
	for _, id := range []string{"0", "-1", "42"} {
		assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/students/"+id, "").Code, id)
		assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/students/"+id, "").Code, id)
	}
	assert.Equal(t, 0, ts.mirror.Saves())
}

func TestValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/students/", `{"name":"Alice","age":"twenty"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	payload := decodeJSON[map[string]any](t, rec)
	assert.Equal(t, string(errors.ErrCodeValidation), payload["code"])
	assert.NotEmpty(t, payload["fields"])

	rec = ts.do(http.MethodPost, "/students/", `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(http.MethodGet, "/students/abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// 校验失败不会分配 ID
	assert.Equal(t, 0, ts.mirror.Saves())
	rec = ts.do(http.MethodPost, "/students/", aliceJSON)
	assert.Equal(t, int64(1), decodeJSON[student.Entry](t, rec).ID)
}

func TestPersistenceFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.mirror.FailSaves(stdErrors.New("disk full"))

	rec := ts.do(http.MethodPost, "/students/", aliceJSON)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(errors.ErrCodeStorage), decodeJSON[httpx.ErrorPayload](t, rec).Code)
}

type rejectingValidator struct{}

func (rejectingValidator) Validate(v any) error {
	if s, ok := v.(student.Student); ok && s.Age < 0 {
		return stdErrors.New("age must not be negative")
	}
	return nil
}

func TestCustomValidator(t *testing.T) {
	s, err := store.Open(context.Background(), snapshot.NewMemoryStore(), store.Options{Logger: logging.NewNoopLogger()})
	require.NoError(t, err)

	cfg := DefaultRouteConfig()
	cfg.Validator = rejectingValidator{}
	srv := hbasic.NewHTTPServer(httpx.DefaultWebConfig())
	require.NoError(t, NewStudentRouter(s).WithConfig(cfg).Register(srv))

	body := `{"name":"A","email":"a","age":-1,"Roll_number":1,"course":"c"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/students/", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRegisterRequiresStore(t *testing.T) {
	err := NewStudentRouter(nil).Register(hbasic.NewHTTPServer(httpx.DefaultWebConfig()))
	assert.Error(t, err)
}
