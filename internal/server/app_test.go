package server

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/authapi"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = ""
	c.HTTPAddr = "127.0.0.1:0"
	c.ShutdownTimeout = time.Second
	return c
}

func silence(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := logOutput
	logOutput = &buf
	t.Cleanup(func() { logOutput = orig })
	return &buf
}

func TestNewApp_InMemoryServesAPI(t *testing.T) {
	logs := silence(t)

	app, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Nil(t, app.db)
	assert.Contains(t, logs.String(), "in-memory storage")

	srv := httptest.NewServer(app.handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+authapi.PathRegister, "application/json",
		strings.NewReader(`{"username":"alice","email":"alice@x.com","password":"pw1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, app.Migrate(context.Background()))
}

func TestNewApp_OpenError(t *testing.T) {
	silence(t)
	orig := openDB
	openDB = func(string) (*sql.DB, error) { return nil, errors.New("bad dsn") }
	defer func() { openDB = orig }()

	c := testConfig()
	c.DatabaseDSN = "postgres://x"
	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "db init error")
}

func TestNewApp_PingError(t *testing.T) {
	silence(t)
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	orig := openDB
	openDB = func(string) (*sql.DB, error) { return db, nil }
	defer func() { openDB = orig }()

	c := testConfig()
	c.DatabaseDSN = "postgres://x"
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "db ping error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StopsOnCancel(t *testing.T) {
	logs := silence(t)

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectClose()

	orig := openDB
	openDB = func(string) (*sql.DB, error) { return db, nil }
	defer func() { openDB = orig }()

	c := testConfig()
	c.DatabaseDSN = "postgres://x"
	c.MigrateOnStart = false

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, logs.String(), "stopping HTTP server")
}

func TestRun_ListenError(t *testing.T) {
	silence(t)
	c := testConfig()
	c.HTTPAddr = "256.0.0.1:bad"

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	err = app.Run(context.Background())
	assert.Error(t, err)
}
