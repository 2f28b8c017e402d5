package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/toolmesh/core"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()

	dsn := "sqlite:" + filepath.Join(t.TempDir(), "checkpoints.db")
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, dsn
}

func TestStore_GetUnknownThread(t *testing.T) {
	s, _ := openTemp(t)

	cp, err := s.Get(context.Background(), core.ThreadConfig{ThreadID: "nope"})
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s, _ := openTemp(t)
	cfg := core.ThreadConfig{ThreadID: "thread-1"}

	in := &core.Checkpoint{
		Messages: []core.Content{
			core.NewTextContent(core.RoleSystem, "be helpful"),
			core.NewTextContent(core.RoleUser, "time?"),
			{Role: core.RoleAssistant, Parts: []core.Part{
				core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "current_time", Arguments: "{}"}},
			}},
			{Role: core.RoleTool, Parts: []core.Part{
				core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "current_time", Response: "12:00"}},
			}},
		},
		Knowledge: []string{"user is in Berlin"},
	}
	require.NoError(t, s.Put(context.Background(), cfg, in))

	got, err := s.Get(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "thread-1", got.ThreadID)
	assert.Equal(t, in.Messages, got.Messages)
	assert.Equal(t, in.Knowledge, got.Knowledge)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStore_UpsertAndSurviveReopen(t *testing.T) {
	s, dsn := openTemp(t)
	cfg := core.ThreadConfig{ThreadID: "t"}

	require.NoError(t, s.Put(context.Background(), cfg, &core.Checkpoint{Messages: []core.Content{core.NewTextContent(core.RoleUser, "one")}}))
	require.NoError(t, s.Put(context.Background(), cfg, &core.Checkpoint{Messages: []core.Content{
		core.NewTextContent(core.RoleUser, "one"),
		core.NewTextContent(core.RoleUser, "two"),
	}}))
	require.NoError(t, s.Close())

	reopened, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "two", got.Messages[1].Text())

	require.NoError(t, reopened.Delete(context.Background(), cfg))
	got, err = reopened.Get(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ConcurrentThreads(t *testing.T) {
	s, _ := openTemp(t)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, s.Put(context.Background(), core.ThreadConfig{ThreadID: id}, &core.Checkpoint{}))
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		cp, err := s.Get(context.Background(), core.ThreadConfig{ThreadID: id})
		require.NoError(t, err)
		assert.Equal(t, id, cp.ThreadID)
	}
}

func TestParseDSN(t *testing.T) {
	cases := []struct {
		in      string
		driver  string
		conn    string
		dialect dialect
	}{
		{"sqlite:./data.db", "sqlite", "./data.db", dialectSQLite},
		{"sqlite://tmp/data.db", "sqlite", "tmp/data.db", dialectSQLite},
		{"SQLITE:file:x.db?_pragma=busy_timeout(5000)", "sqlite", "file:x.db?_pragma=busy_timeout(5000)", dialectSQLite},
		{"postgres://u:p@localhost:5432/db", "pgx", "postgres://u:p@localhost:5432/db", dialectPostgres},
		{"postgresql://localhost/db", "pgx", "postgresql://localhost/db", dialectPostgres},
		{"host=localhost user=u dbname=db", "pgx", "host=localhost user=u dbname=db", dialectPostgres},
	}

	for _, tc := range cases {
		driver, conn, d, err := parseDSN(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.driver, driver, tc.in)
		assert.Equal(t, tc.conn, conn, tc.in)
		assert.Equal(t, tc.dialect, d, tc.in)
	}

	for _, bad := range []string{"", "  ", "sqlite:", "mysql://localhost/db"} {
		_, _, _, err := parseDSN(bad)
		assert.Error(t, err, bad)
	}
}

func TestBind(t *testing.T) {
	assert.Equal(t, "SELECT ?1, ?2", (&Store{dialect: dialectSQLite}).bind("SELECT $1, $2"))
	assert.Equal(t, "SELECT $1", (&Store{dialect: dialectPostgres}).bind("SELECT $1"))
}
