package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbxlabs/mirador/internal/feed"
	"github.com/bbxlabs/mirador/internal/ingest"
	"github.com/bbxlabs/mirador/internal/model"
)

func itemFor(url string) model.IngestedItem {
	return model.IngestedItem{ID: "i1", CampaignID: "c1", Title: "Nota", URL: url, Status: model.StatusPending}
}

// abortConn models the Postgres session shared by a transaction and its
// savepoints: after any failed statement the session rejects everything
// with SQLSTATE 25P02 until the enclosing savepoint is rolled back.
type abortConn struct {
	aborted    bool
	failURL    string
	inserted   []string
	committed  bool
	rolledBack bool
}

var errTxAborted = errors.New("current transaction is aborted, commands ignored until end of transaction block (SQLSTATE 25P02)")

type abortTx struct {
	conn  *abortConn
	outer bool
}

func (t *abortTx) Begin(context.Context) (pgx.Tx, error) {
	if t.conn.aborted {
		return nil, errTxAborted
	}
	return &abortTx{conn: t.conn}, nil
}

func (t *abortTx) Commit(context.Context) error {
	if t.conn.aborted {
		return errTxAborted
	}
	if t.outer {
		t.conn.committed = true
	}
	return nil
}

func (t *abortTx) Rollback(context.Context) error {
	if t.outer {
		t.conn.rolledBack = true
		return nil
	}
	// ROLLBACK TO SAVEPOINT restores the session to a usable state.
	t.conn.aborted = false
	return nil
}

func (t *abortTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.conn.aborted {
		return pgconn.CommandTag{}, errTxAborted
	}
	if strings.Contains(sql, "INSERT INTO ingested_items") {
		url := args[3].(string)
		if url == t.conn.failURL {
			t.conn.aborted = true
			return pgconn.CommandTag{}, errors.New("value too long for type character varying")
		}
		t.conn.inserted = append(t.conn.inserted, url)
	}
	return pgconn.CommandTag{}, nil
}

func (t *abortTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if t.conn.aborted {
		return abortRow{err: errTxAborted}
	}
	return abortRow{}
}

func (t *abortTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (t *abortTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}

func (t *abortTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *abortTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *abortTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}
func (t *abortTx) Conn() *pgx.Conn { return nil }

type abortRow struct {
	err    error
	exists bool
}

func (r abortRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.exists
	return nil
}

type stubBatchStore struct {
	batch ingest.Batch
}

func (s stubBatchStore) Begin(context.Context) (ingest.Batch, error) { return s.batch, nil }

// A failed insert must abort only its own savepoint: the statements after
// it still execute, the commit still lands, and the rows inserted before
// and after the bad one survive.
func TestInsertBatchSurvivesFailedStatement(t *testing.T) {
	conn := &abortConn{failURL: "https://example.com/bad"}
	gate := ingest.NewGate(stubBatchStore{batch: &insertBatch{tx: &abortTx{conn: conn, outer: true}}})

	sum, err := gate.Ingest(context.Background(), "c1", []feed.Candidate{
		{Title: "Primera", URL: "https://example.com/1"},
		{Title: "Mala", URL: "https://example.com/bad"},
		{Title: "Segunda", URL: "https://example.com/2"},
	})

	require.NoError(t, err)
	assert.Equal(t, ingest.Summary{Inserted: 2, Failed: 1}, sum)
	assert.True(t, conn.committed, "the batch must commit despite the bad row")
	assert.False(t, conn.rolledBack)
	assert.Equal(t, []string{"https://example.com/1", "https://example.com/2"}, conn.inserted)
}

func TestInsertBatchFindExistingAfterFailure(t *testing.T) {
	conn := &abortConn{failURL: "https://example.com/bad"}
	batch := &insertBatch{tx: &abortTx{conn: conn, outer: true}}

	err := batch.InsertItem(context.Background(), itemFor("https://example.com/bad"))
	require.Error(t, err)

	// The session must be usable again right after the savepoint rollback.
	exists, err := batch.FindExisting(context.Background(), "c1", "https://example.com/2")
	require.NoError(t, err)
	assert.False(t, exists)
}
