// Package writer drains the event queue and batches rows into two
// Postgres tables via pgx, one batch per protocol, flushed on size or on a
// timer. The writer owns a single lazily-opened connection, discarded and
// reopened after any error. A batch whose connect fails stays in memory for
// the next flush; a batch whose INSERT fails is dropped.
package writer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/yurei-io/geyser-ingestor/internal/codec"
	"github.com/yurei-io/geyser-ingestor/internal/event"
	"github.com/yurei-io/geyser-ingestor/internal/metrics"
	"github.com/yurei-io/geyser-ingestor/internal/queue"
)

const (
	// BatchSize is the per-protocol flush threshold.
	BatchSize = 100
	// FlushInterval bounds visibility latency during low-volume periods.
	FlushInterval = 50 * time.Millisecond
	// emptyPollSleep backs off the writer's poll loop against a busy-wait
	// when the queue has nothing ready.
	emptyPollSleep = 1 * time.Millisecond
)

// dbConn is the subset of *pgx.Conn the writer actually uses, so tests can
// substitute a fake without a live Postgres.
type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close(ctx context.Context) error
	IsClosed() bool
}

// pumpfunRow and raydiumRow pair a decoded event with the signature its carrier
// transaction attached (event.PumpfunTrade/RaydiumSwap don't hold it, since the
// signature belongs to the enclosing Event, not the protocol payload).
type pumpfunRow struct {
	trade     event.PumpfunTrade
	signature string
}

type raydiumRow struct {
	swap      event.RaydiumSwap
	signature string
}

// Writer owns the lazy DB connection and the two per-protocol batches.
type Writer struct {
	dbURL   string
	q       *queue.Queue[event.Event]
	metrics *metrics.Metrics
	logger  zerolog.Logger

	conn dbConn

	pumpfunBatch []pumpfunRow
	raydiumBatch []raydiumRow

	lastFlush time.Time
}

// New builds a Writer. The connection is not opened until the first flush.
func New(dbURL string, q *queue.Queue[event.Event], m *metrics.Metrics, logger zerolog.Logger) *Writer {
	return &Writer{
		dbURL:        dbURL,
		q:            q,
		metrics:      m,
		logger:       logger,
		pumpfunBatch: make([]pumpfunRow, 0, BatchSize),
		raydiumBatch: make([]raydiumRow, 0, BatchSize),
		lastFlush:    time.Now(),
	}
}

// Run executes the main loop until the queue closes or ctx is cancelled,
// then performs the final drain and closes the connection before
// returning.
func (w *Writer) Run(ctx context.Context) error {
	w.lastFlush = time.Now()

	for ctx.Err() == nil {
		ev, result := w.q.Pop(false)
		switch result {
		case queue.PopOK:
			w.ingest(ctx, ev)
		case queue.PopClosed:
			w.finalDrain()
			return nil
		case queue.PopEmpty:
			time.Sleep(emptyPollSleep)
		}

		if time.Since(w.lastFlush) >= FlushInterval {
			w.flushAll(ctx)
			w.lastFlush = time.Now()
		}
	}

	w.finalDrain()
	return nil
}

func (w *Writer) ingest(ctx context.Context, ev event.Event) {
	w.metrics.IncEventsTotal()
	switch ev.Kind {
	case event.KindPumpfunTrade:
		w.pumpfunBatch = append(w.pumpfunBatch, pumpfunRow{trade: ev.Pumpfun, signature: ev.Signature})
		if len(w.pumpfunBatch) >= BatchSize {
			w.flushPumpfun(ctx)
		}
	case event.KindRaydiumSwap:
		w.raydiumBatch = append(w.raydiumBatch, raydiumRow{swap: ev.Raydium, signature: ev.Signature})
		if len(w.raydiumBatch) >= BatchSize {
			w.flushRaydium(ctx)
		}
	}
}

// finalDrain flushes both batches once more before the writer stops. It
// runs on a fresh context so a cancelled run context can't abort the last
// flush mid-INSERT.
func (w *Writer) finalDrain() {
	ctx := context.Background()
	w.flushAll(ctx)
	if w.conn != nil {
		_ = w.conn.Close(ctx)
		w.conn = nil
	}
}

func (w *Writer) flushAll(ctx context.Context) {
	w.flushPumpfun(ctx)
	w.flushRaydium(ctx)
}

// ensureConn lazily (re)opens the database connection, incrementing the
// reconnect counter on success.
func (w *Writer) ensureConn(ctx context.Context) error {
	if w.conn != nil && !w.conn.IsClosed() {
		return nil
	}
	conn, err := pgx.Connect(ctx, w.dbURL)
	if err != nil {
		return fmt.Errorf("writer: connect: %w", err)
	}
	w.conn = conn
	w.metrics.IncDBReconnects()
	w.logger.Info().Msg("database connection (re)established")
	return nil
}

// flushPumpfun issues one multi-row INSERT for the pending Pump.fun batch.
// An empty batch is a no-op success.
func (w *Writer) flushPumpfun(ctx context.Context) {
	if len(w.pumpfunBatch) == 0 {
		return
	}
	if err := w.ensureConn(ctx); err != nil {
		w.logger.Error().Err(err).Msg("db connect failed, retaining pumpfun batch")
		return
	}

	stmt, rowCount := buildPumpfunInsert(w.pumpfunBatch)
	if rowCount == 0 {
		w.pumpfunBatch = w.pumpfunBatch[:0]
		return
	}
	w.execBatch(ctx, stmt, rowCount, &w.pumpfunBatch)
}

// flushRaydium issues one multi-row INSERT for the pending Raydium batch.
func (w *Writer) flushRaydium(ctx context.Context) {
	if len(w.raydiumBatch) == 0 {
		return
	}
	if err := w.ensureConn(ctx); err != nil {
		w.logger.Error().Err(err).Msg("db connect failed, retaining raydium batch")
		return
	}

	stmt, rowCount := buildRaydiumInsert(w.raydiumBatch)
	if rowCount == 0 {
		w.raydiumBatch = w.raydiumBatch[:0]
		return
	}
	w.execBatch(ctx, stmt, rowCount, &w.raydiumBatch)
}

// buildPumpfunInsert renders the pending batch as a single multi-row
// INSERT. Rows whose pubkey fields fail to base58-encode are skipped;
// rowCount reports how many rows made it into the statement (zero means
// there is nothing to send).
func buildPumpfunInsert(batch []pumpfunRow) (stmt string, rowCount int) {
	var rows []string
	for _, r := range batch {
		t := r.trade
		mint, ok1 := safeBase58(t.Mint[:])
		trader, ok2 := safeBase58(t.Trader[:])
		creator, ok3 := safeBase58(t.Creator[:])
		if !ok1 || !ok2 || !ok3 {
			continue // encode failure skips only this row
		}
		side := "SELL"
		if t.IsBuy {
			side = "BUY"
		}
		rows = append(rows, fmt.Sprintf(
			"(%d,%s,%s,%s,%s,%s,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d)",
			t.Slot, sqlString(r.signature), sqlString(mint), sqlString(trader), sqlString(creator),
			sqlString(side), t.SolAmount, t.TokenAmount, t.FeeBasisPoints, t.FeeLamports,
			t.CreatorFeeBasisPoints, t.CreatorFeeLamports, t.VirtualSolReserves,
			t.VirtualTokenReserves, t.RealSolReserves, t.RealTokenReserves,
		))
	}
	if len(rows) == 0 {
		return "", 0
	}

	stmt = "INSERT INTO pumpfun_trades " +
		"(slot, tx_signature, mint, trader, creator, side, sol_amount, token_amount, " +
		"fee_bps, fee_lamports, creator_fee_bps, creator_fee_lamports, " +
		"virtual_sol_reserves, virtual_token_reserves, real_sol_reserves, real_token_reserves) VALUES " +
		strings.Join(rows, ",")
	return stmt, len(rows)
}

// buildRaydiumInsert is buildPumpfunInsert's counterpart for the swap
// table.
func buildRaydiumInsert(batch []raydiumRow) (stmt string, rowCount int) {
	var rows []string
	for _, r := range batch {
		s := r.swap
		amm, ok1 := safeBase58(s.Amm[:])
		owner, ok2 := safeBase58(s.UserSourceOwner[:])
		if !ok1 || !ok2 {
			continue
		}
		rows = append(rows, fmt.Sprintf(
			"(%d,%s,%s,%s,%d,%d)",
			s.Slot, sqlString(r.signature), sqlString(amm), sqlString(owner), s.AmountIn, s.AmountOut,
		))
	}
	if len(rows) == 0 {
		return "", 0
	}

	stmt = "INSERT INTO raydium_swaps (slot, tx_signature, pool, user_owner, amount_in, amount_out) VALUES " +
		strings.Join(rows, ",")
	return stmt, len(rows)
}

// execBatch runs one flush's INSERT, updating metrics, clearing the batch
// on success and discarding it on a command failure so a poison row can't
// wedge the writer in a retry loop. A command failure also drops the
// connection, so the next flush reopens it. batch is a pointer to either pumpfunBatch
// or raydiumBatch so this single helper can reset whichever slice the caller
// owns.
func (w *Writer) execBatch(ctx context.Context, stmt string, rowCount int, batch interface{}) {
	start := time.Now()
	tag, err := w.conn.Exec(ctx, stmt)
	elapsed := time.Since(start)

	if err != nil {
		w.logger.Error().Err(err).Msg("db command failed, discarding batch")
		w.metrics.IncDBInsertsFailed()
		resetBatch(batch)
		_ = w.conn.Close(ctx)
		w.conn = nil
		return
	}

	w.metrics.AddDBInsertsSuccess(rowCount)
	w.metrics.IncDBBatches()
	w.metrics.AddDBLatencyUs(elapsed.Microseconds())
	_ = tag // CommandTag carries RowsAffected; success is "no error", per pgx convention
	resetBatch(batch)
}

func resetBatch(batch interface{}) {
	switch b := batch.(type) {
	case *[]pumpfunRow:
		*b = (*b)[:0]
	case *[]raydiumRow:
		*b = (*b)[:0]
	}
}

// safeBase58 encodes a 32-byte pubkey. The mr-tron/base58 encoder never
// actually errors on well-formed input, but the empty-output guard keeps
// the caller's row-skip path real rather than theoretical.
func safeBase58(b []byte) (string, bool) {
	enc := codec.EncodeBase58(b)
	if enc == "" && len(b) > 0 {
		return "", false
	}
	return enc, true
}

// sqlString single-quotes a value for textual interpolation into the
// unparameterized multi-row INSERT statements. Every caller here passes
// base58 (alphanumeric) strings, the BUY/SELL side label, or empty strings;
// the doubled-quote escape covers anything else that might reach it.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
