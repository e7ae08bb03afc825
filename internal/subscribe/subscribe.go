// Package subscribe owns the long-lived gRPC subscription to the Geyser
// endpoint: one worker goroutine that dials, streams, classifies, decodes,
// and enqueues, reconnecting with bounded exponential backoff whenever the
// session ends.
package subscribe

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"

	"github.com/yurei-io/geyser-ingestor/internal/codec"
	"github.com/yurei-io/geyser-ingestor/internal/decode"
	"github.com/yurei-io/geyser-ingestor/internal/event"
	"github.com/yurei-io/geyser-ingestor/internal/metrics"
	"github.com/yurei-io/geyser-ingestor/internal/protocol"
	"github.com/yurei-io/geyser-ingestor/internal/queue"
)

// clientName/clientVersion identify this client to the server as outgoing
// gRPC metadata, purely for server-side observability.
const (
	clientName    = "yurei-geyser-ingestor"
	clientVersion = "1.0.0"
)

const (
	minBackoff = 1 * time.Second
	maxBackoff = 32 * time.Second
)

const subscribeMethodFilterName = "transactions"

// Config configures one Client.
type Config struct {
	Endpoint          string
	Authority         string
	AuthToken         string
	PumpfunEnabled    bool
	PumpfunProgram    [32]byte
	RaydiumEnabled    bool
	RaydiumProgram    [32]byte
	ResumeFromSlot    uint64
	ResumeFromSlotSet bool
}

// Client runs the subscription worker. Construct with New, start with
// Start, and stop with Stop. Start while already running and Stop while not
// running are no-ops.
type Client struct {
	cfg      Config
	detector protocol.Detector
	q        *queue.Queue[event.Event]
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a Client. The detector is derived from cfg's enabled program
// ids so the classifier and the outgoing subscribe filter never disagree
// about which protocols are active.
func New(cfg Config, q *queue.Queue[event.Event], m *metrics.Metrics, logger zerolog.Logger) *Client {
	detector := protocol.NewDetector(
		protocol.Pattern{ProgramID: cfg.PumpfunProgram, Enabled: cfg.PumpfunEnabled},
		protocol.Pattern{ProgramID: cfg.RaydiumProgram, Enabled: cfg.RaydiumEnabled},
	)
	return &Client{
		cfg:      cfg,
		detector: detector,
		q:        q,
		metrics:  m,
		logger:   logger,
	}
}

// Start launches the reconnect loop in a background goroutine.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.reconnectLoop(ctx)
}

// Stop signals the worker to exit and blocks until it has torn down its
// connection and returned.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.running = false
	c.mu.Unlock()

	cancel()
	<-done
}

func (c *Client) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// reconnectLoop repeatedly runs one session, sleeping with bounded
// exponential backoff between attempts and resetting the backoff to its
// floor after any session that completed its handshake successfully. The
// per-worker session tallies are logged once when the worker exits.
func (c *Client) reconnectLoop(ctx context.Context) {
	defer close(c.done)

	var sessionsOK, sessionsFailed uint64
	defer func() {
		c.logger.Info().
			Uint64("sessions_ok", sessionsOK).
			Uint64("sessions_failed", sessionsFailed).
			Msg("subscription worker stopped")
	}()

	backoff := minBackoff
	for c.isRunning() {
		handshakeOK, err := c.runSession(ctx)
		if handshakeOK {
			sessionsOK++
		} else {
			sessionsFailed++
		}
		if err != nil {
			c.logger.Warn().Err(err).Dur("backoff", backoff).Msg("subscription session ended, reconnecting")
		}
		if !c.isRunning() {
			return
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, handshakeOK)
	}
}

// nextBackoff advances the reconnect delay after one session: doubling up
// to the 32s ceiling on a failed handshake, back to the 1s floor after a
// session that got through its handshake.
func nextBackoff(cur time.Duration, handshakeOK bool) time.Duration {
	if handshakeOK {
		return minBackoff
	}
	if cur < maxBackoff {
		cur *= 2
	}
	if cur > maxBackoff {
		cur = maxBackoff
	}
	return cur
}

// runSession establishes one TLS channel, one Subscribe stream, sends the
// request, and receives until the stream ends, the context is cancelled, or
// running becomes false. The bool return reports whether the handshake
// (dial + first Send) succeeded, independent of what happened afterward.
func (c *Client) runSession(ctx context.Context) (handshakeOK bool, err error) {
	creds := credentials.NewTLS(nil)
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(1024*1024*1024),
			grpc.MaxCallSendMsgSize(32*1024*1024),
		),
	}
	if c.cfg.Authority != "" {
		dialOpts = append(dialOpts, grpc.WithAuthority(c.cfg.Authority))
	}

	conn, err := grpc.DialContext(ctx, c.cfg.Endpoint, dialOpts...)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	client := pb.NewGeyserClient(conn)

	md := metadata.New(map[string]string{
		"x-client-name":    clientName,
		"x-client-version": clientVersion,
	})
	if c.cfg.AuthToken != "" {
		md.Set("x-token", c.cfg.AuthToken)
	}
	streamCtx := metadata.NewOutgoingContext(ctx, md)

	stream, err := client.Subscribe(streamCtx)
	if err != nil {
		return false, fmt.Errorf("open subscribe stream: %w", err)
	}

	req := c.buildRequest()
	if err := stream.Send(req); err != nil {
		return false, fmt.Errorf("send subscribe request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return true, fmt.Errorf("half-close send side: %w", err)
	}

	c.logger.Info().Str("endpoint", c.cfg.Endpoint).Msg("subscription handshake succeeded")

	for c.isRunning() {
		update, err := stream.Recv()
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			return true, fmt.Errorf("recv: %w", err)
		}

		if tx, ok := update.UpdateOneof.(*pb.SubscribeUpdate_Transaction); ok {
			c.handleTransaction(tx)
		}
	}
	return true, nil
}

// buildRequest constructs the single subscribe request: commitment
// PROCESSED, optional from_slot, one "transactions" filter entry whose
// account_include list is every enabled program id in base58.
func (c *Client) buildRequest() *pb.SubscribeRequest {
	commitment := pb.CommitmentLevel_PROCESSED
	req := &pb.SubscribeRequest{
		Commitment: &commitment,
	}

	if c.cfg.ResumeFromSlotSet {
		slot := c.cfg.ResumeFromSlot
		req.FromSlot = &slot
	}

	var includes []string
	if c.cfg.PumpfunEnabled {
		includes = append(includes, codec.EncodeBase58(c.cfg.PumpfunProgram[:]))
	}
	if c.cfg.RaydiumEnabled {
		includes = append(includes, codec.EncodeBase58(c.cfg.RaydiumProgram[:]))
	}

	if len(includes) == 0 {
		c.logger.Warn().Msg("no protocol enabled, subscribing without an account filter")
		return req
	}

	req.Transactions = map[string]*pb.SubscribeRequestFilterTransactions{
		subscribeMethodFilterName: {AccountInclude: includes},
	}
	return req
}

// handleTransaction runs the classifier+decoder path for one transaction
// update: classify by account keys, then on a match scan log messages for
// the first line that decodes as that protocol's payload.
func (c *Client) handleTransaction(tx *pb.SubscribeUpdate_Transaction) {
	if tx.Transaction == nil || tx.Transaction.Transaction == nil {
		return
	}
	inner := tx.Transaction.Transaction
	slot := tx.Transaction.Slot

	accountKeys := accountKeysOf(inner)
	proto := c.detector.Classify(accountKeys)
	if proto == protocol.None {
		return
	}

	logMessages := logMessagesOf(inner)
	signature := codec.EncodeBase58(inner.Signature)

	ev, ok := decode.FromLogLine(proto, logMessages, slot, signature)
	if !ok {
		return
	}

	start := time.Now()
	if proto == protocol.Pumpfun {
		c.metrics.IncEventsPumpfun()
	} else {
		c.metrics.IncEventsRaydium()
	}

	if !c.q.Push(ev) {
		c.logger.Warn().Str("signature", signature).Msg("queue closed, dropping decoded event")
		c.metrics.IncEventsDropped()
		return
	}
	c.metrics.AddEventLatencyUs(time.Since(start).Microseconds())
}

func accountKeysOf(info *pb.SubscribeUpdateTransactionInfo) [][]byte {
	if info.Transaction == nil || info.Transaction.Message == nil {
		return nil
	}
	return info.Transaction.Message.AccountKeys
}

func logMessagesOf(info *pb.SubscribeUpdateTransactionInfo) []string {
	if info.Meta == nil {
		return nil
	}
	return info.Meta.LogMessages
}
