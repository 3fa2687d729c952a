package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"questchain/core/events"
	"questchain/native/common"
	"questchain/native/token"
	"questchain/observability/metrics"
	qotel "questchain/observability/otel"
)

const defaultFeedCapacity = 1024

var lastTimestampKey = []byte("runtime/last-timestamp")

var (
	// ErrClockRegression rejects a transaction stamped before the last
	// accepted one.
	ErrClockRegression = fmt.Errorf("runtime: timestamp precedes last accepted invocation: %w", common.ErrInvalidTime)
	// ErrInvocationPanic reports a contract panic that was rolled back.
	ErrInvocationPanic = errors.New("runtime: invocation panicked")
)

// Tx describes one contract invocation.
type Tx struct {
	Contract  string
	Method    string
	Signers   [][20]byte
	Timestamp int64
}

// Runtime executes contract invocations atomically. It serializes calls,
// lends the engines the invocation's signer set and timestamp, journals
// every write and buffers every event until the call succeeds.
type Runtime struct {
	mu        sync.Mutex
	ledger    *Ledger
	contracts *Contracts
	buffer    events.Buffer
	feed      *events.Feed
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics.ContractMetrics

	signers  common.Signers
	now      int64
	lastTime int64
	dirty    bool
}

// NewRuntime wires every native contract to ledger.
func NewRuntime(ledger *Ledger) (*Runtime, error) {
	r := &Runtime{
		ledger:  ledger,
		feed:    events.NewFeed(defaultFeedCapacity),
		logger:  slog.Default(),
		tracer:  qotel.Tracer("core"),
		metrics: metrics.Contracts(),
	}
	contracts, err := newContracts(ledger.State(), r)
	if err != nil {
		return nil, err
	}
	r.contracts = contracts
	var last uint64
	if _, err := ledger.State().KVGet(lastTimestampKey, &last); err != nil {
		return nil, fmt.Errorf("runtime: load clock: %w", err)
	}
	r.lastTime = int64(last)
	r.now = r.lastTime
	return r, nil
}

// SetLogger replaces the runtime logger. Nil restores the default logger.
func (r *Runtime) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.logger = logger
}

// SetFeed replaces the committed event feed.
func (r *Runtime) SetFeed(feed *events.Feed) {
	if feed != nil {
		r.feed = feed
	}
}

// Feed returns the feed of committed events.
func (r *Runtime) Feed() *events.Feed { return r.feed }

// RequireAuth implements common.Authorizer for the current invocation.
// Outside an invocation nothing is authorized.
func (r *Runtime) RequireAuth(addr [20]byte) error {
	return common.RequireAuth(r.signers, addr)
}

// Emit implements events.Emitter by buffering until the invocation commits.
func (r *Runtime) Emit(evt events.Event) { r.buffer.Emit(evt) }

// Now returns the current invocation timestamp, or the last accepted one
// outside an invocation.
func (r *Runtime) Now() int64 { return r.now }

// Invoke runs fn as one atomic invocation. When fn fails every state write
// and event it produced is discarded. On success events are published and
// expired temporary storage is pruned.
func (r *Runtime) Invoke(ctx context.Context, tx Tx, fn func(*Contracts) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.Timestamp < r.lastTime {
		return ErrClockRegression
	}
	invocationID := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, tx.Contract+"."+tx.Method, trace.WithAttributes(
		attribute.String("questchain.invocation_id", invocationID),
		attribute.String("questchain.contract", tx.Contract),
		attribute.String("questchain.method", tx.Method),
		attribute.Int64("questchain.timestamp", tx.Timestamp),
	))
	defer span.End()
	start := time.Now()

	mgr := r.ledger.State()
	snapshot := mgr.Snapshot()
	mark := r.buffer.Mark()
	r.signers = common.NewSigners(tx.Signers...)
	r.now = tx.Timestamp

	defer func() {
		r.signers = nil
		r.now = r.lastTime
		if err != nil {
			if rerr := mgr.RevertToSnapshot(snapshot); rerr != nil {
				err = errors.Join(err, rerr)
			}
			r.buffer.Truncate(mark)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.InfoContext(ctx, "invocation rejected",
				slog.String("invocation_id", invocationID),
				slog.String("contract", tx.Contract),
				slog.String("method", tx.Method),
				slog.Any("error", err))
		}
		r.metrics.ObserveInvocation(tx.Contract, tx.Method, err, time.Since(start))
	}()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrInvocationPanic, rec)
		}
	}()

	if err = fn(r.contracts); err != nil {
		return err
	}
	pruned, err := mgr.TempPrune(uint64(tx.Timestamp))
	if err != nil {
		return fmt.Errorf("runtime: prune temporary storage: %w", err)
	}
	if err = mgr.KVPut(lastTimestampKey, uint64(tx.Timestamp)); err != nil {
		return fmt.Errorf("runtime: store clock: %w", err)
	}
	mgr.DiscardJournal()
	r.lastTime = tx.Timestamp
	r.dirty = true
	r.metrics.RecordTempPruned(pruned)

	published := r.buffer.Drain()
	for _, evt := range published {
		rec := r.feed.Publish(invocationID, tx.Timestamp, evt)
		r.metrics.RecordEvent(evt.EventType())
		if rec.Event != nil {
			r.logger.DebugContext(ctx, "event",
				slog.String("invocation_id", invocationID),
				slog.String("type", rec.Event.Type),
				slog.Any("attributes", rec.Event.Attributes))
		}
	}
	span.SetAttributes(attribute.Int("questchain.events", len(published)))
	r.logger.DebugContext(ctx, "invocation committed",
		slog.String("invocation_id", invocationID),
		slog.String("contract", tx.Contract),
		slog.String("method", tx.Method),
		slog.Int("events", len(published)))
	return nil
}

// View runs fn against the current state without signers. Any write fn
// makes is rolled back, so views never change the ledger.
func (r *Runtime) View(fn func(*Contracts) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mgr := r.ledger.State()
	snapshot := mgr.Snapshot()
	mark := r.buffer.Mark()
	err := fn(r.contracts)
	if rerr := mgr.RevertToSnapshot(snapshot); rerr != nil {
		return errors.Join(err, rerr)
	}
	r.buffer.Truncate(mark)
	return err
}

// RegisterToken deploys an additional fungible token contract under name.
func (r *Runtime) RegisterToken(name string) (*token.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	engine := token.NewEngine(common.ContractAddress(name))
	engine.SetState(r.ledger.State())
	engine.SetAuthorizer(r)
	engine.SetEmitter(r)
	if err := r.contracts.Tokens.Register(engine); err != nil {
		return nil, err
	}
	return engine, nil
}

// Commit persists every accepted invocation to disk. Without new
// invocations it returns the current root and leaves the height unchanged.
func (r *Runtime) Commit() (gethcommon.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return r.ledger.Root(), nil
	}
	root, err := r.ledger.Commit()
	if err != nil {
		return root, err
	}
	r.dirty = false
	return root, nil
}

// LastTimestamp returns the timestamp of the last accepted invocation.
func (r *Runtime) LastTimestamp() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTime
}

// Height returns the number of commits persisted so far.
func (r *Runtime) Height() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.Height()
}
