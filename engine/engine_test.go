package engine

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dojoengine/torii-go/cache"
	"github.com/dojoengine/torii-go/contract"
	"github.com/dojoengine/torii-go/cursor"
	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/processor"
	"github.com/dojoengine/torii-go/provider"
	"github.com/dojoengine/torii-go/store"
)

// fakeSink is an in-memory store.Sink recording calls in order, local to the
// engine tests (mirrors store/executor_test.go's double).
type fakeSink struct {
	calls     []string
	failKinds map[store.MessageKind]bool
}

func (s *fakeSink) Begin() error { s.calls = append(s.calls, "begin"); return nil }
func (s *fakeSink) Apply(msg store.Message) error {
	s.calls = append(s.calls, "apply")
	if s.failKinds[msg.Kind] {
		return errBoom
	}
	return nil
}
func (s *fakeSink) Commit() error   { s.calls = append(s.calls, "commit"); return nil }
func (s *fakeSink) Rollback() error { s.calls = append(s.calls, "rollback"); return nil }

var errBoom = &boomError{}

type boomError struct{}

func (*boomError) Error() string { return "boom" }

type fakeCursorStore struct {
	cursors cursor.Cursors
	err     error
}

func (f *fakeCursorStore) Cursors() (cursor.Cursors, error) { return f.cursors, f.err }

// fakeProvider answers only what an engine tick with no configured
// contracts needs: the chain tip and, once caught up behind it, the tip
// block's timestamp.
type fakeProvider struct {
	latest    provider.BlockHashAndNumber
	latestErr error
	timestamp uint64
}

func (p *fakeProvider) BlockHashAndNumber(ctx context.Context) (provider.BlockHashAndNumber, error) {
	return p.latest, p.latestErr
}
func (p *fakeProvider) GetBlockWithTxHashes(ctx context.Context, id provider.BlockID) (provider.Block, error) {
	return provider.Block{}, nil
}
func (p *fakeProvider) GetBlockWithReceipts(ctx context.Context, id provider.BlockID) (provider.Block, error) {
	return provider.Block{}, nil
}
func (p *fakeProvider) Call(ctx context.Context, req provider.CallRequest) ([]felt.Felt, error) {
	return nil, nil
}
func (p *fakeProvider) BatchRequests(ctx context.Context, reqs []provider.BatchRequest) ([]provider.BatchResponse, error) {
	out := make([]provider.BatchResponse, len(reqs))
	for i, req := range reqs {
		out[i] = provider.BatchResponse{Kind: req.Kind}
		if req.Kind == provider.ReqGetBlockWithTxHashes {
			out[i].GetBlockWithTxHashes = &provider.Block{Timestamp: p.timestamp}
		}
	}
	return out, nil
}

func newTestEngine(t *testing.T, sink *fakeSink, cursors *fakeCursorStore, prov *fakeProvider) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WorldBlock = 10
	return New(prov, cursors, store.NewExecutor(sink), cache.New(nil), contract.NewSet(nil), processor.NewRegistry(), nil, cfg)
}

func TestTickWithNothingNewLeavesTheSinkUntouched(t *testing.T) {
	sink := &fakeSink{}
	cursors := &fakeCursorStore{cursors: cursor.Cursors{}}
	prov := &fakeProvider{latest: provider.BlockHashAndNumber{BlockNumber: 10}}
	e := newTestEngine(t, sink, cursors, prov)

	require.NoError(t, e.tick(context.Background()))
	require.Empty(t, sink.calls)
}

func TestTickPropagatesCursorReadFailureWithoutTouchingTheSink(t *testing.T) {
	sink := &fakeSink{}
	cursors := &fakeCursorStore{err: errBoom}
	prov := &fakeProvider{latest: provider.BlockHashAndNumber{BlockNumber: 10}}
	e := newTestEngine(t, sink, cursors, prov)

	err := e.tick(context.Background())
	require.Error(t, err)
	require.Empty(t, sink.calls)
}

func TestTickRollsBackWhenApplyingBalanceDiffFails(t *testing.T) {
	sink := &fakeSink{failKinds: map[store.MessageKind]bool{store.MsgApplyBalanceDiff: true}}
	cursors := &fakeCursorStore{cursors: cursor.Cursors{}}
	prov := &fakeProvider{latest: provider.BlockHashAndNumber{BlockNumber: 11}, timestamp: 9999}
	e := newTestEngine(t, sink, cursors, prov)
	e.Cache.AddBalanceDelta("alice:token1", big.NewInt(5))

	err := e.tick(context.Background())
	require.Error(t, err)
	require.Equal(t, []string{"begin", "apply", "apply", "rollback"}, sink.calls)
}

func TestTickCommitsWhenNewRangeHasNoBalanceDiffs(t *testing.T) {
	sink := &fakeSink{}
	cursors := &fakeCursorStore{cursors: cursor.Cursors{}}
	prov := &fakeProvider{latest: provider.BlockHashAndNumber{BlockNumber: 11}, timestamp: 9999}
	e := newTestEngine(t, sink, cursors, prov)

	require.NoError(t, e.tick(context.Background()))
	require.Equal(t, []string{"begin", "apply", "commit"}, sink.calls)
}
