// Package metadata resolves ERC token_uri values (https, ipfs://, or a
// data: URI) into raw off-chain metadata bytes, with a concurrency cap and
// a content-addressed on-disk cache, per spec.md §5 ("semaphore
// acquisitions (NFT metadata concurrency cap)") and the erc.rs-derived
// degrade-to-empty behavior spec.md §7 specifies for bad URIs/MIME/base64.
package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/valyala/fasthttp"

	"github.com/dojoengine/torii-go/internal/xerrors"
	"github.com/dojoengine/torii-go/internal/xlog"
	"github.com/dojoengine/torii-go/metrics"
)

var logger = xlog.NewModuleLogger("metadata")

const (
	ipfsGatewayPrefix = "https://ipfs.io/ipfs/"
	requestTimeout     = 10 * time.Second
)

// Fetcher implements processor.MetadataFetcher: it resolves a token_uri
// into bytes, consulting a goleveldb content-address cache keyed by the
// URI's sha256 before making a network call, and tolerating a
// max-in-flight cap via a buffered-channel semaphore the same shape the
// teacher uses for every other bounded-worker-pool construct in this
// module.
type Fetcher struct {
	client    *fasthttp.Client
	cache     *leveldb.DB
	semaphore chan struct{}
}

// New constructs a Fetcher. cacheDB is a goleveldb handle dedicated to
// metadata content (spec.md leaves persistence mechanics to the store, but
// this cache is purely an RPC-avoidance layer, not queryable state, so it
// gets its own embedded database exactly like the teacher's
// storage/database/leveldb_database.go pattern). maxConcurrent bounds
// in-flight HTTP/IPFS fetches.
func New(cacheDB *leveldb.DB, maxConcurrent int) *Fetcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Fetcher{
		client:    &fasthttp.Client{ReadTimeout: requestTimeout, WriteTimeout: requestTimeout},
		cache:     cacheDB,
		semaphore: make(chan struct{}, maxConcurrent),
	}
}

// Fetch resolves uri into bytes. It never returns an error for a bad
// URI/MIME/base64 payload — those degrade to (nil, nil) per spec.md §7;
// the error return is reserved for cancellation and semaphore-acquire
// failure (the "Semaphore acquire" kind, which propagates and fails the
// tick).
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	key := cacheKey(uri)
	if cached, err := f.cache.Get(key, nil); err == nil {
		metrics.MetadataFetchMeter.Mark(1)
		return cached, nil
	} else if err != leveldb.ErrNotFound {
		logger.Warn("metadata cache read failed", "uri", uri, "err", err)
	}

	if data, ok := decodeDataURI(uri); ok {
		f.store(key, data)
		return data, nil
	}

	select {
	case f.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, xerrors.Wrap(xerrors.KindSemaphoreAcquire, errors.Wrap(ctx.Err(), "metadata: acquiring fetch semaphore"))
	}
	defer func() { <-f.semaphore }()

	data, err := f.fetchHTTP(ctx, resolveURI(uri))
	if err != nil {
		metrics.MetadataFailureMeter.Mark(1)
		logger.Trace("metadata fetch degraded to empty", "uri", uri, "err", err)
		return nil, nil
	}
	metrics.MetadataFetchMeter.Mark(1)
	f.store(key, data)
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(requestTimeout)
	}
	if err := f.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, errors.Wrap(err, "metadata: http fetch")
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, errors.Errorf("metadata: unexpected status %d", resp.StatusCode())
	}

	body := resp.Body()
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func (f *Fetcher) store(key, data []byte) {
	if err := f.cache.Put(key, data, nil); err != nil {
		logger.Warn("metadata cache write failed", "err", err)
	}
}

func cacheKey(uri string) []byte {
	sum := sha256.Sum256([]byte(uri))
	return []byte(hex.EncodeToString(sum[:]))
}

// resolveURI rewrites an ipfs:// URI to a gateway URL; any other scheme
// passes through unchanged.
func resolveURI(uri string) string {
	if strings.HasPrefix(uri, "ipfs://") {
		return ipfsGatewayPrefix + strings.TrimPrefix(uri, "ipfs://")
	}
	return uri
}

// decodeDataURI decodes a "data:application/json;base64,..." URI inline,
// with no network call. A malformed data URI degrades to (nil, false)
// rather than an error, per spec.md §7's "bad base64" disposition.
func decodeDataURI(uri string) ([]byte, bool) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, false
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, false
	}
	header, payload := uri[5:comma], uri[comma+1:]
	if !strings.HasSuffix(header, ";base64") {
		return []byte(payload), true
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}
