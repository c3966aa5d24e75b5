package chaincase

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/infrastructure/transport/tor"
)

const (
	DefaultAPIVersion = 4

	latestMatureHeaderPath = "btc/blockchain/latest-mature-header"
	notificationTokensPath = "notificationTokens"
	mempoolRootPath        = "btc/mempool/root"
	mempoolSubPath         = "btc/mempool/sub"
	versionsPath           = "/api/software/versions"
)

// Transport is the abstraction of the http layer used to reach the backend.
type Transport interface {
	SendAndRetry(
		ctx context.Context, method string, expectedStatus int, path string,
		maxRetries int, content *tor.Content,
	) (*http.Response, error)
}

// Client is the typed client of the chaincase backend API.
type Client struct {
	transport  Transport
	apiVersion int
	maxRetries int

	log func(format string, a ...interface{})
}

// NewClient returns a new backend client for the given api major version.
func NewClient(transport Transport, apiVersion, maxRetries int) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("missing transport")
	}
	if apiVersion <= 0 {
		return nil, fmt.Errorf("api version must be a positive number")
	}
	if maxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative")
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("backend: %s", format)
		log.Debugf(format, a...)
	}
	return &Client{transport, apiVersion, maxRetries, logFn}, nil
}

// APIVersion returns the api major version the client talks.
func (c *Client) APIVersion() int {
	return c.apiVersion
}

func (c *Client) GetLatestMatureHeader(
	ctx context.Context,
) (*domain.BlockHeader, error) {
	resp, err := c.get(ctx, c.apiPath(latestMatureHeaderPath))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var header latestMatureHeaderResponse
	if err := json.NewDecoder(resp.Body).Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	h, err := header.toDomain()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	return h, nil
}

func (c *Client) RegisterNotificationToken(
	ctx context.Context, token domain.DeviceToken,
) (string, error) {
	if len(token.Token) <= 0 {
		return "", fmt.Errorf("missing device token")
	}

	body, err := json.Marshal(token)
	if err != nil {
		return "", err
	}

	resp, err := c.transport.SendAndRetry(
		ctx, http.MethodPut, http.StatusOK, c.apiPath(notificationTokensPath),
		c.maxRetries, &tor.Content{Type: "application/json", Data: body},
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return "", nil
	default:
		return "", newRequestError(resp)
	}

	ack, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(ack), nil
}

// GetMempoolRootFilter returns the first entry of the json object returned by
// the backend, in document order.
func (c *Client) GetMempoolRootFilter(
	ctx context.Context,
) (*domain.MempoolFilter, error) {
	resp, err := c.get(ctx, c.apiPath(mempoolRootPath))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	return decodeFirstEntry(resp.Body)
}

func (c *Client) GetMempoolSubFilters(
	ctx context.Context,
) (map[string]string, error) {
	resp, err := c.get(ctx, c.apiPath(mempoolSubPath))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return map[string]string{}, nil
	}

	filters := make(map[string]string)
	if err := json.NewDecoder(resp.Body).Decode(&filters); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	return filters, nil
}

// GetMempoolTransactionBuckets fetches the txs of the buckets with the given
// keys. If any of the returned txs can't be parsed, the whole result is
// discarded.
func (c *Client) GetMempoolTransactionBuckets(
	ctx context.Context, keys []string,
) (map[string][]*wire.MsgTx, error) {
	if len(keys) <= 0 {
		return map[string][]*wire.MsgTx{}, nil
	}

	query := url.Values{"keys": keys}
	path := fmt.Sprintf("%s?%s", c.apiPath(mempoolSubPath), query.Encode())
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return map[string][]*wire.MsgTx{}, nil
	}

	rawBuckets := make(map[string][]string)
	if err := json.NewDecoder(resp.Body).Decode(&rawBuckets); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}

	buckets := make(map[string][]*wire.MsgTx, len(rawBuckets))
	for key, txHexes := range rawBuckets {
		txs := make([]*wire.MsgTx, 0, len(txHexes))
		for i, txHex := range txHexes {
			tx, err := parseTransaction(txHex)
			if err != nil {
				return nil, fmt.Errorf(
					"%w: bucket %s, tx %d: %s", ErrMalformedTransaction, key, i, err,
				)
			}
			txs = append(txs, tx)
		}
		buckets[key] = txs
	}

	c.log("fetched %d buckets for %d keys", len(buckets), len(keys))
	return buckets, nil
}

// GetBackendMajorVersion returns the major version of the api exposed by the
// backend.
func (c *Client) GetBackendMajorVersion(ctx context.Context) (int, error) {
	resp, err := c.get(ctx, versionsPath)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return -1, fmt.Errorf("%w: missing versions", ErrMalformedResponse)
	}

	var versions versionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return -1, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	version, err := strconv.Atoi(strings.TrimSpace(versions.BackendMajorVersion))
	if err != nil {
		return -1, fmt.Errorf(
			"%w: invalid backend major version %q", ErrMalformedResponse,
			versions.BackendMajorVersion,
		)
	}
	return version, nil
}

// get sends a GET request and returns the response only if the status is
// either 200 or 204. The caller must close the body.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	resp, err := c.transport.SendAndRetry(
		ctx, http.MethodGet, http.StatusOK, path, c.maxRetries, nil,
	)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		defer resp.Body.Close()
		return nil, newRequestError(resp)
	}
	return resp, nil
}

func (c *Client) apiPath(path string) string {
	return fmt.Sprintf("/api/v%d/%s", c.apiVersion, path)
}

func decodeFirstEntry(body io.Reader) (*domain.MempoolFilter, error) {
	dec := json.NewDecoder(body)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected json object", ErrMalformedResponse)
	}
	if !dec.More() {
		return nil, fmt.Errorf("%w: empty root filter", ErrMalformedResponse)
	}

	tok, err = dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	key, ok := tok.(string)
	if !ok {
		return nil, fmt.Errorf("%w: invalid root filter key", ErrMalformedResponse)
	}
	var value string
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: invalid root filter value: %s", ErrMalformedResponse, err)
	}

	return &domain.MempoolFilter{Key: key, Value: value}, nil
}

func parseTransaction(txHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, err
	}
	if len(raw) <= 0 {
		return nil, fmt.Errorf("empty tx")
	}

	r := bytes.NewReader(raw)
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(r); err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, fmt.Errorf("%d trailing bytes", r.Len())
	}
	return tx, nil
}
