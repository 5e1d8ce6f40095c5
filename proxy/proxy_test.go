package proxy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/flock/pkg/mqtt/mocks"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testDomainID  = "domain-1"
	testChannelID = "channel-1"
	testModuleRef = "localhost:5000/trainer-module:v1"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig() HTTPProxyConfig {
	return HTTPProxyConfig{
		RegistryURL: "localhost:5000",
		ChunkSize:   defChunkSize,
	}
}

func newTestService(t *testing.T, pubsub *mocks.MockPubSub) *ProxyService {
	t.Helper()

	svc, err := NewService(pubsub, testDomainID, testChannelID, testConfig(), discardLogger())
	require.NoError(t, err)

	return svc
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		desc string
		cfg  HTTPProxyConfig
		err  string
	}{
		{
			desc: "valid anonymous config",
			cfg:  HTTPProxyConfig{RegistryURL: "localhost:5000"},
		},
		{
			desc: "missing registry URL",
			cfg:  HTTPProxyConfig{},
			err:  "registry_url is required",
		},
		{
			desc: "authentication enabled without credentials",
			cfg:  HTTPProxyConfig{RegistryURL: "localhost:5000", Authenticate: true},
			err:  "either PAT or username/password must be provided",
		},
		{
			desc: "authentication with token",
			cfg:  HTTPProxyConfig{RegistryURL: "localhost:5000", Authenticate: true, Token: "pat-token"},
		},
		{
			desc: "authentication with username and password",
			cfg:  HTTPProxyConfig{RegistryURL: "localhost:5000", Authenticate: true, Username: "user", Password: "pass"},
		},
		{
			desc: "authentication with username but no password",
			cfg:  HTTPProxyConfig{RegistryURL: "localhost:5000", Authenticate: true, Username: "user"},
			err:  "either PAT or username/password must be provided",
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)

				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	_, err := NewService(new(mocks.MockPubSub), testDomainID, testChannelID, HTTPProxyConfig{}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry_url is required")
}

func TestCreateChunks(t *testing.T) {
	cases := []struct {
		desc        string
		dataSize    int
		chunkSize   int
		totalChunks int
		lastSize    int
	}{
		{
			desc:        "data splits evenly",
			dataSize:    1000,
			chunkSize:   100,
			totalChunks: 10,
			lastSize:    100,
		},
		{
			desc:        "last chunk is partial",
			dataSize:    1050,
			chunkSize:   100,
			totalChunks: 11,
			lastSize:    50,
		},
		{
			desc:        "data smaller than chunk size",
			dataSize:    10,
			chunkSize:   100,
			totalChunks: 1,
			lastSize:    10,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xAB}, tc.dataSize)
			chunks := createChunks(data, testModuleRef, tc.chunkSize)

			require.Len(t, chunks, tc.totalChunks)

			sum := sha256.Sum256(data)
			wantChecksum := hex.EncodeToString(sum[:])

			var assembled []byte
			for i, chunk := range chunks {
				assert.Equal(t, testModuleRef, chunk.AppName)
				assert.Equal(t, i, chunk.ChunkIdx)
				assert.Equal(t, tc.totalChunks, chunk.TotalChunks)
				assert.Equal(t, wantChecksum, chunk.Checksum)
				assembled = append(assembled, chunk.Data...)
			}

			assert.Equal(t, tc.lastSize, len(chunks[len(chunks)-1].Data))
			assert.Equal(t, data, assembled)
		})
	}
}

func TestFindLargestLayer(t *testing.T) {
	cases := []struct {
		desc     string
		manifest ocispec.Manifest
		wantSize int64
		err      string
	}{
		{
			desc: "picks the largest layer",
			manifest: ocispec.Manifest{
				Layers: []ocispec.Descriptor{
					{Size: 10, Digest: "sha256:a"},
					{Size: 5000, Digest: "sha256:b"},
					{Size: 100, Digest: "sha256:c"},
				},
			},
			wantSize: 5000,
		},
		{
			desc:     "no layers",
			manifest: ocispec.Manifest{},
			err:      "no valid layers found in manifest",
		},
		{
			desc: "only empty layers",
			manifest: ocispec.Manifest{
				Layers: []ocispec.Descriptor{{Size: 0}},
			},
			err: "no valid layers found in manifest",
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			layer, err := findLargestLayer(&tc.manifest)
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSize, layer.Size)
		})
	}
}

func TestSubscribe(t *testing.T) {
	topic := fmt.Sprintf(SubTopic, testDomainID, testChannelID)

	pubsub := new(mocks.MockPubSub)
	pubsub.On("Subscribe", mock.Anything, topic, mock.Anything).Return(nil)

	svc := newTestService(t, pubsub)
	require.NoError(t, svc.Subscribe(context.Background()))

	pubsub.AssertExpectations(t)
}

func TestHandleFetchRequest(t *testing.T) {
	svc := newTestService(t, new(mocks.MockPubSub))

	err := svc.handleFetchRequest("topic", map[string]any{"app_name": testModuleRef})
	require.NoError(t, err)

	select {
	case ref := <-svc.moduleChan:
		assert.Equal(t, testModuleRef, ref)
	default:
		t.Fatal("expected fetch request on module channel")
	}
}

func TestHandleFetchRequestMissingAppName(t *testing.T) {
	svc := newTestService(t, new(mocks.MockPubSub))

	err := svc.handleFetchRequest("topic", map[string]any{"other": "field"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_name")
}

func TestHandleFetchRequestFullQueueDrops(t *testing.T) {
	svc := newTestService(t, new(mocks.MockPubSub))

	for i := 0; i < moduleChanSize; i++ {
		svc.moduleChan <- fmt.Sprintf("module-%d", i)
	}

	// The handler must not block or fail once the queue is full.
	err := svc.handleFetchRequest("topic", map[string]any{"app_name": "overflow"})
	require.NoError(t, err)
	assert.Len(t, svc.moduleChan, moduleChanSize)
}

func TestStreamMQTTPublishesChunks(t *testing.T) {
	topic := fmt.Sprintf(PubTopic, testDomainID, testChannelID)

	published := make(chan ChunkPayload, 4)
	pubsub := new(mocks.MockPubSub)
	pubsub.On("Publish", mock.Anything, topic, mock.Anything).Run(func(args mock.Arguments) {
		published <- args.Get(2).(ChunkPayload)
	}).Return(nil)

	svc := newTestService(t, pubsub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- svc.StreamMQTT(ctx)
	}()

	chunks := createChunks([]byte("tiny module payload"), testModuleRef, 8)
	for _, chunk := range chunks {
		svc.dataChan <- chunk
	}

	for i := 0; i < len(chunks); i++ {
		select {
		case chunk := <-published:
			assert.Equal(t, testModuleRef, chunk.AppName)
			assert.Equal(t, i, chunk.ChunkIdx)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for chunk publish")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stream shutdown")
	}
}

func TestStreamHTTPStopsOnContextCancel(t *testing.T) {
	svc := newTestService(t, new(mocks.MockPubSub))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.StreamHTTP(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stream shutdown")
	}
}
