package proxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/caarlos0/env/v11"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const (
	defTag       = "latest"
	defChunkSize = 512000
)

// ChunkPayload is one piece of a training module streamed to trainers
// over MQTT. Every chunk of a module carries the checksum of the whole
// module so receivers can verify the assembled artifact.
type ChunkPayload struct {
	AppName     string `json:"app_name"`
	ChunkIdx    int    `json:"chunk_idx"`
	TotalChunks int    `json:"total_chunks"`
	Data        []byte `json:"data"`
	Checksum    string `json:"checksum,omitempty"`
}

type HTTPProxyConfig struct {
	RegistryURL  string `env:"REGISTRY_URL" envDefault:"localhost:5000"`
	Authenticate bool   `env:"AUTHENTICATE" envDefault:"false"`
	Token        string `env:"PAT"          envDefault:""`
	Username     string `env:"USERNAME"     envDefault:""`
	Password     string `env:"PASSWORD"     envDefault:""`
	ChunkSize    int    `env:"CHUNK_SIZE"   envDefault:"512000"`
}

func LoadHTTPConfig(opts env.Options) (HTTPProxyConfig, error) {
	c := HTTPProxyConfig{}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return HTTPProxyConfig{}, err
	}

	return c, nil
}

func (c *HTTPProxyConfig) Validate() error {
	if c.RegistryURL == "" {
		return errors.New("registry_url is required")
	}
	if _, err := url.Parse(c.RegistryURL); err != nil {
		return fmt.Errorf("registry_url is not a valid URL: %w", err)
	}

	if c.Authenticate {
		hasToken := c.Token != ""
		hasCredentials := c.Username != "" && c.Password != ""

		if !hasToken && !hasCredentials {
			return errors.New("either PAT or username/password must be provided when authentication is enabled")
		}
	}

	return nil
}

// FetchFromReg pulls the module referenced by moduleRef from the OCI
// registry and splits its largest layer into MQTT-sized chunks. The
// reference may carry a tag; when it does not, "latest" is resolved.
func (c *HTTPProxyConfig) FetchFromReg(ctx context.Context, moduleRef string) ([]ChunkPayload, error) {
	repo, err := remote.NewRepository(moduleRef)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository for %s: %w", moduleRef, err)
	}

	c.setupAuthentication(repo)

	manifest, err := c.fetchManifest(ctx, repo, moduleRef)
	if err != nil {
		return nil, err
	}

	largestLayer, err := findLargestLayer(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to find layer for %s: %w", moduleRef, err)
	}

	layerReader, err := repo.Fetch(ctx, largestLayer)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch layer for %s: %w", moduleRef, err)
	}
	defer layerReader.Close()

	data, err := io.ReadAll(layerReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer for %s: %w", moduleRef, err)
	}

	chunkSize := c.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defChunkSize
	}

	return createChunks(data, moduleRef, chunkSize), nil
}

func (c *HTTPProxyConfig) setupAuthentication(repo *remote.Repository) {
	if !c.Authenticate {
		return
	}

	var cred auth.Credential
	if c.Username != "" && c.Password != "" {
		cred = auth.Credential{
			Username: c.Username,
			Password: c.Password,
		}
	} else if c.Token != "" {
		cred = auth.Credential{
			Username:    c.Username,
			AccessToken: c.Token,
		}
	}

	repo.Client = &auth.Client{
		Client:     retry.DefaultClient,
		Cache:      auth.NewCache(),
		Credential: auth.StaticCredential(c.RegistryURL, cred),
	}
}

func (c *HTTPProxyConfig) fetchManifest(ctx context.Context, repo *remote.Repository, moduleRef string) (*ocispec.Manifest, error) {
	tag := repo.Reference.Reference
	if tag == "" {
		tag = defTag
	}

	descriptor, err := repo.Resolve(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest for %s: %w", moduleRef, err)
	}

	reader, err := repo.Fetch(ctx, descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest for %s: %w", moduleRef, err)
	}
	defer reader.Close()

	manifestData, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest for %s: %w", moduleRef, err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest for %s: %w", moduleRef, err)
	}

	return &manifest, nil
}

func findLargestLayer(manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	var largestLayer ocispec.Descriptor
	var maxSize int64

	for _, layer := range manifest.Layers {
		if layer.Size > maxSize {
			maxSize = layer.Size
			largestLayer = layer
		}
	}

	if largestLayer.Size == 0 {
		return ocispec.Descriptor{}, errors.New("no valid layers found in manifest")
	}

	return largestLayer, nil
}

func createChunks(data []byte, moduleRef string, chunkSize int) []ChunkPayload {
	dataSize := len(data)
	totalChunks := (dataSize + chunkSize - 1) / chunkSize
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	chunks := make([]ChunkPayload, 0, totalChunks)
	for i := 0; i < totalChunks; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, dataSize)

		chunks = append(chunks, ChunkPayload{
			AppName:     moduleRef,
			ChunkIdx:    i,
			TotalChunks: totalChunks,
			Data:        data[start:end],
			Checksum:    checksum,
		})
	}

	return chunks
}
