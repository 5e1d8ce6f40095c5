package trainer_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/flock"
	"github.com/absmach/flock/trainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() trainer.Config {
	return trainer.Config{
		BrokerURL:  "tcp://localhost:1883",
		TrainerID:  "trainer-1",
		DomainID:   "domain-1",
		ChannelID:  "channel-1",
		NumSamples: 500,
		ModuleFile: "model.wasm",
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		desc   string
		mutate func(*trainer.Config)
		err    string
	}{
		{
			desc:   "valid with module file",
			mutate: func(c *trainer.Config) {},
		},
		{
			desc: "valid with module ref",
			mutate: func(c *trainer.Config) {
				c.ModuleFile = ""
				c.ModuleRef = "registry.example.com/models/mnist:v1"
			},
		},
		{
			desc:   "missing broker url",
			mutate: func(c *trainer.Config) { c.BrokerURL = "" },
			err:    "broker_url is required",
		},
		{
			desc:   "invalid broker url",
			mutate: func(c *trainer.Config) { c.BrokerURL = "://nope" },
			err:    "broker_url is not a valid URL",
		},
		{
			desc:   "missing trainer id",
			mutate: func(c *trainer.Config) { c.TrainerID = "" },
			err:    "trainer_id is required",
		},
		{
			desc:   "missing domain id",
			mutate: func(c *trainer.Config) { c.DomainID = "" },
			err:    "domain_id is required",
		},
		{
			desc:   "missing channel id",
			mutate: func(c *trainer.Config) { c.ChannelID = "" },
			err:    "channel_id is required",
		},
		{
			desc:   "zero samples",
			mutate: func(c *trainer.Config) { c.NumSamples = 0 },
			err:    "num_samples must be positive",
		},
		{
			desc:   "negative samples",
			mutate: func(c *trainer.Config) { c.NumSamples = -10 },
			err:    "num_samples must be positive",
		},
		{
			desc:   "no module source",
			mutate: func(c *trainer.Config) { c.ModuleFile = "" },
			err:    "either module_file or module_ref is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.err == "" {
				assert.NoError(t, err)

				return
			}
			assert.ErrorContains(t, err, tc.err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"broker_url": "tcp://localhost:1883",
		"trainer_id": "trainer-7",
		"name": "hospital-a",
		"domain_id": "domain-1",
		"channel_id": "channel-1",
		"num_samples": 1200,
		"module_ref": "registry.example.com/models/mnist:v1",
		"liveness_interval_secs": 2
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := trainer.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "trainer-7", cfg.TrainerID)
	assert.Equal(t, "hospital-a", cfg.Name)
	assert.Equal(t, int64(1200), cfg.NumSamples)
	assert.Equal(t, "registry.example.com/models/mnist:v1", cfg.ModuleRef)
	assert.Equal(t, 2*time.Second, cfg.LivenessInterval())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := trainer.LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorContains(t, err, "unable to open configuration file")
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := trainer.LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse configuration file")
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"broker_url": "tcp://localhost:1883"}`), 0o644))

	_, err := trainer.LoadConfig(path)
	assert.ErrorContains(t, err, "configuration validation failed")
}

func TestLivenessIntervalDefault(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 5*time.Second, cfg.LivenessInterval())

	cfg.LivenessIntervalSecs = 30
	assert.Equal(t, 30*time.Second, cfg.LivenessInterval())
}

func TestApplyBundle(t *testing.T) {
	base := validConfig()
	base.Username = "file-user"
	base.Password = "file-pass"

	empty := base.ApplyBundle(flock.TrainerConfig{})
	assert.Equal(t, base, empty)

	full := base.ApplyBundle(flock.TrainerConfig{
		DomainID:  "bundle-domain",
		ClientID:  "bundle-client",
		ClientKey: "bundle-key",
		ChannelID: "bundle-channel",
	})
	assert.Equal(t, "bundle-domain", full.DomainID)
	assert.Equal(t, "bundle-client", full.Username)
	assert.Equal(t, "bundle-key", full.Password)
	assert.Equal(t, "bundle-channel", full.ChannelID)

	partial := base.ApplyBundle(flock.TrainerConfig{ClientKey: "rotated"})
	assert.Equal(t, "file-user", partial.Username)
	assert.Equal(t, "rotated", partial.Password)
	assert.Equal(t, base.DomainID, partial.DomainID)
}
