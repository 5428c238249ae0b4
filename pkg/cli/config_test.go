package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveProfile_CurrentProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "staging",
		Profiles: map[string]Profile{
			"staging": {Host: "https://staging.example.com"},
			"prod":    {Host: "https://prod.example.com"},
		},
	}

	p := cfg.ActiveProfile("")
	assert.Equal(t, "https://staging.example.com", p.Host)
}

func TestActiveProfile_Override(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "staging",
		Profiles: map[string]Profile{
			"staging": {Host: "https://staging.example.com"},
			"prod":    {Host: "https://prod.example.com"},
		},
	}

	p := cfg.ActiveProfile("prod")
	assert.Equal(t, "https://prod.example.com", p.Host)
}

func TestActiveProfile_Missing(t *testing.T) {
	cfg := &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}

	p := cfg.ActiveProfile("nope")
	assert.Equal(t, Profile{}, p)
}

func TestSaveAndLoadUserConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: "http://localhost:8080", Token: "tok", Output: "json"},
		},
	}
	require.NoError(t, SaveUserConfig(in))

	out, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "default", out.CurrentProfile)
	assert.Equal(t, in.Profiles["default"], out.Profiles["default"])
}

func TestMaskConfig_HidesTokens(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: "http://localhost:8080", Token: "secret-token"},
			"empty":   {Host: "http://other:8080"},
		},
	}

	masked := maskConfig(cfg)
	assert.Equal(t, "********", masked.Profiles["default"].Token)
	assert.Empty(t, masked.Profiles["empty"].Token)
	assert.Equal(t, "secret-token", cfg.Profiles["default"].Token, "original untouched")
}
