package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))

	out, err := json.Marshal(Duration(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(out))
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 100ms\nb: 5000\n"), &v))
	assert.Equal(t, 100*time.Millisecond, v.A.Duration())
	assert.Equal(t, 5*time.Microsecond, v.B.Duration())

	assert.Error(t, yaml.Unmarshal([]byte("a: [1, 2]\n"), &v))
	assert.Error(t, yaml.Unmarshal([]byte("a: later\n"), &v))

	out, err := yaml.Marshal(struct {
		A Duration `yaml:"a"`
	}{Duration(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, "a: 1m0s\n", string(out))
	assert.Equal(t, "1m0s", Duration(time.Minute).String())
}
