package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudPricing_String(t *testing.T) {
	tests := []struct {
		name    string
		pricing CloudPricing
		want    string
	}{
		{name: "dedicated", pricing: Dedicated, want: "Dedicated"},
		{name: "on-demand", pricing: OnDemand, want: "On-demand"},
		{name: "unknown", pricing: CloudPricing(42), want: "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pricing.String())
		})
	}
}

func TestCloudPricingEnum(t *testing.T) {
	tests := []struct {
		input   string
		want    CloudPricing
		wantErr bool
	}{
		{input: "Dedicated", want: Dedicated},
		{input: "", want: Dedicated},
		{input: "On-demand", want: OnDemand},
		{input: "ondemand", want: OnDemand},
		{input: "spot", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := CloudPricingEnum(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromDataToSpec_JSON(t *testing.T) {
	data := []byte(`{"lambda": 1000, "r_p": 0.05, "P_E": 0.3, "T_E_distr": "Determined",
		"C_C_pricing": "Dedicated", "W_cr": 0.0667, "search": {"strategy": "grid", "N_max": 50}}`)
	spec, err := FromDataToSpec[OptimizerData](data, "problem.json")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, spec.Lambda)
	assert.Equal(t, 0.3, spec.EdgeShare)
	assert.Equal(t, "Determined", spec.EdgeDistr)
	assert.Equal(t, "grid", spec.Search.Strategy)
	assert.Equal(t, 50, spec.Search.MaxDevices)
}

func TestLoadFile_YAML(t *testing.T) {
	content := `
nodes:
  - name: sensor
    kind: source
    rate: 10
  - name: cloud
    kind: cloud
    rate: 40
    revenueIndex: 0.5
links:
  - from: sensor
    to: cloud
    ratio: 0.5
`
	filename := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o600))

	spec, err := LoadFile[NetworkSpec](filename)
	require.NoError(t, err)
	require.Len(t, spec.Nodes, 2)
	assert.Equal(t, "source", spec.Nodes[0].Kind)
	assert.Equal(t, 0.5, spec.Nodes[1].RevenueIndex)
	require.Len(t, spec.Links, 1)
	require.NotNil(t, spec.Links[0].Ratio)
	assert.Equal(t, 0.5, *spec.Links[0].Ratio)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile[NetworkSpec](filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = FromDataToSpec[NetworkSpec]([]byte("x"), "topology.toml")
	assert.ErrorContains(t, err, "unsupported file extension")

	_, err = FromDataToSpec[NetworkSpec]([]byte("{"), "topology.json")
	assert.Error(t, err)
}
