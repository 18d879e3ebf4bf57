package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// pricing model of cloud servers
type CloudPricing int

const (
	Dedicated CloudPricing = iota // 0 : servers are paid for whether busy or idle
	OnDemand                      // 1 : servers are paid for in proportion to their utilization
)

func (p CloudPricing) String() string {
	switch p {
	case Dedicated:
		return "Dedicated"
	case OnDemand:
		return "On-demand"
	default:
		return "Unknown"
	}
}

// CloudPricingEnum parses a pricing name; unknown names are an error
func CloudPricingEnum(s string) (CloudPricing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dedicated":
		return Dedicated, nil
	case "on-demand", "ondemand", "on_demand":
		return OnDemand, nil
	default:
		return Dedicated, fmt.Errorf("unknown cloud pricing %q", s)
	}
}

// unmarshal a byte array to its corresponding object, format selected by name extension
func FromDataToSpec[T any](byteValue []byte, name string) (*T, error) {
	var d T
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(byteValue, &d); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
	case ".json", "":
		if err := json.Unmarshal(byteValue, &d); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported file extension %q", ext)
	}
	return &d, nil
}

// read a JSON or YAML file into its corresponding object
func LoadFile[T any](filename string) (*T, error) {
	byteValue, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return FromDataToSpec[T](byteValue, filename)
}
