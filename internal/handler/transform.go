package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/lisahq/lisaflow/pkg/api"
)

var (
	ErrTransformConfig  = errors.New("transform config required")
	ErrEncodeInputs     = errors.New("failed to encode inputs")
)

// TransformHandler projects fields of the merged inputs into a new output
// map. Mappings route a gjson path to an output name; Pick copies top-level
// fields through unchanged. Paths that resolve to nothing yield no output
// field rather than an error
func TransformHandler(
	_ context.Context, node *api.ExecutionNode, inputs api.Values,
) (api.Values, error) {
	cfg := node.Transform
	if cfg == nil {
		cfg = transformFromConfig(node.Config)
	}
	if cfg == nil || len(cfg.Mappings) == 0 && len(cfg.Pick) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTransformConfig, node.ID)
	}

	doc, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeInputs, err)
	}

	outputs := api.Values{}
	for _, name := range cfg.Pick {
		if v, ok := inputs[name]; ok {
			outputs[name] = v
		}
	}
	for name, path := range cfg.Mappings {
		if res := gjson.GetBytes(doc, path); res.Exists() {
			outputs[name] = res.Value()
		}
	}
	return outputs, nil
}

// transformFromConfig supports nodes declared through the open config bag
// instead of the typed variant
func transformFromConfig(config api.Values) *api.TransformConfig {
	raw, ok := config["mappings"]
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	cfg := &api.TransformConfig{Mappings: map[string]string{}}
	for name, path := range m {
		if p, ok := path.(string); ok {
			cfg.Mappings[name] = p
		}
	}
	return cfg
}
