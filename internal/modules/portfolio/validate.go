package portfolio

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateRequest enforces the input contract before any computation starts:
// non-empty duplicate-free asset list, aligned return histories, and a
// well-formed configuration.
func validateRequest(req *Request) error {
	if len(req.Assets) == 0 {
		return fmt.Errorf("assets must be non-empty")
	}

	seen := make(map[string]struct{}, len(req.Assets))
	for _, asset := range req.Assets {
		if asset == "" {
			return fmt.Errorf("asset identifiers must be non-empty")
		}
		if _, dup := seen[asset]; dup {
			return fmt.Errorf("duplicate asset %q", asset)
		}
		seen[asset] = struct{}{}
	}

	var histLen int
	for i, asset := range req.Assets {
		series, ok := req.ReturnHistory[asset]
		if !ok {
			return fmt.Errorf("missing return history for asset %s", asset)
		}
		if i == 0 {
			histLen = len(series)
		} else if len(series) != histLen {
			return fmt.Errorf("return history for asset %s has %d periods, expected %d (histories must be aligned)",
				asset, len(series), histLen)
		}
	}

	if err := validate.Struct(req.Config); err != nil {
		return fmt.Errorf("invalid request config: %w", err)
	}

	if req.Config.MinWeight > req.Config.MaxWeight {
		return fmt.Errorf("min_weight %.4f exceeds max_weight %.4f", req.Config.MinWeight, req.Config.MaxWeight)
	}
	if req.Config.ShrinkageMethod == "custom" && req.Config.ShrinkageValue == nil {
		return fmt.Errorf("shrinkage_value is required when shrinkage_method is custom")
	}

	return nil
}

// requireYields checks the yield inputs needed by income objectives.
func requireYields(req *Request) error {
	for _, asset := range req.Assets {
		if _, ok := req.Yields[asset]; !ok {
			return fmt.Errorf("objective %s requires a yield for asset %s", req.Config.Objective, asset)
		}
	}
	return nil
}

// requireDividends checks the dividend histories needed by growth objectives
// and forecasts.
func requireDividends(req *Request) error {
	for _, asset := range req.Assets {
		if len(req.Dividends[asset]) == 0 {
			return fmt.Errorf("asset %s has no dividend history", asset)
		}
	}
	return nil
}
