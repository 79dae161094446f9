package scoring

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// WeightTable maps a category name to its raw weight. Raw weights may be zero
// or negative; see NormalizeWeights.
type WeightTable map[string]float64

// Weights holds one table per scoring group.
type Weights struct {
	Resume WeightTable `json:"resume"`
	Job    WeightTable `json:"job"`
	Match  WeightTable `json:"match"`
}

// OverallWeights blends the resume and match totals into an iteration score.
type OverallWeights struct {
	Resume float64 `json:"resume" mapstructure:"resume"`
	Match  float64 `json:"match" mapstructure:"match"`
}

// Table returns the overall weights as a weight table.
func (o OverallWeights) Table() WeightTable {
	return WeightTable{"resume": o.Resume, "match": o.Match}
}

// DefaultWeights returns the built-in category weights.
func DefaultWeights() Weights {
	return Weights{
		Resume: WeightTable{
			CategoryCompleteness:      0.30,
			CategorySkillsQuality:     0.20,
			CategoryExperienceQuality: 0.30,
			CategoryImpact:            0.20,
		},
		Job: WeightTable{
			CategoryCompleteness:             0.35,
			CategoryClarity:                  0.35,
			CategoryCompensationTransparency: 0.15,
			CategoryLinkQuality:              0.15,
		},
		Match: WeightTable{
			CategoryKeywordOverlap: 0.45,
			CategorySkillsOverlap:  0.35,
			CategoryRoleAlignment:  0.20,
		},
	}
}

// DefaultOverallWeights returns the built-in resume/match blend.
func DefaultOverallWeights() OverallWeights {
	return OverallWeights{Resume: 0.45, Match: 0.55}
}

// Normalized returns a copy with every group normalized.
func (w Weights) Normalized() Weights {
	return Weights{
		Resume: NormalizeWeights(w.Resume),
		Job:    NormalizeWeights(w.Job),
		Match:  NormalizeWeights(w.Match),
	}
}

// NormalizeWeights rescales the strictly positive weights so they sum to 1.
// Every other entry gets 0. If no weight is positive, all entries are 0.
func NormalizeWeights(raw WeightTable) WeightTable {
	sum := 0.0
	for _, v := range raw {
		if v > 0 {
			sum += v
		}
	}

	out := make(WeightTable, len(raw))
	for k, v := range raw {
		if sum > 0 && v > 0 {
			out[k] = v / sum
		} else {
			out[k] = 0
		}
	}
	return out
}

// LoadWeights reads per-group weights from the document at path. Empty,
// missing or unreadable documents yield DefaultWeights.
func LoadWeights(path string) Weights {
	w, _ := loadWeights(path)
	return w
}

// LoadOverallWeights reads the [overall] table of the document at path.
// Empty, missing or unreadable documents yield DefaultOverallWeights.
func LoadOverallWeights(path string) OverallWeights {
	o, _ := loadOverallWeights(path)
	return o
}

var errNoWeightsFile = errors.New("no weights file configured")

// readWeightsDocument parses the weights document. The format follows the
// file extension; files without one are read as TOML.
func readWeightsDocument(path string) (map[string]any, error) {
	if path == "" {
		return nil, errNoWeightsFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("toml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read weights %s: %w", path, err)
	}
	return v.AllSettings(), nil
}

func loadWeights(path string) (Weights, error) {
	w := DefaultWeights()

	doc, err := readWeightsDocument(path)
	if err != nil {
		return w, err
	}

	groups := []struct {
		name  string
		table WeightTable
	}{
		{"resume", w.Resume},
		{"job", w.Job},
		{"match", w.Match},
	}

	var errs []error
	for _, g := range groups {
		tbl, ok := groupTable(doc[g.name])
		if !ok {
			continue
		}

		parsed := WeightTable{}
		if err := decodeNumeric(tbl, &parsed); err != nil {
			errs = append(errs, fmt.Errorf("group %s: %w", g.name, err))
			continue
		}
		maps.Copy(g.table, parsed)
	}

	return w, errors.Join(errs...)
}

func loadOverallWeights(path string) (OverallWeights, error) {
	o := DefaultOverallWeights()

	doc, err := readWeightsDocument(path)
	if err != nil {
		return o, err
	}

	overall, ok := doc["overall"].(map[string]any)
	if !ok {
		return o, nil
	}

	// Only [overall.weights] and [overall.weight] are recognized here.
	raw, found := overall["weights"]
	if !found {
		raw, found = overall["weight"]
	}
	tbl, ok := raw.(map[string]any)
	if !found || !ok {
		return o, nil
	}

	var decoded struct {
		Resume *float64 `mapstructure:"resume"`
		Match  *float64 `mapstructure:"match"`
	}
	if err := decodeNumeric(tbl, &decoded); err != nil {
		return o, fmt.Errorf("overall weights: %w", err)
	}
	if decoded.Resume != nil {
		o.Resume = *decoded.Resume
	}
	if decoded.Match != nil {
		o.Match = *decoded.Match
	}
	return o, nil
}

// groupTable resolves the weight table of a group. [group.weights] wins over
// [group.weight], which wins over the bare [group] table.
func groupTable(raw any) (map[string]any, bool) {
	group, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}

	for _, key := range []string{"weights", "weight"} {
		if nested, found := group[key]; found {
			tbl, ok := nested.(map[string]any)
			return tbl, ok
		}
	}
	return group, true
}

// decodeNumeric decodes a table into out, keeping only numeric leaves.
func decodeNumeric(tbl map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: numericLeavesHook,
		Result:     out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(tbl)
}

func numericLeavesHook(from reflect.Type, _ reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Map {
		return data, nil
	}

	tbl, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}

	out := make(map[string]any, len(tbl))
	for k, v := range tbl {
		if f, ok := toFloat(v); ok {
			out[k] = f
		}
	}
	return out, nil
}

// toFloat converts the numeric types produced by the TOML, YAML and JSON
// decoders. Booleans are not numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
