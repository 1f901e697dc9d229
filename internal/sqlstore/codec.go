package sqlstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cella-health/cella/pkg/types"
)

// encodeValue converts a caller-supplied value into the value bound for
// column c. Rows usually arrive decoded from JSON, so numbers are float64
// and times are RFC 3339 strings.
func (s *Store) encodeValue(c types.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Kind {
	case types.KindText:
		switch x := v.(type) {
		case string:
			return x, nil
		case fmt.Stringer:
			return x.String(), nil
		}
	case types.KindInteger:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case json.Number:
			return x.Int64()
		case string:
			return strconv.ParseInt(x, 10, 64)
		}
	case types.KindReal:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case json.Number:
			return x.Float64()
		}
	case types.KindBool:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case types.KindTime:
		switch x := v.(type) {
		case time.Time:
			return s.dialect.EncodeTime(x), nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, fmt.Errorf("%w: column %s: %v", types.ErrInvalidData, c.Name, err)
			}
			return s.dialect.EncodeTime(t), nil
		}
	case types.KindJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", types.ErrInvalidData, c.Name, err)
		}
		return string(data), nil
	}
	return nil, fmt.Errorf("%w: column %s expects %s, got %T", types.ErrInvalidData, c.Name, c.Kind, v)
}

// decodeValue converts a scanned driver value back into the Go value callers
// see in a Row. Columns unknown to the registry pass through with byte
// slices turned into strings.
func decodeValue(c types.Column, known bool, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil || !known {
		return v
	}
	switch c.Kind {
	case types.KindBool:
		switch x := v.(type) {
		case int64:
			return x != 0
		case string:
			if b, err := strconv.ParseBool(x); err == nil {
				return b
			}
		}
	case types.KindTime:
		if x, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
				return t.UTC()
			}
		}
		if x, ok := v.(time.Time); ok {
			return x.UTC()
		}
	case types.KindJSON:
		if x, ok := v.(string); ok {
			var out any
			if err := json.Unmarshal([]byte(x), &out); err == nil {
				return out
			}
		}
	case types.KindReal:
		if x, ok := v.(int64); ok {
			return float64(x)
		}
	}
	return v
}
