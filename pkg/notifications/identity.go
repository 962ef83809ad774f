package notifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ResolveID coerces a loosely-typed identifier into a positive int64.
// Host runtimes hand ids through as ints, floats, numeric strings or
// json.Number depending on the call path; anything that does not coerce to a
// positive integer fails with ErrInvalidRecipient.
func ResolveID(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, errors.Join(ErrInvalidRecipient, errors.New("nil identifier"))
	case int:
		return positive(int64(v))
	case int8:
		return positive(int64(v))
	case int16:
		return positive(int64(v))
	case int32:
		return positive(int64(v))
	case int64:
		return positive(v)
	case uint:
		return positiveUint(uint64(v))
	case uint8:
		return positive(int64(v))
	case uint16:
		return positive(int64(v))
	case uint32:
		return positive(int64(v))
	case uint64:
		return positiveUint(v)
	case float32:
		return positiveFloat(float64(v))
	case float64:
		return positiveFloat(v)
	case json.Number:
		return resolveString(v.String())
	case string:
		return resolveString(v)
	default:
		return 0, errors.Join(ErrInvalidRecipient, fmt.Errorf("unsupported identifier type %T", raw))
	}
}

func positive(id int64) (int64, error) {
	if id <= 0 {
		return 0, errors.Join(ErrInvalidRecipient, fmt.Errorf("identifier %d is not positive", id))
	}
	return id, nil
}

func positiveUint(id uint64) (int64, error) {
	if id == 0 || id > math.MaxInt64 {
		return 0, errors.Join(ErrInvalidRecipient, fmt.Errorf("identifier %d is out of range", id))
	}
	return int64(id), nil
}

func positiveFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Join(ErrInvalidRecipient, fmt.Errorf("identifier %v is not an integer", f))
	}
	return positive(int64(f))
}

func resolveString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Join(ErrInvalidRecipient, errors.New("empty identifier"))
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Floats serialized as strings ("42.0") still appear in legacy call
		// paths, accept them when the value is integral.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, errors.Join(ErrInvalidRecipient, err)
		}
		return positiveFloat(f)
	}
	return positive(id)
}
