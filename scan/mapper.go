package scan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/manojoshi/querykit/schema"
)

// DecodeSearch decodes an FT.SEARCH reply into rows of T and returns the
// server-side total alongside them. The total counts every match, not only
// the page that was returned.
func DecodeSearch[T any](ent *schema.Entity, raw any) ([]T, int, error) {
	reply, err := normalize(raw)
	if err != nil {
		return nil, 0, err
	}
	total, hits, err := extractHits(reply)
	if err != nil {
		return nil, 0, err
	}

	out := make([]T, len(hits))
	for i, kv := range hits {
		m, err := toStrMap(kv)
		if err != nil {
			return nil, 0, err
		}
		if out[i], err = Decode[T](ent, m); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// Total reads only the match count of an FT.SEARCH reply (as sent with
// NOCONTENT LIMIT 0 0).
func Total(raw any) (int, error) {
	reply, err := normalize(raw)
	if err != nil {
		return 0, err
	}
	switch r := reply.(type) {
	case map[string]interface{}:
		n, ok := toInt64(r["total_results"])
		if !ok {
			return 0, errors.New("scan: missing total_results")
		}
		return int(n), nil
	case []interface{}:
		if len(r) == 0 {
			return 0, nil
		}
		n, ok := toInt64(r[0])
		if !ok {
			return 0, errors.New("scan: first array element is not an integer")
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("scan: unrecognised reply %T", reply)
}

func normalize(raw any) (any, error) {
	switch v := raw.(type) {
	case *redis.SliceCmd:
		return v.Val(), nil
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		return v, nil
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[toStr(k)] = val
		}
		return m, nil
	default:
		return nil, fmt.Errorf("scan: unsupported reply type %T", raw)
	}
}

// extractHits returns total matches and the field payload of every hit.
func extractHits(reply any) (int, []any, error) {
	// RESP-3: top-level map
	if top, ok := reply.(map[string]interface{}); ok {
		resultsRaw, ok := top["results"].([]interface{})
		if !ok {
			return 0, nil, errors.New("scan: missing results array")
		}
		hits := make([]any, len(resultsRaw))
		for i, r := range resultsRaw {
			var hit map[string]interface{}
			switch h := r.(type) {
			case map[string]interface{}:
				hit = h
			case map[interface{}]interface{}:
				hit = make(map[string]interface{}, len(h))
				for k, v := range h {
					hit[toStr(k)] = v
				}
			default:
				return 0, nil, fmt.Errorf("scan: unknown hit type %T", r)
			}
			if ea, ok := hit["extra_attributes"]; ok {
				hits[i] = ea
			} else if vals, ok := hit["values"]; ok {
				hits[i] = vals
			} else {
				hits[i] = map[string]interface{}{}
			}
		}

		total := len(hits)
		if n, ok := toInt64(top["total_results"]); ok {
			total = int(n)
		}
		return total, hits, nil
	}

	// RESP-2: [total, id1, fields1, id2, fields2, ...]
	arr, ok := reply.([]interface{})
	if !ok {
		return 0, nil, fmt.Errorf("scan: unrecognised reply %T", reply)
	}
	if len(arr) == 0 {
		return 0, nil, nil
	}
	count, ok := toInt64(arr[0])
	if !ok {
		return 0, nil, errors.New("scan: first array element is not an integer")
	}
	if (len(arr)-1)%2 != 0 {
		return 0, nil, errors.New("scan: reply has no field lists (NOCONTENT?)")
	}
	hits := make([]any, 0, (len(arr)-1)/2)
	for i := 2; i < len(arr); i += 2 {
		hits = append(hits, arr[i])
	}
	return int(count), hits, nil
}

func toStrMap(v any) (map[string]string, error) {
	switch t := v.(type) {
	case []interface{}: // RESP-2 KV list
		m := make(map[string]string, len(t)/2)
		for i := 0; i+1 < len(t); i += 2 {
			m[toStr(t[i])] = toStr(t[i+1])
		}
		return m, nil

	case map[interface{}]interface{}: // RESP-3 extra_attributes
		m := make(map[string]string, len(t))
		for k, v := range t {
			m[toStr(k)] = toStr(v)
		}
		return m, nil

	case map[string]interface{}:
		m := make(map[string]string, len(t))
		for k, v := range t {
			m[k] = toStr(v)
		}
		return m, nil

	case map[string]string:
		return t, nil

	default:
		return nil, fmt.Errorf("scan: unsupported kv type %T", v)
	}
}

func toStr(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
