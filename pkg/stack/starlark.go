package stack

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Evaluator executes the manifest's computed-variable expressions in a
// sandboxed Starlark environment.
type Evaluator struct {
	timeout time.Duration
}

// NewEvaluator creates a Starlark evaluator.
func NewEvaluator(timeout time.Duration) *Evaluator {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Evaluator{timeout: timeout}
}

// EvaluateComputed evaluates each computed expression over the plain
// variables and returns the combined variable map. Expressions are
// evaluated in name order; later expressions see earlier results.
func (e *Evaluator) EvaluateComputed(ctx context.Context, variables map[string]interface{}, computed map[string]string) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(variables)+len(computed))
	for k, v := range variables {
		result[k] = v
	}
	if len(computed) == 0 {
		return result, nil
	}

	evalCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	names := make([]string, 0, len(computed))
	for name := range computed {
		names = append(names, name)
	}
	sort.Strings(names)

	done := make(chan error, 1)
	go func() {
		done <- e.evaluateSync(result, names, computed)
	}()

	select {
	case <-evalCtx.Done():
		return nil, fmt.Errorf("starlark evaluation timeout after %v", e.timeout)
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func (e *Evaluator) evaluateSync(result map[string]interface{}, names []string, computed map[string]string) error {
	thread := &starlark.Thread{
		Name: "stackform",
		Print: func(_ *starlark.Thread, msg string) {
			// Print output is discarded.
		},
	}

	for _, name := range names {
		predeclared := starlark.StringDict{
			"struct": starlarkstruct.Default,
		}
		vars := starlark.NewDict(len(result))
		for k, v := range result {
			sv, err := toStarlarkValue(v)
			if err != nil {
				return fmt.Errorf("failed to convert variable %s: %w", k, err)
			}
			if err := vars.SetKey(starlark.String(k), sv); err != nil {
				return err
			}
		}
		predeclared["vars"] = vars

		val, err := starlark.Eval(thread, name, computed[name], predeclared)
		if err != nil {
			return fmt.Errorf("computed variable %s: %w", name, err)
		}

		goVal, err := fromStarlarkValue(val)
		if err != nil {
			return fmt.Errorf("computed variable %s: %w", name, err)
		}
		result[name] = goVal
	}
	return nil
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlarkValue converts a Starlark value to a Go value.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case starlark.Tuple:
		list := make([]interface{}, len(val))
		for i, item := range val {
			goVal, err := fromStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = goVal
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
