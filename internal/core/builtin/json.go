// Copyright 2024 The Nix-Compiler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builtin

import (
	"encoding/json"
	"sort"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
)

// registerJSON wires builtins.toJSON and builtins.fromJSON, a thin
// bridge between Values and encoding/json's plain-interface trees.
func registerJSON(b *adt.Bindings) {
	set1(b, "toJSON", biToJSON)
	set1(b, "fromJSON", biFromJSON)
}

func biToJSON(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	v, bot := force(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	jv, bot := toJSONValue(ctx, v, bt)
	if bot != nil {
		return nil, bot
	}
	data, err := json.Marshal(jv)
	if err != nil {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "toJSON: %v", err)
	}
	return adt.String(data), nil
}

// toJSONValue converts a forced Value into a plain Go value encodable by
// encoding/json, forcing recursively through lists and attribute values
// (toJSON needs the whole tree, unlike most core operations).
func toJSONValue(ctx *adt.OpContext, v adt.Value, bt *adt.Backtrace) (interface{}, *adt.Bottom) {
	switch x := v.(type) {
	case adt.Null:
		return nil, nil
	case adt.Bool:
		return bool(x), nil
	case adt.Int:
		return int64(x), nil
	case adt.Float:
		return float64(x), nil
	case adt.String:
		return string(x), nil
	case adt.Path:
		return string(x), nil
	case *adt.List:
		out := make([]interface{}, len(x.Elems))
		for i, elem := range x.Elems {
			ev, bot := elem.Force(ctx, bt)
			if bot != nil {
				return nil, bot
			}
			jv, bot := toJSONValue(ctx, ev, bt)
			if bot != nil {
				return nil, bot
			}
			out[i] = jv
		}
		return out, nil
	case *adt.AttrSet:
		// A derivation serializes as its output store path, the same
		// shortcut nix itself takes (and descending would cycle through
		// the per-output subviews).
		if x.IsDerivation() {
			if th, ok := x.Get(ctx, "outPath"); ok {
				pv, bot := th.Force(ctx, bt)
				if bot != nil {
					return nil, bot
				}
				if s, ok := adt.CastToString(pv); ok {
					return s, nil
				}
			}
			return nil, typeErr(bt, "a realizable derivation", v)
		}
		out := make(map[string]interface{}, x.Len(ctx))
		for _, k := range x.Keys(ctx) {
			th, _ := x.Get(ctx, k)
			ev, bot := th.Force(ctx, bt)
			if bot != nil {
				return nil, bot
			}
			jv, bot := toJSONValue(ctx, ev, bt)
			if bot != nil {
				return nil, bot
			}
			out[k] = jv
		}
		return out, nil
	default:
		return nil, typeErr(bt, "a JSON-representable value", v)
	}
}

func biFromJSON(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	s, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	var raw interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "fromJSON: %v", err)
	}
	return fromJSONValue(raw), nil
}

func fromJSONValue(raw interface{}) adt.Value {
	switch x := raw.(type) {
	case nil:
		return adt.Null{}
	case bool:
		return adt.Bool(x)
	case float64:
		if x == float64(int64(x)) {
			return adt.Int(int64(x))
		}
		return adt.Float(x)
	case string:
		return adt.String(x)
	case []interface{}:
		elems := make([]*adt.Thunk, len(x))
		for i, e := range x {
			elems[i] = adt.NewConcreteThunk(fromJSONValue(e))
		}
		return &adt.List{Elems: elems}
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b := adt.NewBindings()
		for _, k := range keys {
			b.Set(k, adt.NewConcreteThunk(fromJSONValue(x[k])))
		}
		return adt.NewAttrSet(b)
	default:
		return adt.Null{}
	}
}
