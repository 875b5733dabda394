package language

import (
	"encoding/json"
	"strings"
)

const inputPlaceholder = "{{INPUT}}"

// pythonEpilogue evaluates the input in the module scope of the candidate.
// Values holding instance fields anywhere inside lists, tuples, sets or
// dicts are dumped as key sorted JSON, instance fields read from __dict__
// and __slots__. Everything else goes through print. Exceptions become an
// "Error: <Name>: <message>" line on stdout.
const pythonEpilogue = `def __coderun_epilogue(__source):
    import json as __json
    import types as __types

    __plain = (type, __types.ModuleType, __types.FunctionType,
               __types.BuiltinFunctionType, __types.MethodType, BaseException,
               str, bytes, bytearray, int, float, complex,
               list, tuple, dict, set, frozenset)

    def __slot_fields(__obj):
        __names = {}
        for __cls in type(__obj).__mro__:
            __slots = __cls.__dict__.get("__slots__", ())
            if isinstance(__slots, str):
                __slots = (__slots,)
            for __name in __slots:
                if __name in ("__dict__", "__weakref__") or __name in __names:
                    continue
                __attr = __name
                if __name.startswith("__") and not __name.endswith("__"):
                    __attr = "_" + __cls.__name__.lstrip("_") + __name
                if hasattr(__obj, __attr):
                    __names[__name] = getattr(__obj, __attr)
        return __names

    def __has_fields(__obj):
        if isinstance(__obj, __plain):
            return False
        return hasattr(__obj, "__dict__") or len(__slot_fields(__obj)) > 0

    def __holds_fields(__obj, __seen):
        if __has_fields(__obj):
            return True
        if id(__obj) in __seen:
            return False
        if isinstance(__obj, dict):
            __seen.add(id(__obj))
            return any(__holds_fields(__v, __seen) for __v in __obj.values())
        if isinstance(__obj, (list, tuple, set, frozenset)):
            __seen.add(id(__obj))
            return any(__holds_fields(__v, __seen) for __v in __obj)
        return False

    def __fields(__obj):
        if __has_fields(__obj):
            __state = dict(vars(__obj)) if hasattr(__obj, "__dict__") else {}
            __state.update(__slot_fields(__obj))
            return __state
        if isinstance(__obj, (set, frozenset)):
            return sorted(__obj, key=lambda __v: __json.dumps(
                __v, sort_keys=True, default=__fields))
        return repr(__obj)

    try:
        __value = eval(__source, globals())
        if __holds_fields(__value, set()):
            print(__json.dumps(__value, sort_keys=True, default=__fields))
        else:
            print(__value)
    except BaseException as __err:
        print("Error: %s: %s" % (type(__err).__name__, __err))


__coderun_epilogue(` + inputPlaceholder + `)
`

var _ Language = Python{}

// Python runs code with a CPython 3 interpreter
type Python struct{}

// Name returns python
func (Python) Name() string {
	return "python"
}

// SourceSuffix returns .py
func (Python) SourceSuffix() string {
	return ".py"
}

// Epilogue embeds input as a string literal so it is parsed only by eval
func (Python) Epilogue(input string) (string, error) {
	if err := ValidateInput(input); err != nil {
		return "", err
	}
	// a JSON string is a valid python string literal
	lit, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return strings.Replace(pythonEpilogue, inputPlaceholder, string(lit), 1), nil
}
