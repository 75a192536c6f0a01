package source

import (
	"bytes"
	"sort"

	"github.com/valyala/fastjson"

	"github.com/sievelabs/sieve/internal/model"
)

// lineParser decodes raw input lines into entries. Parsers are pooled since
// fastjson reuses its internal buffers across calls.
type lineParser struct {
	pool fastjson.ParserPool
}

// parse decodes one line. A JSON object whose values are all strings becomes
// a Structured entry with fields sorted ascending by name and duplicate names
// collapsed (last value wins). Anything else, including malformed JSON, is an
// Opaque entry with the trailing newline stripped. Decoding never fails.
func (lp *lineParser) parse(line []byte) model.Entry {
	p := lp.pool.Get()
	defer lp.pool.Put(p)

	v, err := p.ParseBytes(line)
	if err == nil && v.Type() == fastjson.TypeObject {
		if fields, ok := objectFields(v); ok {
			return model.Structured{Fields: fields}
		}
	}

	stripped := bytes.TrimSuffix(line, []byte("\n"))
	stripped = bytes.TrimSuffix(stripped, []byte("\r"))
	raw := make([]byte, len(stripped))
	copy(raw, stripped)
	return model.Opaque{Bytes: raw}
}

// objectFields flattens a JSON object into sorted, deduplicated fields.
// It reports false if any value is not a plain string.
func objectFields(v *fastjson.Value) ([]model.Field, bool) {
	obj, err := v.Object()
	if err != nil {
		return nil, false
	}

	fields := make([]model.Field, 0, obj.Len())
	allStrings := true
	obj.Visit(func(key []byte, value *fastjson.Value) {
		if value.Type() != fastjson.TypeString {
			allStrings = false
			return
		}
		sb, _ := value.StringBytes()
		fields = append(fields, model.Field{Name: string(key), Value: string(sb)})
	})
	if !allStrings {
		return nil, false
	}

	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})

	// collapse duplicate names, keeping the last occurrence in document order
	deduped := fields[:0]
	for i, f := range fields {
		if i+1 < len(fields) && fields[i+1].Name == f.Name {
			continue
		}
		deduped = append(deduped, f)
	}
	return deduped, true
}
