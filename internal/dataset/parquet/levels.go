package parquet

// field describes how a top-level column's leaf entries map onto rows.
//
// topDL is the definition level at which the row value itself is present;
// repDL is the level at which a list element exists; maxDL is the level of
// a non-null leaf value.
type field struct {
	list  bool
	topDL int32
	repDL int32
	maxDL int32
}

// assemble groups leaf entries into one value per row. Flat columns yield
// the leaf value or nil. List columns yield []any (nil for a null list),
// with nil entries for null elements.
func assemble(values []any, rls, dls []int32, f field, convert func(any) any) []any {
	if !f.list {
		out := make([]any, len(values))
		for i, v := range values {
			if dls[i] < f.maxDL || v == nil {
				continue
			}
			out[i] = convert(v)
		}
		return out
	}

	var out []any
	cur := -1
	for i := range values {
		if rls[i] == 0 {
			if dls[i] < f.topDL {
				out = append(out, nil)
				cur = -1
				continue
			}
			out = append(out, []any{})
			cur = len(out) - 1
		}
		if cur < 0 || dls[i] < f.repDL {
			continue
		}
		var elem any
		if dls[i] >= f.maxDL && values[i] != nil {
			elem = convert(values[i])
		}
		out[cur] = append(out[cur].([]any), elem)
	}
	return out
}
