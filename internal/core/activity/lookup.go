package activity

import "strings"

// Fields returns the record as a nested map keyed by its JSON field names. It
// is the view rule conditions and extractors address with dot paths.
func (r RawRecord) Fields() map[string]any {
	m := map[string]any{
		"id":         r.ID,
		"timestamp":  r.Timestamp,
		"device_id":  r.DeviceID,
		"session_id": r.SessionID,
		"type":       string(r.Type),
	}
	if r.Data != nil {
		m["data"] = r.Data
	}
	if r.Text != "" {
		m["text"] = r.Text
	}
	if r.Context != nil {
		ctx := map[string]any{}
		if r.Context.Application != "" {
			ctx["application"] = r.Context.Application
		}
		if r.Context.WindowTitle != "" {
			ctx["window_title"] = r.Context.WindowTitle
		}
		if r.Context.ProcessName != "" {
			ctx["process_name"] = r.Context.ProcessName
		}
		if r.Context.URL != "" {
			ctx["url"] = r.Context.URL
		}
		m["context"] = ctx
	}
	return m
}

// Lookup resolves a dot separated path such as "context.application" or
// "data.idle_time" against the record. The second return value is false when
// any segment is missing.
func (r RawRecord) Lookup(path string) (any, bool) {
	return LookupPath(r.Fields(), path)
}

// LookupPath walks nested maps following a dot separated path.
func LookupPath(root map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var cur any = root
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}
