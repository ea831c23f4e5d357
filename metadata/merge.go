package metadata

// Merge returns a new map holding base overlaid with extra. Keys in extra
// win, except that empty string values never replace existing ones, so a
// converter-supplied author is promoted while a blank one is ignored.
func Merge(base, extra map[string]any) map[string]any {
	out := Copy(base)
	for k, v := range extra {
		if s, ok := v.(string); ok && s == "" {
			if _, exists := out[k]; exists {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Copy returns a shallow copy of m. A nil map yields an empty map.
func Copy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
