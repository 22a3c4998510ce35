package route

// DedupeAndCap drops records whose id was already seen (first occurrence wins)
// and keeps at most maxPerMode records of each mode. Relative order is preserved.
func DedupeAndCap(records []RouteRecord, maxPerMode int) []RouteRecord {
	if maxPerMode <= 0 {
		maxPerMode = DefaultMaxPerMode
	}

	seen := make(map[string]struct{}, len(records))
	perMode := make(map[Mode]int)
	out := make([]RouteRecord, 0, len(records))

	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		if perMode[r.Mode] >= maxPerMode {
			continue
		}
		perMode[r.Mode]++
		out = append(out, r)
	}

	return out
}
