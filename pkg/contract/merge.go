package contract

// Coalesce returns the override value when set, the default otherwise.
// Modules use pointer fields for optional overrides so that zero is a
// legal explicit value.
func Coalesce[T any](override *T, def T) T {
	if override != nil {
		return *override
	}
	return def
}

// MergeStringMaps returns a copy of base with override entries applied on
// top. Neither input is mutated.
func MergeStringMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// MergeTags merges stack-level default tags with module tags, module tags
// winning on conflict.
func MergeTags(defaults, tags map[string]string) map[string]string {
	return MergeStringMaps(defaults, tags)
}
