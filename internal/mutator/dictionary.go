package mutator

// LoadDictionary turns the raw configured dictionary tokens (spec.md
// §6's `dictionary` CLI/config option, a list of byte tokens) into the
// Dictionary the havoc primitives read from. Empty tokens are dropped;
// an empty or unset dictionary yields a nil Dictionary, which the
// dictionary-insert and dictionary-overwrite primitives treat as "not
// configured" and no-op.
func LoadDictionary(tokens []string) Dictionary {
	var dict Dictionary
	for _, t := range tokens {
		if t == "" {
			continue
		}
		dict = append(dict, []byte(t))
	}
	return dict
}
