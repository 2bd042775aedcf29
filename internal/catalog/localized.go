package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// LocalizedText is a translatable string from the discovery format.
// The authority publishes either a plain string or an object mapping
// language tags to translations; a plain string is stored under the
// empty tag.
type LocalizedText map[string]string

// UnmarshalJSON accepts both the plain-string and the per-language
// object encodings.
func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*t = LocalizedText{"": plain}
		return nil
	}

	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("localized text must be a string or a map of strings: %w", err)
	}
	*t = LocalizedText(tagged)
	return nil
}

// MarshalJSON emits the compact plain-string form when there is only an
// untagged value.
func (t LocalizedText) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		if plain, ok := t[""]; ok {
			return json.Marshal(plain)
		}
	}
	return json.Marshal(map[string]string(t))
}

// Get returns the best translation for the given language tag: an
// exact match, then a prefix match ("en" matches "en-US"), then
// English, then any value in deterministic order. Empty when no text
// is available.
func (t LocalizedText) Get(lang string) string {
	if len(t) == 0 {
		return ""
	}

	if v, ok := t[lang]; ok {
		return v
	}

	if lang != "" {
		for tag, v := range t {
			if strings.HasPrefix(tag, lang+"-") || strings.HasPrefix(lang, tag+"-") {
				return v
			}
		}
	}

	if v, ok := t[""]; ok {
		return v
	}
	if v, ok := t["en"]; ok {
		return v
	}

	tags := make([]string, 0, len(t))
	for tag := range t {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return t[tags[0]]
}
