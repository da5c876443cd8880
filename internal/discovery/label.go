package discovery

import (
	"encoding/json"
	"sort"

	"golang.org/x/text/language"
)

// labelText flattens a IIIF label into a single display string. Labels
// appear as a plain string (v2), a {"@value": ...} object, a list of either,
// or a v3 language map {"en": ["..."], "none": ["..."]}. English is
// preferred when a language map offers a choice.
func labelText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if text := labelText(item); text != "" {
				return text
			}
		}
		return ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}

	// v2 value object
	if v, ok := obj["@value"]; ok {
		return labelText(v)
	}

	// v3 language map
	return languageMapText(obj)
}

// languageMapText picks the best entry from a v3 language map.
func languageMapText(obj map[string]json.RawMessage) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Build a matcher over the parseable language tags. Keys like "none"
	// are not BCP 47 and only serve as a fallback.
	var tags []language.Tag
	var tagged []string
	for _, k := range keys {
		tag, err := language.Parse(k)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		tagged = append(tagged, k)
	}

	if len(tags) > 0 {
		matcher := language.NewMatcher(tags)
		_, idx, _ := matcher.Match(language.English)
		if text := labelText(obj[tagged[idx]]); text != "" {
			return text
		}
	}

	for _, k := range keys {
		if text := labelText(obj[k]); text != "" {
			return text
		}
	}
	return ""
}
