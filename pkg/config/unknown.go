package config

import (
	"fmt"
	"sort"
	"strings"

	burntsushi "github.com/BurntSushi/toml"
	"github.com/agext/levenshtein"
)

// maxSuggestionDistance is the largest edit distance still offered as a
// "did you mean" suggestion.
const maxSuggestionDistance = 3

// knownKeys are every key a configuration may set, in dotted form
var knownKeys = []string{
	"init",
	"links",
	"steps",
	"settings",
	"settings.backup_dir",
	"settings.root",
	"settings.shell",
	"settings.step_timeout",
}

// tomlShadow mirrors the accepted TOML layout so BurntSushi metadata can
// report what it did not decode.
type tomlShadow struct {
	Init     []string `toml:"init"`
	Links    []string `toml:"links"`
	Steps    []string `toml:"steps"`
	Settings struct {
		Shell       string      `toml:"shell"`
		StepTimeout interface{} `toml:"step_timeout"`
		BackupDir   string      `toml:"backup_dir"`
		Root        string      `toml:"root"`
	} `toml:"settings"`
}

// unknownTOMLKeys returns the dotted keys of a TOML document that are not
// part of the configuration layout. A document BurntSushi cannot decode into
// the layout yields nothing; the shape checks report it instead.
func unknownTOMLKeys(data []byte) []string {
	var shadow tomlShadow
	md, err := burntsushi.Decode(string(data), &shadow)
	if err != nil {
		return nil
	}

	var keys []string
	for _, key := range md.Undecoded() {
		keys = append(keys, key.String())
	}
	sort.Strings(keys)
	return keys
}

// unknownFlatKeys returns the keys of a flattened koanf key list that are not
// part of the configuration layout.
func unknownFlatKeys(flat []string) []string {
	known := make(map[string]bool, len(knownKeys))
	for _, k := range knownKeys {
		known[k] = true
	}

	var keys []string
	for _, k := range flat {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// unknownKeyWarning formats one unknown key, with a suggestion when a known
// key is close enough.
func unknownKeyWarning(key string) string {
	if suggestion := closestKey(key); suggestion != "" {
		return fmt.Sprintf("unknown configuration key %q, did you mean %q?", key, suggestion)
	}
	return fmt.Sprintf("unknown configuration key %q", key)
}

// closestKey compares leaf names within the same table, so "settings.shel"
// suggests "settings.shell" and never a top-level key.
func closestKey(key string) string {
	prefix, leaf := splitKey(key)

	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, candidate := range knownKeys {
		candPrefix, candLeaf := splitKey(candidate)
		if candPrefix != prefix {
			continue
		}
		if d := levenshtein.Distance(leaf, candLeaf, nil); d < bestDist {
			bestDist = d
			best = candidate
		}
	}
	return best
}

func splitKey(key string) (prefix, leaf string) {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}
