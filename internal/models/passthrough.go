package models

import (
	"encoding/json"
	"strings"
)

var (
	candidateKeys     = []string{"name", "title", "infoHash", "fileIdx", "url", "sources", "behaviorHints"}
	behaviorHintsKeys = []string{"bingeGroup", "filename", "videoSize", "notWebReady"}
)

// UnmarshalJSON decodes the declared fields and keeps every other key.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type plain Candidate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownKeys(data, candidateKeys)
	if err != nil {
		return err
	}
	p.Extra = extra
	*c = Candidate(p)
	return nil
}

// MarshalJSON encodes the declared fields plus the kept upstream keys.
// Kept keys never shadow a declared field, so cleared fields stay cleared.
func (c Candidate) MarshalJSON() ([]byte, error) {
	type plain Candidate
	data, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	return withExtra(data, c.Extra)
}

// UnmarshalJSON decodes the declared hints and keeps every other key.
func (b *BehaviorHints) UnmarshalJSON(data []byte) error {
	type plain BehaviorHints
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownKeys(data, behaviorHintsKeys)
	if err != nil {
		return err
	}
	p.Extra = extra
	*b = BehaviorHints(p)
	return nil
}

// MarshalJSON encodes the declared hints plus the kept upstream keys.
func (b BehaviorHints) MarshalJSON() ([]byte, error) {
	type plain BehaviorHints
	data, err := json.Marshal(plain(b))
	if err != nil {
		return nil, err
	}
	return withExtra(data, b.Extra)
}

// unknownKeys returns the object keys of data that match none of known.
// Matching is case-insensitive like encoding/json field matching.
func unknownKeys(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for key := range raw {
		for _, k := range known {
			if strings.EqualFold(key, k) {
				delete(raw, key)
				break
			}
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

func withExtra(data []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}
