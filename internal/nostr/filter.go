package nostr

import "encoding/json"

// Filter selects events on a relay subscription. Zero-valued fields are
// omitted from the wire form.
type Filter struct {
	Kinds   []int
	Authors []string
	// DTags filters parameterized-replaceable events by their "d" tag.
	DTags []string
	// Until restricts results to events created at or before the given
	// unix time. Used to walk backward when paginating.
	Until int64
	Limit int
}

func (f Filter) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 5)
	if len(f.Kinds) > 0 {
		m["kinds"] = f.Kinds
	}
	if len(f.Authors) > 0 {
		m["authors"] = f.Authors
	}
	if len(f.DTags) > 0 {
		m["#d"] = f.DTags
	}
	if f.Until > 0 {
		m["until"] = f.Until
	}
	if f.Limit > 0 {
		m["limit"] = f.Limit
	}
	return json.Marshal(m)
}

func (f *Filter) UnmarshalJSON(b []byte) error {
	var m struct {
		Kinds   []int    `json:"kinds"`
		Authors []string `json:"authors"`
		DTags   []string `json:"#d"`
		Until   int64    `json:"until"`
		Limit   int      `json:"limit"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	f.Kinds = m.Kinds
	f.Authors = m.Authors
	f.DTags = m.DTags
	f.Until = m.Until
	f.Limit = m.Limit
	return nil
}
