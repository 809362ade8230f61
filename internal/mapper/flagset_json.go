package mapper

import "encoding/json"

// MarshalJSON renders a FlagSet as a sorted-free JSON array of flag names,
// matching the map file's field-per-room encoding in spec.md §4.7.
func (fs FlagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(fs.Names())
}

// UnmarshalJSON accepts a JSON array of flag names and rewrites legacy
// spellings via canonicalFlag.
func (fs *FlagSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	out := make(FlagSet, len(names))
	for _, n := range names {
		out[canonicalFlag(n)] = true
	}
	*fs = out
	return nil
}
