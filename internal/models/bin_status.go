package models

// BinStatus is a per-bin summary document maintained outside the
// classification log. Field names vary between writers, so values are kept
// untyped and resolved by the dashboard through alias lists.
type BinStatus map[string]interface{}

// BinStatusTypeKeys are the document keys that may hold the bin type.
var BinStatusTypeKeys = []string{"bin_type", "type", "binType"}

// TypeName returns the bin type stored in the document, if any.
func (s BinStatus) TypeName() string {
	for _, key := range BinStatusTypeKeys {
		if v, ok := s[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
