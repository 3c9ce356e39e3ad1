package shared

import "time"

var dateFormats = []string{time.RFC3339, "2006-01-02"}

// ParseDate accepts RFC3339 or plain YYYY-MM-DD; leave dates are usually sent
// without a time component. An empty value parses to the zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	var err error
	for _, format := range dateFormats {
		var parsed time.Time
		if parsed, err = time.Parse(format, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}
