package nsapi

import (
	"fmt"
	"net/url"
)

// TriggerURL returns an api link that makes the server load the nation,
// which updates it if an update is pending.
func TriggerURL(nation string) string {
	q := url.Values{
		"nation": {CleanFormat(nation)},
		"q":      {"census"},
		"mode":   {"score"},
		"scale":  {"65"},
	}
	return fmt.Sprintf("%s%s?%s", DefaultBaseURL, apiPath, q.Encode())
}
