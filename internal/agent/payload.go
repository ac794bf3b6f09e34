package agent

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Payload is the single JSON argument handed to the browsing agent
// subprocess. The agent connects to the session's browser over the CDP
// URL and works through the task with the named model.
type Payload struct {
	Task   string `json:"task"`
	Model  string `json:"model,omitempty"`
	CDPURL string `json:"cdp_url"`
}

// Encode marshals the payload to the compact JSON string passed on the
// agent's argv.
func (p Payload) Encode() (string, error) {
	if p.Task == "" {
		return "", fmt.Errorf("payload has empty task")
	}
	if p.CDPURL == "" {
		return "", fmt.Errorf("payload has empty cdp_url")
	}

	data, err := sonic.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal agent payload: %w", err)
	}
	return string(data), nil
}
