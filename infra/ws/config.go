package ws

import "fmt"

// Config defines the connection parameters for the realtime channel.
type Config struct {
	// BaseURL is the HTTP base of the dispatch backend, used to discover
	// the websocket endpoint.
	BaseURL string `json:"base_url"`
	// InfoEndpoint is the discovery path queried for the websocket URL.
	InfoEndpoint string `json:"info_endpoint"`
	// EndpointURL skips discovery entirely when set.
	EndpointURL string `json:"endpoint_url"`
	// QueryParams are appended to the websocket URL, e.g. the operator id.
	QueryParams map[string]string `json:"query_params"`

	ReconnectDelayMS     int `json:"reconnect_delay_ms"`
	MaxReconnectAttempts int `json:"max_reconnect_attempts"`
	SendQueueSize        int `json:"send_queue_size"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.InfoEndpoint == "" {
		c.InfoEndpoint = "/atender-emergencias/websocket-info"
	}
	if c.ReconnectDelayMS <= 0 {
		c.ReconnectDelayMS = 3000
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 32
	}
}

// Validate checks the configuration for completeness.
func (c Config) Validate() error {
	if c.BaseURL == "" && c.EndpointURL == "" {
		return fmt.Errorf("ws: either base_url or endpoint_url is required")
	}
	return nil
}
