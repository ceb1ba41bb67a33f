package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Gate          string       `json:"gate"`
	Pending       int          `json:"pending_alerts"`
	Destinations  int          `json:"destinations"`
	LastRing      string       `json:"last_ring,omitempty"`
	LastOpen      string       `json:"last_open,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Rings           int `json:"rings"`
	RingsSuppressed int `json:"rings_suppressed"`
	Opens           int `json:"opens"`
	OpensSuppressed int `json:"opens_suppressed"`
	Ignored         int `json:"ignored"`
	Unauthorized    int `json:"unauthorized"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	RingQuietMs int64  `json:"ring_quiet_ms"`
	OpenQuietMs int64  `json:"open_quiet_ms"`
	PulseMs     int64  `json:"pulse_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Mock        bool   `json:"mock"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Gate:          string(snap.Gate),
		Pending:       snap.Pending,
		Destinations:  snap.Destinations,
		LastRing:      formatTime(snap.LastRing),
		LastOpen:      formatTime(snap.LastOpen),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Rings:           snap.Counts.Rings,
			RingsSuppressed: snap.Counts.RingsSuppressed,
			Opens:           snap.Counts.Opens,
			OpensSuppressed: snap.Counts.OpensSuppressed,
			Ignored:         snap.Counts.Ignored,
			Unauthorized:    snap.Counts.Unauthorized,
		},
		Config: ConfigJSON{
			RingQuietMs: snap.Config.RingQuietMs,
			OpenQuietMs: snap.Config.OpenQuietMs,
			PulseMs:     snap.Config.PulseMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Mock:        snap.Config.Mock,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
