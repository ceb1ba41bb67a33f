package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/gate-bell/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Gate Bell</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.open { color: green; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Gate Bell{{if .Config.Mock}} (mock){{end}}</h1>

<h2>State</h2>
<table>
<tr><th>Gate</th><td id="gate-state" class="{{if eq (printf "%s" .Gate) "RECENTLY_OPENED"}}open{{else}}idle{{end}}">{{.Gate}}</td></tr>
<tr><th>Pending alerts</th><td id="pending">{{.Pending}}</td></tr>
<tr><th>Destinations</th><td>{{.Destinations}}</td></tr>
<tr><th>Last ring</th><td>{{when .LastRing}}</td></tr>
<tr><th>Last open</th><td>{{when .LastOpen}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Rings</th><td>{{.Counts.Rings}}</td></tr>
<tr><th>Rings suppressed</th><td>{{.Counts.RingsSuppressed}}</td></tr>
<tr><th>Opens</th><td>{{.Counts.Opens}}</td></tr>
<tr><th>Opens suppressed</th><td>{{.Counts.OpensSuppressed}}</td></tr>
<tr><th>Ignored</th><td>{{.Counts.Ignored}}</td></tr>
<tr><th>Unauthorized</th><td>{{.Counts.Unauthorized}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Ring quiet</th><td>{{.Config.RingQuietMs}}ms</td></tr>
<tr><th>Open quiet</th><td>{{.Config.OpenQuietMs}}ms</td></tr>
<tr><th>Pulse</th><td>{{.Config.PulseMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
