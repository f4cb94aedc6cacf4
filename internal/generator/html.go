package generator

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
)

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"toJSON": toJSON,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
   <meta charset="UTF-8"/>
   <meta http-equiv="refresh" content="{{ .RefreshSeconds }}">
   <title>{{ .Title }}</title>
   <style>
      :root {
         --bg-color: #121212;
         --text-color: #e0e0e0;
         --card-bg: #1e1e1e;
         --card-border: #333;
         --summary-bg: #252525;
         --crash: #ff4444;
         --construction: #ffaa33;
         --closure: #ff69b4;
         --weather: #00aaaa;
         --other: #888;
      }
      body {
         font-family: Arial, sans-serif;
         max-width: 1400px;
         margin: 0 auto;
         padding: 20px;
         background-color: var(--bg-color);
         color: var(--text-color);
      }
      .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(420px, 1fr)); gap: 15px; }
      .panel { background-color: var(--card-bg); border: 1px solid var(--card-border); border-radius: 5px; padding: 10px; }
      .summary { background-color: var(--summary-bg); padding: 10px; border-radius: 5px; margin-bottom: 10px; }
      .detail-label { color: #888; }
      .dewpoint-comfortable { color: #7cfc00; }
      .dewpoint-sticky { color: #ffd700; }
      .dewpoint-oppressive { color: #ff8c00; }
      .dewpoint-miserable { color: #ff4444; }
      table { width: 100%; border-collapse: collapse; }
      th, td { border-bottom: 1px solid var(--card-border); padding: 6px; text-align: left; }
      .incident-type { padding: 2px 6px; border-radius: 3px; }
      .incident-crash { background-color: var(--crash); }
      .incident-construction { background-color: var(--construction); }
      .incident-closure { background-color: var(--closure); }
      .incident-weather { background-color: var(--weather); }
      .incident-other { background-color: var(--other); }
      .text-danger { color: var(--crash); }
      .text-success { color: #7cfc00; }
      .next-refresh { font-size: 0.8em; color: #888; }
      img.radar { max-width: 100%; }
      iframe.history { width: 100%; height: 320px; border: 0; }
   </style>
   <script>
      const clockZone = {{ .TimeZone }} || undefined;
      function updateClock() {
          const now = new Date();
          document.getElementById('clock').textContent = now.toLocaleTimeString('en-US', { timeZone: clockZone, timeZoneName: 'short' });
      }
      window.onload = function() {
          updateClock();
          setInterval(updateClock, 1000);
          let refreshTime = {{ .RefreshSeconds }};
          const countdownElement = document.getElementById('countdown');
          setInterval(function() {
              refreshTime--;
              const minutes = Math.floor(refreshTime / 60);
              const seconds = refreshTime % 60;
              countdownElement.textContent = minutes + ':' + (seconds < 10 ? '0' : '') + seconds;
              if (refreshTime <= 0) {
                  countdownElement.textContent = "Refreshing...";
              }
          }, 1000);
      }
      {{- if .Live }}
      function ignoreId(id) {
          fetch('/api/ignored/' + encodeURIComponent(id), { method: 'POST' }).then(function() { location.reload(); });
      }
      function clearIgnored() {
          fetch('/api/ignored', { method: 'DELETE' }).then(function() { location.reload(); });
      }
      function setSetting(name, value) {
          const body = {};
          body[name] = value;
          fetch('/api/settings', { method: 'PUT', headers: { 'Content-Type': 'application/json' }, body: JSON.stringify(body) })
              .then(function() { location.reload(); });
      }
      {{- end }}
      window.dashboard = {{ toJSON .Dashboard }};
   </script>
</head>
<body>
   <h1>{{ .PageTitle }}</h1>
   <h4>Last updated: {{ .LastUpdated }}</h4>
   <div class="next-refresh">Next refresh in <span id="countdown">{{ .Countdown }}</span></div>
   <div class="next-refresh">Current time: <span id="clock">{{ .LastUpdated }}</span></div>

   <div class="grid">
      <div class="panel">
         <h2>Current Conditions</h2>
         {{ with .Weather }}
         <div><span class="detail-label">Temperature:</span> {{ .Temperature }}°F <small>{{ .FeelsLike }}</small></div>
         <div><span class="detail-label">Conditions:</span> {{ .Conditions }}</div>
         <div><span class="detail-label">Wind:</span> {{ .WindDirection }} {{ .Wind }} (gusts {{ .Gusts }})</div>
         <div><span class="detail-label">Humidity:</span> {{ .Humidity }}</div>
         <div><span class="detail-label">Dewpoint:</span> <span class="{{ .DewpointClass }}">{{ .Dewpoint }}</span> (depression {{ .DewDepression }})</div>
         <div><span class="detail-label">Visibility:</span> {{ .Visibility }}</div>
         <div><span class="detail-label">Pressure:</span> {{ .Pressure }}</div>
         <small>{{ .LastUpdate }}</small>
         {{ if .RadarURL }}<img class="radar" src="{{ .RadarURL }}" alt="NWS radar"/>{{ end }}
         {{ if .OutlookURL }}<img class="radar" src="{{ .OutlookURL }}" alt="SPC day 1 outlook"/>{{ end }}
         {{ end }}
      </div>

      <div class="panel">
         <h2>Incident Trend</h2>
         <div class="summary">
            <div>Active incidents: <strong>{{ .Total }}</strong></div>
            <div>Cameras: {{ .CameraCount }}</div>
            {{ if .Live }}
            <div>Ignored: {{ len .Ignored }} {{ if .Ignored }}<button onclick="clearIgnored()">Clear ignored</button>{{ end }}</div>
            <label><input type="checkbox" {{ if .SuppressMaintenance }}checked{{ end }}
               onchange="setSetting('suppressMaintenance', this.checked)"> Hide construction / maintenance / bridge work</label><br/>
            <label><input type="checkbox" {{ if .AlertsEnabled }}checked{{ end }}
               onchange="setSetting('alertsEnabled', this.checked)"> Alert on new incidents</label>
            {{ else }}
            <div>Ignored: {{ len .Ignored }}</div>
            <div>Construction / maintenance / bridge work: {{ if .SuppressMaintenance }}hidden{{ else }}shown{{ end }}</div>
            <div>Alerts on new incidents: {{ if .AlertsEnabled }}on{{ else }}off{{ end }}</div>
            {{ end }}
         </div>
         {{ if .ClassCounts }}
         <div class="summary">
            {{ range .ClassCounts }}<div><span class="incident-type incident-{{ .Class }}">{{ .Class }}</span>: {{ .Count }}</div>{{ end }}
         </div>
         {{ end }}
         <iframe class="history" src="history.html"></iframe>
      </div>
   </div>

   <div class="panel">
      <h2>Traffic Incidents</h2>
      <table>
         <thead>
            <tr>{{ if .Live }}<th></th>{{ end }}<th>County</th><th>Type</th><th>Route</th><th>Route Type</th><th>Description</th><th>Lanes</th><th>Reported By</th><th>Nearest Camera</th><th>Map</th></tr>
         </thead>
         <tbody id="incidentTableBody">
         {{ if .IncidentError }}
            <tr><td colspan="{{ .Columns }}" class="text-danger">Error loading: {{ .IncidentError }}</td></tr>
         {{ else if not .Rows }}
            <tr><td colspan="{{ .Columns }}" class="text-success">No active incidents</td></tr>
         {{ else }}
            {{ $live := .Live }}
            {{ range .Rows }}
            <tr id="incident-{{ .DisplayKey }}">
               {{ if $live }}<td>{{ if .HasID }}<button onclick="ignoreId({{ .ID }})" title="Ignore">Ignore</button>{{ end }}</td>{{ end }}
               <td>{{ .County }}</td>
               <td><span class="incident-type {{ .TypeClass }}">{{ .Category }}</span></td>
               <td>{{ .Route.Route }}</td>
               <td>{{ .Route.RouteType }}</td>
               <td title="{{ .Description }}">{{ .ShortDesc }}</td>
               <td>{{ .Route.LanesAffected }}</td>
               <td>{{ .Route.Reporter }}</td>
               <td>{{ .CameraText }}</td>
               <td>{{ if .MapLink }}<a href="{{ .MapLink }}" target="_blank">Show on iDriveArkansas</a>{{ else }}--{{ end }}</td>
            </tr>
            {{ end }}
         {{ end }}
         </tbody>
      </table>
   </div>
</body>
</html>
`))

type pageData struct {
	Dashboard
	Title       string
	PageTitle   string
	CameraCount string
	Countdown   string
	// Live pages are served with the action API behind them.
	Live        bool
	Columns     int
	Rows        []TemplateIncident
	ClassCounts []ClassCount
}

// RenderHTML writes the static dashboard page. It has no action controls
// since nothing serves the action API next to a file.
func RenderHTML(w io.Writer, d Dashboard) error {
	return renderPage(w, d, false)
}

// RenderLiveHTML writes the served dashboard page, with the ignore and
// settings controls.
func RenderLiveHTML(w io.Writer, d Dashboard) error {
	return renderPage(w, d, true)
}

func renderPage(w io.Writer, d Dashboard, live bool) error {
	refresh := d.RefreshSeconds
	if refresh <= 0 {
		refresh = 30
	}
	d.RefreshSeconds = refresh
	data := pageData{
		Dashboard:   d,
		Title:       Title(d.Total),
		PageTitle:   pageTitle,
		CameraCount: CameraCount(d.Cameras),
		Countdown:   fmt.Sprintf("%d:%02d", refresh/60, refresh%60),
		Live:        live,
		Columns:     9,
		Rows:        convertIncidents(d.Incidents, d.MapURL),
		ClassCounts: sortedClassCounts(d.Incidents),
	}
	if live {
		data.Columns++
	}
	return dashboardTemplate.Execute(w, data)
}

func toJSON(v interface{}) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}
