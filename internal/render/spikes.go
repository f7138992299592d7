package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"math"
)

// Spike is one column on the 3D spike map: a location and a signed value.
type Spike struct {
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Value float64 `json:"value"`
	Name  string  `json:"name,omitempty"`
}

// SpikeMap renders a deck.gl scene as a single HTML file with the column
// data embedded as JSON. Elevations are sqrt-compressed so outlier counties
// don't flatten the rest of the map; positive values extrude in brand blue,
// negative in red.
type SpikeMap struct {
	Title       string
	Source      string
	Spikes      []Spike
	ElevScale   float64 // meters per sqrt unit; 0 means auto
	InitialView SpikeView
}

// SpikeView is the opening camera for the scene.
type SpikeView struct {
	Lon     float64
	Lat     float64
	Zoom    float64
	Pitch   float64
	Bearing float64
}

// ConusView frames the continental US the way the migration maps open.
var ConusView = SpikeView{Lon: -96, Lat: 37.5, Zoom: 3.6, Pitch: 45, Bearing: 0}

func (m SpikeMap) Render() ([]byte, error) {
	if len(m.Spikes) == 0 {
		return nil, errors.New("render spikes: no data")
	}

	elevScale := m.ElevScale
	if elevScale <= 0 {
		var maxAbs float64
		for _, s := range m.Spikes {
			maxAbs = math.Max(maxAbs, math.Abs(s.Value))
		}
		if maxAbs == 0 {
			return nil, errors.New("render spikes: all values are zero")
		}
		// Tallest spike lands around 500km so the whole conus stays legible.
		elevScale = 500000 / math.Sqrt(maxAbs)
	}

	type spikeDatum struct {
		Spike
		Elevation float64 `json:"elevation"`
	}
	data := make([]spikeDatum, len(m.Spikes))
	for i, s := range m.Spikes {
		data[i] = spikeDatum{
			Spike:     s,
			Elevation: math.Sqrt(math.Abs(s.Value)) * elevScale,
		}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("render spikes: %w", err)
	}

	view := m.InitialView
	if view == (SpikeView{}) {
		view = ConusView
	}

	var buf bytes.Buffer
	err = spikeTemplate.Execute(&buf, map[string]any{
		"Title":  m.Title,
		"Source": m.Source,
		"Data":   template.JS(payload),
		"View":   view,
		"Ink":    BrandInk,
		"Paper":  BrandPaper,
	})
	if err != nil {
		return nil, fmt.Errorf("render spikes: %w", err)
	}
	return buf.Bytes(), nil
}

var spikeTemplate = template.Must(template.New("spikes").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://unpkg.com/deck.gl@8.9.36/dist.min.js"></script>
<style>
  body { margin: 0; background: {{.Paper}}; font-family: sans-serif; }
  #map { position: absolute; inset: 0; }
  #title { position: absolute; top: 16px; left: 16px; z-index: 1; color: {{.Ink}}; }
  #title h1 { font-size: 22px; margin: 0; }
  #source { position: absolute; bottom: 12px; left: 16px; z-index: 1; color: {{.Ink}}; font-size: 11px; opacity: 0.7; }
</style>
</head>
<body>
<div id="map"></div>
<div id="title"><h1>{{.Title}}</h1></div>
<div id="source">{{.Source}}</div>
<script>
const data = {{.Data}};
new deck.DeckGL({
  container: "map",
  mapStyle: null,
  initialViewState: {
    longitude: {{.View.Lon}},
    latitude: {{.View.Lat}},
    zoom: {{.View.Zoom}},
    pitch: {{.View.Pitch}},
    bearing: {{.View.Bearing}}
  },
  controller: true,
  layers: [
    new deck.ColumnLayer({
      id: "spikes",
      data: data,
      diskResolution: 6,
      radius: 8000,
      extruded: true,
      getPosition: d => [d.lon, d.lat],
      getElevation: d => d.elevation,
      getFillColor: d => d.value >= 0 ? [11, 180, 255, 220] : [193, 18, 31, 220],
      pickable: true
    })
  ],
  getTooltip: ({object}) => object && (object.name ? object.name + ": " : "") + object.value.toLocaleString()
});
</script>
</body>
</html>
`))
