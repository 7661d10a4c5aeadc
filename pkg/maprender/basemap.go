package maprender

// BasemapSpec is a tagged union: either a named preset or a custom tile
// provider. Exactly one of the two is meaningful; a custom spec wins when
// its URL template is set so operators can point at their own imagery
// without us maintaining a second code path.
type BasemapSpec struct {
	Preset      string `json:"preset,omitempty"`
	URLTemplate string `json:"urlTemplate,omitempty"`
	Attribution string `json:"attribution,omitempty"`
}

// Preset names a built-in tile provider.
func Preset(name string) BasemapSpec { return BasemapSpec{Preset: name} }

// CustomTile names an arbitrary provider by its tile URL template and the
// attribution string its terms require.
func CustomTile(urlTemplate, attribution string) BasemapSpec {
	return BasemapSpec{URLTemplate: urlTemplate, Attribution: attribution}
}

// Basemap is a resolved tile layer, ready for the frontend.
type Basemap struct {
	Name        string `json:"name"`
	URLTemplate string `json:"urlTemplate"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"maxZoom"`
}

// DefaultBasemap is what an empty or unknown spec resolves to. Falling back
// instead of erroring keeps a stale bookmark or a typo from blanking the map.
const DefaultBasemap = "OpenStreetMap"

// presets in sidebar order. The set is the superset of both dashboard
// variants we had in the field: the four classics plus the imagery and
// topo providers crews kept asking for.
var presets = []Basemap{
	{
		Name:        "OpenStreetMap",
		URLTemplate: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MaxZoom:     19,
	},
	{
		Name:        "CartoDB Positron",
		URLTemplate: "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; OpenStreetMap contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
	{
		Name:        "CartoDB Dark Matter",
		URLTemplate: "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; OpenStreetMap contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
	{
		Name:        "OpenTopoMap",
		URLTemplate: "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: `Map data: &copy; OpenStreetMap contributors, SRTM | Map style: &copy; <a href="https://opentopomap.org">OpenTopoMap</a> (CC-BY-SA)`,
		MaxZoom:     17,
	},
	{
		Name:        "Esri World Imagery",
		URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: `Tiles &copy; Esri &mdash; Source: Esri, Maxar, Earthstar Geographics`,
		MaxZoom:     19,
	},
	{
		Name:        "Esri World Topo",
		URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Topo_Map/MapServer/tile/{z}/{y}/{x}",
		Attribution: `Tiles &copy; Esri &mdash; Source: Esri, HERE, Garmin, and the GIS community`,
		MaxZoom:     19,
	},
	{
		Name:        "Google Satellite",
		URLTemplate: "https://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}",
		Attribution: `&copy; Google`,
		MaxZoom:     20,
	},
}

// PresetNames lists the built-in providers in display order.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// ResolveBasemap turns a spec into the single active tile layer. Custom
// templates pass through with their attribution; preset lookups are by
// exact name with a fallback to DefaultBasemap.
func ResolveBasemap(spec BasemapSpec) Basemap {
	if spec.URLTemplate != "" {
		return Basemap{
			Name:        "Custom",
			URLTemplate: spec.URLTemplate,
			Attribution: spec.Attribution,
			MaxZoom:     19,
		}
	}
	name := spec.Preset
	if name == "" {
		name = DefaultBasemap
	}
	for _, p := range presets {
		if p.Name == name {
			return p
		}
	}
	for _, p := range presets {
		if p.Name == DefaultBasemap {
			return p
		}
	}
	return presets[0]
}
