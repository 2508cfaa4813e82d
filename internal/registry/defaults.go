package registry

import (
	"encoding/json"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// Ids of the built-in components.
const (
	DefaultWeatherID = "default-weather"
	DefaultSquareID  = "default-square"
)

func numberInput(label string, min, max, step string) *types.InputDescriptor {
	return &types.InputDescriptor{
		Type:  types.InputNumber,
		Label: label,
		Min:   json.RawMessage(min),
		Max:   json.RawMessage(max),
		Step:  json.RawMessage(step),
	}
}

var weatherWidget = types.Component{
	Name:        "Weather Widget",
	Version:     "1.0.0",
	Description: "A customizable weather widget",
	Properties: map[string]types.Property{
		"city": {Value: "New York", Input: &types.InputDescriptor{
			Type: types.InputText, Label: "City Name", Placeholder: "Enter city name",
		}},
		"unit": {Value: "celsius", Input: &types.InputDescriptor{
			Type: types.InputRadio, Label: "Temperature Unit", Options: []string{"celsius", "fahrenheit"},
		}},
		"showHumidity": {Value: "true", Input: &types.InputDescriptor{
			Type: types.InputCheckbox, Label: "Show Humidity",
		}},
		"backgroundColor": {Value: "#f0f9ff", Input: &types.InputDescriptor{
			Type: types.InputColor, Label: "Background Color",
		}},
		"textColor": {Value: "#1e3a8a", Input: &types.InputDescriptor{
			Type: types.InputColor, Label: "Text Color",
		}},
		"fontSize": {Value: "16", Input: &types.InputDescriptor{
			Type: types.InputRange, Label: "Font Size",
			Min: json.RawMessage("12"), Max: json.RawMessage("24"), Step: json.RawMessage("1"),
		}},
		"updateInterval": {Value: "30", Input: numberInput("Update Interval (seconds)", "10", "3600", "10")},
	},
	HTML: `<div id="weather-container">
  <div class="weather-header">
    <h2 class="city-name">Loading...</h2>
    <div class="weather-icon">🌤️</div>
  </div>
  <div class="weather-info">
    <div class="temperature">--°</div>
    <div class="humidity">Humidity: --%</div>
  </div>
</div>`,
	CSS: `#weather-container {
  font-family: system-ui, -apple-system, sans-serif;
  padding: 1.5rem;
  border-radius: 1rem;
  box-shadow: 0 4px 6px -1px rgba(0, 0, 0, 0.1);
  max-width: 300px;
  margin: 0 auto;
}

.weather-header {
  display: flex;
  justify-content: space-between;
  align-items: center;
  margin-bottom: 1rem;
}

.city-name {
  margin: 0;
  font-weight: 600;
}

.weather-icon {
  font-size: 2em;
}

.weather-info {
  display: flex;
  flex-direction: column;
  gap: 0.5rem;
}

.temperature {
  font-size: 2em;
  font-weight: 700;
}

.humidity {
  opacity: 0.8;
}`,
	JavaScript: "try {\n" +
		"  const config = window.componentConfig.properties;\n" +
		"  const container = document.getElementById('weather-container');\n" +
		"  const cityName = document.querySelector('.city-name');\n" +
		"  const temperature = document.querySelector('.temperature');\n" +
		"  const humidity = document.querySelector('.humidity');\n" +
		"\n" +
		"  container.style.backgroundColor = config.backgroundColor.value;\n" +
		"  container.style.color = config.textColor.value;\n" +
		"  container.style.fontSize = config.fontSize.value + 'px';\n" +
		"  cityName.textContent = config.city.value;\n" +
		"  humidity.style.display = config.showHumidity.value === 'true' ? 'block' : 'none';\n" +
		"\n" +
		"  function updateWeather() {\n" +
		"    const temp = Math.floor(Math.random() * 30) + 10;\n" +
		"    const humid = Math.floor(Math.random() * 50) + 30;\n" +
		"    const displayTemp = config.unit.value === 'fahrenheit'\n" +
		"      ? Math.round(temp * 9/5 + 32)\n" +
		"      : temp;\n" +
		"    temperature.textContent = `${displayTemp}°${config.unit.value === 'fahrenheit' ? 'F' : 'C'}`;\n" +
		"    humidity.textContent = `Humidity: ${humid}%`;\n" +
		"  }\n" +
		"\n" +
		"  updateWeather();\n" +
		"  const interval = Math.max(10000, Math.min(Number(config.updateInterval.value) * 1000, 3600000));\n" +
		"  setInterval(updateWeather, interval);\n" +
		"} catch (error) {\n" +
		"  console.error('Error in weather widget:', error);\n" +
		"}",
}

var square = types.Component{
	Name:        "Square",
	Version:     "1.0.0",
	Description: "A configurable content square",
	Properties: map[string]types.Property{
		"content": {Value: "Hello, world", Input: &types.InputDescriptor{
			Type: types.InputText, Label: "Content", Group: "content",
		}},
		"textColor": {Value: "#1f2937", Input: &types.InputDescriptor{
			Type: types.InputColor, Label: "Text Color", Group: "colors",
		}},
		"backgroundColor": {Value: "#e0f2fe", Input: &types.InputDescriptor{
			Type: types.InputColor, Label: "Background Color", Group: "colors",
		}},
		"fontSize": {Value: "16px", Input: &types.InputDescriptor{
			Type: types.InputText, Label: "Font Size", Group: "typography",
		}},
		"fontFamily": {Value: "system-ui", Input: &types.InputDescriptor{
			Type: types.InputSelect, Label: "Font Family", Group: "typography",
			Options: []string{"system-ui", "serif", "monospace"},
		}},
		"containerWidth":  {Value: "100", Input: withGroup(numberInput("Width", "0", "2000", "1"), "layout")},
		"containerHeight": {Value: "400", Input: withGroup(numberInput("Height", "0", "2000", "1"), "layout")},
		"percentWidth": {Value: "true", Input: &types.InputDescriptor{
			Type: types.InputCheckbox, Label: "Width in %", Group: "layout",
		}},
		"percentHeight": {Value: "false", Input: &types.InputDescriptor{
			Type: types.InputCheckbox, Label: "Height in %", Group: "layout",
		}},
		"borderRadius": {Value: "8", Input: &types.InputDescriptor{
			Type: types.InputRange, Label: "Border Radius", Group: "layout",
			Min: json.RawMessage("0"), Max: json.RawMessage("50"), Step: json.RawMessage("1"),
		}},
	},
	HTML: `<div id="square-container">
  <div class="square">
    <p class="text"></p>
  </div>
</div>`,
	CSS: `#square-container {
  position: relative;
  padding: 2rem;
  height: 400px;
  box-sizing: border-box;
}

.square {
  position: relative;
  width: 100%;
  height: 100%;
  display: flex;
  justify-content: center;
  align-items: center;
  border-radius: 8px;
  box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);
}

.text {
  margin: 0;
  padding: 0;
}`,
	JavaScript: `const config = window.componentConfig.properties;
const container = document.querySelector('#square-container');
try {
  container.style.color = config.textColor.value;
  container.style.fontSize = config.fontSize.value;
  container.style.fontFamily = config.fontFamily.value;
  const widthUnits = config.percentWidth.value === 'true' ? '%' : 'px';
  const heightUnits = config.percentHeight.value === 'true' ? '%' : 'px';
  container.style.width = config.containerWidth.value + widthUnits;
  container.style.height = config.containerHeight.value + heightUnits;
  container.style.backgroundColor = config.backgroundColor.value;
  container.style.borderRadius = config.borderRadius.value + 'px';
  container.querySelector('.text').textContent = config.content.value;
} catch (e) {
  console.error(e);
}`,
}

func withGroup(in *types.InputDescriptor, group string) *types.InputDescriptor {
	in.Group = group
	return in
}

// DefaultComponents returns fresh copies of the built-in components.
func DefaultComponents() []types.SavedComponent {
	defs := []struct {
		id   string
		comp *types.Component
	}{
		{DefaultWeatherID, &weatherWidget},
		{DefaultSquareID, &square},
	}

	out := make([]types.SavedComponent, 0, len(defs))
	for _, d := range defs {
		rec, err := types.NewSavedComponent(d.comp)
		if err != nil {
			// static data always encodes
			panic(err)
		}
		rec.ID = d.id
		out = append(out, *rec)
	}

	return out
}

// NewComponentTemplate is the starting point for a component created from
// scratch in the editor.
func NewComponentTemplate() types.Component {
	c := square
	c.Name = "New Component"
	c.Properties = make(map[string]types.Property, len(square.Properties))
	for k, v := range square.Properties {
		c.Properties[k] = v
	}
	return c
}

// renameConfig sets the name inside a stringified config. Unparseable
// configs are returned unchanged.
func renameConfig(config, name string) string {
	if config == "" {
		return config
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(config), &fields); err != nil {
		return config
	}
	encoded, err := json.Marshal(name)
	if err != nil {
		return config
	}
	fields["name"] = encoded

	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return config
	}

	return string(out)
}
