package models

// Integration is a link to a companion service shown on the dashboard.
// Name labels the port in the network panel; Label and Text, when set,
// replace the name and the URL in the links panel.
type Integration struct {
	Name  string `json:"name" mapstructure:"name"`
	URL   string `json:"url" mapstructure:"url"`
	Label string `json:"label,omitempty" mapstructure:"label"`
	Text  string `json:"text,omitempty" mapstructure:"text"`
}
