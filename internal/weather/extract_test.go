package weather

import "testing"

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"in", "What's the weather in London", "London", true},
		{"for", "weather for Tokyo", "Tokyo", true},
		{"at", "Weather at Sydney", "Sydney", true},
		{"multi-word", "weather in New York", "New York", true},
		{"punctuation stops capture", "weather in Paris?", "Paris", true},
		{"case-insensitive", "WEATHER IN oslo", "oslo", true},
		{"trailing words kept", "weather in London today", "London today", true},
		{"double space without preposition", "weather  Berlin", "Berlin", true},
		{"single space without preposition", "weather Berlin", "", false},
		{"preposition not adjacent", "what is the weather like in Rome", "", false},
		{"no weather word", "hello there", "", false},
		{"digits not captured", "weather in 12345", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractLocation(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractLocation(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLocationOrDefault(t *testing.T) {
	if got := LocationOrDefault("weather in Tokyo"); got != "Tokyo" {
		t.Errorf("got %q, want Tokyo", got)
	}
	if got := LocationOrDefault("how is the weather"); got != DefaultLocation {
		t.Errorf("got %q, want %q", got, DefaultLocation)
	}
}

func TestMentionsWeather(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"weather in Paris", true},
		{"How's the WEATHER?", true},
		{"weathered", true},
		{"hello", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := MentionsWeather(tt.text); got != tt.want {
			t.Errorf("MentionsWeather(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
