package light

import (
	"errors"
	"testing"

	"lightstrip-controller/internal/color"
)

func TestResolutionRuleOrder(t *testing.T) {
	want := []string{"off", "unrecognized state", "color", "effect", "brightness", "color_temp", "on"}
	if len(resolutionRules) != len(want) {
		t.Fatalf("got %d rules, want %d", len(resolutionRules), len(want))
	}
	for i, r := range resolutionRules {
		if r.name != want[i] {
			t.Errorf("rule %d = %q, want %q", i, r.name, want[i])
		}
	}
}

func TestParse(t *testing.T) {
	redHue, redSat, _ := color.Red.HSV()
	warm, _, _ := color.FromKelvin(2500).HSV()
	_, warmSat, _ := color.FromKelvin(2500).HSV()

	tests := []struct {
		name    string
		payload string
		want    Mode
	}{
		{"off", `{"state":"OFF"}`, Off()},
		{"off lowercase", `{"state":"off"}`, Off()},
		{"off wins over color", `{"state":"OFF","color":{"r":255,"g":0,"b":0}}`, Off()},
		{"on", `{"state":"ON"}`, On()},
		{"on mixed case", `{"state":"On"}`, On()},
		{"color", `{"state":"ON","color":{"r":255,"g":0,"b":0}}`, StaticColor(redHue, redSat)},
		{"color value discarded", `{"state":"ON","color":{"r":128,"g":0,"b":0}}`, StaticColor(redHue, redSat)},
		{"color wins over effect", `{"state":"ON","color":{"r":255,"g":0,"b":0},"effect":"rainbow"}`, StaticColor(redHue, redSat)},
		{"effect", `{"state":"ON","effect":"rainbow"}`, Effect("rainbow")},
		{"effect wins over brightness", `{"state":"ON","effect":"breathe","brightness":10}`, Effect("breathe")},
		{"brightness", `{"state":"ON","brightness":128}`, Brightness(128)},
		{"brightness zero", `{"state":"ON","brightness":0}`, Brightness(0)},
		{"brightness wins over color_temp", `{"state":"ON","brightness":7,"color_temp":400}`, Brightness(7)},
		{"color_temp", `{"state":"ON","color_temp":400}`, StaticColor(warm, warmSat)},
		{"color_temperature", `{"state":"ON","color_temperature":400}`, StaticColor(warm, warmSat)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Parse(%s): %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%s) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"not json", `state=ON`, ""},
		{"state not a string", `{"state":1}`, ""},
		{"missing state", `{"brightness":10}`, "state"},
		{"unknown state", `{"state":"TOGGLE"}`, "state"},
		{"brightness too high", `{"state":"ON","brightness":256}`, "brightness"},
		{"brightness negative", `{"state":"ON","brightness":-1}`, "brightness"},
		{"channel out of range", `{"state":"ON","color":{"r":0,"g":300,"b":0}}`, "color.g"},
		{"channel missing", `{"state":"ON","color":{"r":0,"g":0}}`, "color.b"},
		{"zero mired", `{"state":"ON","color_temp":0}`, "color_temp"},
		{"empty effect", `{"state":"ON","effect":"  "}`, "effect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload))
			if !errors.Is(err, ErrParse) {
				t.Fatalf("Parse(%s) error = %v, want ErrParse", tt.payload, err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %v is not a *ParseError", err)
			}
			if pe.Field != tt.field {
				t.Errorf("field = %q, want %q", pe.Field, tt.field)
			}
		})
	}
}
