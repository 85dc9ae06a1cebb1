package model

import (
	"encoding/json"
	"testing"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Amount
		wantErr bool
	}{
		{"number", `1500.5`, 1500.5, false},
		{"numeric string", `"1500.5"`, 1500.5, false},
		{"padded string", `" 20 "`, 20, false},
		{"empty string", `""`, 0, false},
		{"null", `null`, 0, false},
		{"negative string", `"-1"`, -1, false},
		{"text", `"ten"`, 0, true},
		{"NaN", `"NaN"`, 0, true},
		{"Inf", `"Inf"`, 0, true},
		{"signed infinity", `"+Infinity"`, 0, true},
		{"negative infinity", `"-Inf"`, 0, true},
		{"overflow", `1e400`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.in), &a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && a != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, a, tt.want)
			}
		})
	}
}
