package commands

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		prefix string
		want   Type
	}{
		{name: "players", body: "!players", prefix: "!", want: Players},
		{name: "list alias", body: "!list", prefix: "!", want: Players},
		{name: "status", body: "!status", prefix: "!", want: Status},
		{name: "start", body: "!start", prefix: "!", want: Start},
		{name: "stop", body: "!stop", prefix: "!", want: Stop},
		{name: "mixed case with spaces", body: "   !PLAYERS  ", prefix: "!", want: Players},
		{name: "trailing words", body: "!stop now please", prefix: "!", want: Stop},
		{name: "custom prefix", body: "$status", prefix: "$", want: Status},
		{name: "default prefix", body: "!start", prefix: "", want: Start},
		{name: "unknown", body: "!ping", prefix: "!", want: Unknown},
		{name: "no prefix", body: "stop", prefix: "!", want: Unknown},
		{name: "prefix only", body: "!", prefix: "!", want: Unknown},
		{name: "empty", body: "", prefix: "!", want: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.body, tt.prefix)
			if got.Type != tt.want {
				t.Fatalf("Parse(%q) got %v want %v", tt.body, got.Type, tt.want)
			}
		})
	}
}
