package natskv

import "testing"

func TestKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"leaderboard", "leaderboard"},
		{"leaderboard:v1", "leaderboard.v1"},
		{"round:3:state", "round.3.state"},
		{"a b*c>", "a_b_c_"},
	}
	for _, tt := range tests {
		if got := Key(tt.in); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
