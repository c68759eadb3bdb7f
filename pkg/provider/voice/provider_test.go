package voice

import "testing"

func TestProfileFor(t *testing.T) {
	tests := []struct {
		in   string
		want   Profile
	}{
		{"female", Profile{Gender: GenderFemale, Language: "en", Speed: 1}},
		{" Male ", Profile{Gender: GenderMale, Language: "en", Speed: 1}},
		{"21m00Tcm4TlvDq8ikWAM", Profile{ID: "21m00Tcm4TlvDq8ikWAM", Gender: GenderFemale, Language: "en", Speed: 1}},
	}
	for _, tt := range tests {
		if got := ProfileFor(tt.in, "en", 0); got != tt.want {
			t.Errorf("ProfileFor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
