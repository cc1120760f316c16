package models

import "testing"

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []Rating
		want    float64
	}{
		{"no ratings", nil, 0},
		{"single rating", []Rating{{Rating: 4}}, 4.0},
		{"even average", []Rating{{Rating: 4}, {Rating: 5}}, 4.5},
		{"rounds to one decimal", []Rating{{Rating: 3}, {Rating: 4}, {Rating: 4}}, 3.7},
		{"rounds down", []Rating{{Rating: 1}, {Rating: 1}, {Rating: 2}}, 1.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AverageRating(tt.ratings); got != tt.want {
				t.Errorf("AverageRating() = %v, want %v", got, tt.want)
			}
		})
	}
}
