package classifier

import (
	"context"
	"testing"
)

func TestDetectIntentKeywords(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantComplaint bool
		wantIncident  bool
	}{
		{"complaint keyword", "I want to file a complaint about the service", true, false},
		{"incident keyword", "I want to report an incident", false, true},
		{"website down", "The website is not working", true, false},
		{"fallen tree", "There is a fallen tree on the road", false, true},
		{"both", "complaint: fallen tree blocking my driveway", true, true},
		{"neither", "hello there", false, false},
		{"case insensitive", "REPORT INCIDENT please", false, true},
	}

	r := NewRules()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.DetectIntentKeywords(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("DetectIntentKeywords() error = %v", err)
			}
			if got.IsComplaint != tt.wantComplaint {
				t.Errorf("IsComplaint = %v, want %v", got.IsComplaint, tt.wantComplaint)
			}
			if got.IsIncident != tt.wantIncident {
				t.Errorf("IsIncident = %v, want %v", got.IsIncident, tt.wantIncident)
			}
		})
	}
}

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		name            string
		description     string
		wantCategory    string
		wantSubCategory string
	}{
		{"fallen tree", "A big fallen tree near my house", "Bencana Alam", "Pokok Tumbang"},
		{"flood", "The street is flooded after the rain", "Bencana Alam", "Banjir"},
		{"landslide", "landslide behind the apartment", "Bencana Alam", "Tanah Runtuh"},
		{"pothole", "huge pothole on the highway", "Jalan Raya", "Lubang Jalan"},
		{"road crack", "there is a long road crack here", "Jalan Raya", "Jalan Retak"},
		{"street light", "the street light is broken", "Infrastruktur", "Lampu Jalan"},
		{"drain", "clogged drain causing smell", "Infrastruktur", "Longkang"},
		{"traffic light", "traffic light stuck on red", "Infrastruktur", "Lampu Isyarat"},
		{"garbage", "garbage everywhere on the street", "Pengurusan Sampah", "Sampah Berserakan"},
		{"system error", "the online portal keeps crashing", "Service/ System Error", "--"},
		{"unmatched", "something strange happened", "Lain-lain", "--"},
		{"malay keyword", "ada pokok tumbang di sini", "Bencana Alam", "Pokok Tumbang"},
	}

	r := NewRules()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ClassifyCategory(context.Background(), tt.description)
			if err != nil {
				t.Fatalf("ClassifyCategory() error = %v", err)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.SubCategory != tt.wantSubCategory {
				t.Errorf("SubCategory = %q, want %q", got.SubCategory, tt.wantSubCategory)
			}
		})
	}
}

func TestExtractDescriptionAndLocation(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantLocation string
	}{
		{"street prefix", "Fallen tree at Jalan Masjid Kapitan Keling, please help", "Jalan Masjid Kapitan Keling"},
		{"lorong prefix", "Pothole in Lorong Selamat near the stall", "Lorong Selamat near the stall"},
		{"known area", "Flooding in Bayan Lepas this morning", "Bayan Lepas"},
		{"postcode", "Broken street light around 10450", "10450"},
		{"no location", "There is a fallen tree blocking the road", ""},
		{"generic road not matched", "The main road is flooded", ""},
	}

	r := NewRules()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ExtractDescriptionAndLocation(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("ExtractDescriptionAndLocation() error = %v", err)
			}
			if got.Location != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got.Location, tt.wantLocation)
			}
			if got.Description == "" {
				t.Error("Description should keep the original message")
			}
		})
	}
}

func TestGenerateHazardQuestionFallback(t *testing.T) {
	r := NewRules()
	q, err := r.GenerateHazardQuestion(context.Background(), "fallen tree")
	if err != nil {
		t.Fatalf("GenerateHazardQuestion() error = %v", err)
	}
	if q != DefaultHazardQuestion {
		t.Errorf("question = %q, want the default hazard question", q)
	}
}
