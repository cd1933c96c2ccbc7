package jsonutil

import "testing"

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"leading whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.in); got != tt.want {
				t.Errorf("StripMarkdownFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	got, err := ExtractJSON("Here is the result:\n{\"dish\": \"ramen\"}\nHope that helps!")
	if err != nil {
		t.Fatalf("ExtractJSON() error: %v", err)
	}
	if got != `{"dish": "ramen"}` {
		t.Errorf("ExtractJSON() = %q", got)
	}

	if _, err := ExtractJSON("no json here"); err == nil {
		t.Error("ExtractJSON() should fail when no JSON is present")
	}
}

func TestParseJSON(t *testing.T) {
	type criteria struct {
		DishSpecific string   `json:"dish_specific"`
		DishCriteria []string `json:"dish_criteria"`
	}

	raw := "```json\n{\"dish_specific\": \"tonkotsu ramen\", \"dish_criteria\": [\"broth richness\"]}\n```"
	got, err := ParseJSON[criteria](raw)
	if err != nil {
		t.Fatalf("ParseJSON() error: %v", err)
	}
	if got.DishSpecific != "tonkotsu ramen" {
		t.Errorf("DishSpecific = %q", got.DishSpecific)
	}
	if len(got.DishCriteria) != 1 || got.DishCriteria[0] != "broth richness" {
		t.Errorf("DishCriteria = %v", got.DishCriteria)
	}

	if _, err := ParseJSON[criteria]("```json\n{broken\n```"); err == nil {
		t.Error("ParseJSON() should fail on invalid JSON")
	}
}
