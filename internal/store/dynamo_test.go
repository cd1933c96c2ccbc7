package store

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

func TestStageAttrsCoverAllStages(t *testing.T) {
	for _, stage := range []string{"quick_criteria", "enhanced_metadata", "enhanced_facts"} {
		attrs, ok := stageAttrs[stage]
		if !ok {
			t.Errorf("stage %q has no attribute mapping", stage)
			continue
		}
		if attrs[0] == "" || attrs[1] == "" {
			t.Errorf("stage %q has empty attribute names: %v", stage, attrs)
		}
	}
}

func TestEntryKeys(t *testing.T) {
	if got := userPK("u1"); got != "USER#u1" {
		t.Errorf("userPK = %q, want USER#u1", got)
	}
	if got := entrySK("e1"); got != "ENTRY#e1" {
		t.Errorf("entrySK = %q, want ENTRY#e1", got)
	}
}

func TestMealEntryMarshalOmitsNilEnrichment(t *testing.T) {
	entry := NewMealEntry("u1", "e1")
	entry.Rating = 7
	entry.MealName = "ramen"

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		t.Fatalf("MarshalMap failed: %v", err)
	}

	// Pending stages must not appear as attributes at all, so that a
	// reader can distinguish "not yet enriched" from "enriched empty".
	for _, attr := range []string{"quickCriteria", "enhancedMetadata", "enhancedFacts", "photoUrl", "location"} {
		if _, ok := item[attr]; ok {
			t.Errorf("attribute %q should be omitted when nil", attr)
		}
	}
	if _, ok := item["rating"]; !ok {
		t.Error("rating attribute missing")
	}
	if _, ok := item["createdAt"]; !ok {
		t.Error("createdAt attribute missing")
	}
}

func TestMealEntryRoundTripPartial(t *testing.T) {
	entry := NewMealEntry("u1", "e1")
	entry.Rating = 6
	entry.RestaurantName = "Ippudo"
	entry.QuickCriteria = map[string]any{
		"dishSpecific": "Tonkotsu Ramen",
		"dishCriteria": []any{"broth", "noodles"},
	}

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		t.Fatalf("MarshalMap failed: %v", err)
	}

	var got MealEntry
	if err := attributevalue.UnmarshalMap(item, &got); err != nil {
		t.Fatalf("UnmarshalMap failed: %v", err)
	}

	if got.Rating != 6 || got.RestaurantName != "Ippudo" {
		t.Errorf("base fields lost: rating=%d restaurant=%q", got.Rating, got.RestaurantName)
	}
	if got.QuickCriteria["dishSpecific"] != "Tonkotsu Ramen" {
		t.Errorf("QuickCriteria round trip lost data: %v", got.QuickCriteria)
	}
	if got.EnhancedMetadata != nil {
		t.Error("EnhancedMetadata should stay nil for a partial entry")
	}
	if got.EnhancedFacts != nil {
		t.Error("EnhancedFacts should stay nil for a partial entry")
	}
}
