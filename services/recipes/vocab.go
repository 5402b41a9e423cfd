// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package recipes

import "strings"

// MaxFilterValueLen bounds filter parameter values before vocabulary
// matching even happens.
const MaxFilterValueLen = 40

// knownAreas is the closed cuisine vocabulary accepted by filter-by-area
// operations. Mirrors the upstream API's area list.
var knownAreas = []string{
	"American", "British", "Canadian", "Chinese", "Croatian", "Dutch",
	"Egyptian", "Filipino", "French", "Greek", "Indian", "Irish",
	"Italian", "Jamaican", "Japanese", "Kenyan", "Malaysian", "Mexican",
	"Moroccan", "Polish", "Portuguese", "Russian", "Spanish", "Thai",
	"Tunisian", "Turkish", "Ukrainian", "Uruguayan", "Vietnamese",
}

// knownIngredients is the closed ingredient vocabulary accepted by
// filter-by-ingredient operations. A pragmatic subset of the upstream
// ingredient list covering what users actually ask for.
var knownIngredients = []string{
	"chicken", "chicken breast", "chicken thighs", "beef", "ground beef",
	"pork", "bacon", "ham", "lamb", "duck", "turkey", "sausage",
	"salmon", "tuna", "cod", "haddock", "prawns", "shrimp", "crab",
	"egg", "eggs", "milk", "butter", "cheese", "cheddar cheese",
	"parmesan", "mozzarella", "cream", "yogurt",
	"rice", "basmati rice", "pasta", "spaghetti", "noodles", "bread",
	"flour", "potatoes", "sweet potatoes",
	"onion", "garlic", "ginger", "tomato", "tomatoes", "carrots",
	"mushrooms", "spinach", "broccoli", "cabbage", "peas", "lentils",
	"chickpeas", "beans", "black beans", "kidney beans", "tofu",
	"avocado", "lemon", "lime", "apple", "banana", "coconut milk",
	"chocolate", "honey", "soy sauce", "olive oil",
}

var (
	areaSet       map[string]struct{}
	ingredientSet map[string]struct{}
)

func init() {
	areaSet = make(map[string]struct{}, len(knownAreas))
	for _, a := range knownAreas {
		areaSet[strings.ToLower(a)] = struct{}{}
	}
	ingredientSet = make(map[string]struct{}, len(knownIngredients))
	for _, i := range knownIngredients {
		ingredientSet[strings.ToLower(i)] = struct{}{}
	}
}

// IsKnownArea reports whether v matches the area vocabulary,
// case-insensitively.
func IsKnownArea(v string) bool {
	_, ok := areaSet[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// IsKnownIngredient reports whether v matches the ingredient vocabulary,
// case-insensitively.
func IsKnownIngredient(v string) bool {
	_, ok := ingredientSet[strings.ToLower(strings.TrimSpace(v))]
	return ok
}
