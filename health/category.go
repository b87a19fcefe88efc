/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package health

import "strings"

type categoryRule struct {
	keywords []string
	category Category
}

// categoryRules are evaluated in order; the first rule with a matching
// keyword wins, so a name matching several sets resolves to the earliest.
var categoryRules = []categoryRule{
	{
		keywords: []string{"glucose", "hba1c", "insulin", "triglyceride"},
		category: CategoryMetabolic,
	},
	{
		keywords: []string{"testosterone", "cortisol", "tsh", "t3", "t4", "estrogen", "progesterone"},
		category: CategoryHormones,
	},
	{
		keywords: []string{"vitamin", "b12", "folate", "magnesium", "zinc", "iron"},
		category: CategoryNutrients,
	},
	{
		keywords: []string{"cholesterol", "ldl", "hdl", "apob", "lipoprotein"},
		category: CategoryCardiovascular,
	},
}

// Categorize infers the physiological category of a biomarker from its name
// using case-insensitive keyword matching. Unknown names map to CategoryOther.
func Categorize(name string) Category {
	lower := strings.ToLower(name)

	for _, rule := range categoryRules {
		if containsAny(lower, rule.keywords) {
			return rule.category
		}
	}

	return CategoryOther
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}

	return false
}

// Label returns the display name of the category.
func (c Category) Label() string {
	switch c {
	case CategoryMetabolic:
		return "Metabolic"
	case CategoryHormones:
		return "Hormones"
	case CategoryNutrients:
		return "Nutrients"
	case CategoryCardiovascular:
		return "Cardiovascular"
	default:
		return "Other"
	}
}
