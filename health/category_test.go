// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package health

import "testing"

func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := map[string]Category{
		"LDL Cholesterol":            CategoryCardiovascular,
		"Vitamin D":                  CategoryNutrients,
		"random marker":              CategoryOther,
		"Fasting GLUCOSE":            CategoryMetabolic,
		"HbA1c":                      CategoryMetabolic,
		"Free T4":                    CategoryHormones,
		"Serum Iron":                 CategoryNutrients,
		"Apolipoprotein B (ApoB)":    CategoryCardiovascular,
		"Glucose-LDL ratio":          CategoryMetabolic,
		"Vitamin B12":                CategoryNutrients,
		"Testosterone, Total":        CategoryHormones,
		"Lipoprotein(a)":             CategoryCardiovascular,
		"":                           CategoryOther,
		"Insulin-like growth factor": CategoryMetabolic,
	}

	for name, want := range tests {
		if got := Categorize(name); got != want {
			t.Fatalf("Categorize(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestCategorizePriorityOrder(t *testing.T) {
	t.Parallel()

	// hormones precede nutrients and cardiovascular
	if got := Categorize("Cortisol/Iron HDL index"); got != CategoryHormones {
		t.Fatalf("expected hormones, got %q", got)
	}

	// nutrients precede cardiovascular
	if got := Categorize("Magnesium cholesterol"); got != CategoryNutrients {
		t.Fatalf("expected nutrients, got %q", got)
	}
}

func TestDefaultRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		unit string
		want Range
	}{
		{name: "Vitamin D", unit: "ng/mL", want: Range{Min: 30, Max: 100}},
		{name: "25-OH Vitamin D3", unit: "ng/mL", want: Range{Min: 30, Max: 100}},
		{name: "Total Testosterone", unit: "ng/dL", want: Range{Min: 400, Max: 1000}},
		{name: "LDL Cholesterol", unit: "mg/dL", want: Range{Min: 0, Max: 100}},
		{name: "HDL Cholesterol", unit: "mg/dL", want: Range{Min: 40, Max: 100}},
		{name: "HbA1c", unit: "%", want: Range{Min: 4.0, Max: 5.6}},
		{name: "TSH", unit: "mIU/L", want: Range{Min: 0.4, Max: 4.0}},
		{name: "Vitamin B12", unit: "pg/mL", want: Range{Min: 200, Max: 900}},
		{name: "Triglycerides", unit: "mg/dL", want: Range{Min: 0, Max: 150}},
		{name: "Ferritin", unit: "ng/mL", want: FallbackRange},
		{name: "Vitamin D", unit: "nmol/L", want: Range{Min: 30, Max: 100}},
	}

	for _, tt := range tests {
		if got := DefaultRange(tt.name, tt.unit); got != tt.want {
			t.Fatalf("DefaultRange(%q, %q) = %+v, want %+v", tt.name, tt.unit, got, tt.want)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	t.Parallel()

	for _, c := range Categories {
		if c.Label() == "" {
			t.Fatalf("category %q has no label", c)
		}
	}

	if got := Category("unknown").Label(); got != "Other" {
		t.Fatalf("expected unknown category label Other, got %q", got)
	}
}
