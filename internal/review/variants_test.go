package review

import (
	"reflect"
	"testing"
)

func TestParseVariantNames(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"V600E", []string{"V600E"}},
		{"V600E, V600K", []string{"V600E", "V600K"}},
		{"V600E,V600K , V600M", []string{"V600E", "V600K", "V600M"}},
		{"Oncogenic Mutations {excluding V600E, V600K}", []string{"Oncogenic Mutations {excluding V600E, V600K}"}},
		{"V600E (comment, with comma), V600K", []string{"V600E (comment, with comma)", "V600K"}},
		{"A[1, 2], B", []string{"A[1, 2]", "B"}},
		{"", nil},
		{" , ,", nil},
	}
	for _, tc := range cases {
		if got := ParseVariantNames(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseVariantNames(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
