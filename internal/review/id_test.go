package review

import (
	"reflect"
	"testing"
)

const (
	uuidA = "3f2b8a40-1f5d-4a7e-9c61-0d2f84a6b911"
	uuidB = "7c9e1d22-8b3a-4f50-a6d4-5e718c2f0b34"
)

func TestParseStableID(t *testing.T) {
	single := ParseStableID(uuidA)
	if single.Paired() || single.A != uuidA {
		t.Fatalf("single id parsed as %+v", single)
	}

	pair := ParseStableID(uuidA + "," + uuidB)
	if !pair.Paired() || pair.A != uuidA || pair.B != uuidB {
		t.Fatalf("pair parsed as %+v", pair)
	}

	// A comma-joined string that is not two uuids stays one opaque id.
	opaque := ParseStableID("V600E, V600K")
	if opaque.Paired() {
		t.Fatalf("opaque id parsed as pair: %+v", opaque)
	}
	if opaque.A != "V600E, V600K" {
		t.Fatalf("opaque id lost content: %q", opaque.A)
	}
}

func TestStableIDRoundTrip(t *testing.T) {
	pair := PairedID(uuidA, uuidB)
	if got := ParseStableID(pair.String()); got != pair {
		t.Fatalf("round trip: got %+v, want %+v", got, pair)
	}
}

func TestStableIDParts(t *testing.T) {
	if got := SingleID(uuidA).Parts(); !reflect.DeepEqual(got, []string{uuidA}) {
		t.Fatalf("single parts = %v", got)
	}
	want := []string{uuidA + "," + uuidB, uuidA, uuidB}
	if got := PairedID(uuidA, uuidB).Parts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("pair parts = %v, want %v", got, want)
	}
}
