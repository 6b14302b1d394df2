package domain

import (
	"reflect"
	"testing"
)

func TestParseListString(t *testing.T) {
	got := ParseList("Fantasy; Mystery ;;Sci-Fi ")
	want := []string{"Fantasy", "Mystery", "Sci-Fi"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseList = %v, want %v", got, want)
	}
}

func TestParseListSlice(t *testing.T) {
	got := ParseList([]string{" Fantasy", "", "Mystery "})
	want := []string{"Fantasy", "Mystery"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseList = %v, want %v", got, want)
	}
}

func TestParseListEmpty(t *testing.T) {
	if got := ParseList(""); got != nil {
		t.Fatalf("ParseList(\"\") = %v, want nil", got)
	}
	if got := ParseList(nil); got != nil {
		t.Fatalf("ParseList(nil) = %v, want nil", got)
	}
	if got := ParseList(" ; ; "); got != nil && len(got) != 0 {
		t.Fatalf("ParseList blanks = %v, want empty", got)
	}
	if got := ParseList(42); got != nil {
		t.Fatalf("ParseList(42) = %v, want nil", got)
	}
}

func TestJoinListRoundTrip(t *testing.T) {
	joined := JoinList([]string{"Fantasy", " Mystery", ""})
	if joined != "Fantasy;Mystery" {
		t.Fatalf("JoinList = %q", joined)
	}
	if got := ParseList(joined); !reflect.DeepEqual(got, []string{"Fantasy", "Mystery"}) {
		t.Fatalf("round trip = %v", got)
	}
}
