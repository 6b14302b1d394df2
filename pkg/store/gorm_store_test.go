package store

import (
	"testing"

	"readnest/pkg/domain"
)

func TestParseWeightsStructured(t *testing.T) {
	w := parseWeights([]byte(`{"genre":0.5,"tag":0.2,"author":0.2,"rating":0.1}`))
	if w.Genre != 0.5 || w.Tag != 0.2 || w.Author != 0.2 || w.Rating != 0.1 {
		t.Fatalf("weights = %+v", w)
	}
}

func TestParseWeightsSerializedString(t *testing.T) {
	// Older config rows stored weights as a JSON-encoded string.
	w := parseWeights([]byte(`"{\"genre\":0.6,\"tag\":0.1,\"author\":0.2,\"rating\":0.1}"`))
	if w.Genre != 0.6 {
		t.Fatalf("weights = %+v", w)
	}
}

func TestParseWeightsMalformed(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(`"not json at all"`), []byte(`[1,2,3]`)} {
		if w := parseWeights(raw); w != (domain.Weights{}) {
			t.Fatalf("weights for %q = %+v, want zero", raw, w)
		}
	}
}

func TestAffinityFromJSONMalformed(t *testing.T) {
	m := affinityFromJSON([]byte(`{broken`))
	if m == nil || len(m) != 0 {
		t.Fatalf("malformed affinity = %v, want empty map", m)
	}
	m = affinityFromJSON([]byte(`{"Fantasy":0.7}`))
	if m["Fantasy"] != 0.7 {
		t.Fatalf("affinity = %v", m)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`100%_done\`); got != `100\%\_done\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}
