package fingerprint

import "testing"

func TestHash_Deterministic(t *testing.T) {
	a := Hash("User enjoys long trail runs on weekends")
	b := Hash("User enjoys long trail runs on weekends")
	if a != b {
		t.Fatalf("same content produced different fingerprints: %x vs %x", a, b)
	}
}

func TestNearDuplicate_Paraphrase(t *testing.T) {
	a := Hash("I love playing guitar")
	b := Hash("I really love playing the guitar")

	if d := Distance(a, b); d > NearDuplicateDistance {
		t.Fatalf("paraphrase distance %d exceeds threshold %d", d, NearDuplicateDistance)
	}
	if !NearDuplicate(a, b) {
		t.Fatal("paraphrases should be near-duplicates")
	}
}

func TestNearDuplicate_Unrelated(t *testing.T) {
	a := Hash("User loves playing guitar every evening after dinner")
	b := Hash("The quarterly revenue report shipped two days behind schedule")

	if NearDuplicate(a, b) {
		t.Fatalf("unrelated content flagged as near-duplicate (distance %d)", Distance(a, b))
	}
}

func TestHash_AllStopwords(t *testing.T) {
	a := Hash("the and of")
	b := Hash("the and of")
	if a != b {
		t.Fatal("stopword-only content should still hash deterministically")
	}
	if a == 0 {
		t.Fatal("stopword-only content should still produce a content-derived hash")
	}
}

func TestSimilarity(t *testing.T) {
	a := Hash("User works remotely from a cabin in Vermont")
	if got := Similarity(a, a); got != 1.0 {
		t.Fatalf("self-similarity = %f, want 1.0", got)
	}
	if got := Similarity(0, ^uint64(0)); got != 0.0 {
		t.Fatalf("opposite fingerprints similarity = %f, want 0.0", got)
	}
}
