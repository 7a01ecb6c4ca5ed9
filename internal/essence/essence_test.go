package essence

import (
	"strings"
	"testing"

	"github.com/engramkit/engram/internal/model"
	"github.com/engramkit/engram/internal/sector"
)

func TestThirdPerson(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"I live in Austin and I love hiking", "User lives in Austin and User loves hiking"},
		{"I am a software engineer", "User is a software engineer"},
		{"I'm allergic to peanuts", "User is allergic to peanuts"},
		{"my wife and I went to the coast", "User's wife and User went to the coast"},
		{"call me when the build finishes", "call User when the build finishes"},
		{"the user already speaks in third person", "the user already speaks in third person"},
	}
	for _, tt := range tests {
		if got := ThirdPerson(tt.in); got != tt.want {
			t.Errorf("ThirdPerson(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAtomic(t *testing.T) {
	e := New(sector.New())
	facts := e.Atomic("I live in Portland. I work at a small robotics startup. ok.")

	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d: %+v", len(facts), facts)
	}
	for _, f := range facts {
		if strings.Contains(f.Content, "I ") {
			t.Errorf("fact not rewritten to third person: %q", f.Content)
		}
		if f.Sector != model.SectorSemantic {
			t.Errorf("fact %q classified as %s, want semantic", f.Content, f.Sector)
		}
		if f.Confidence <= 0 || f.Confidence > 1 {
			t.Errorf("fact %q confidence %f out of range", f.Content, f.Confidence)
		}
		if len(f.Tags) == 0 || f.Tags[0] != string(model.SectorSemantic) {
			t.Errorf("fact %q tags %v missing sector tag", f.Content, f.Tags)
		}
	}
	if facts[0].Content != "User lives in Portland." {
		t.Errorf("unexpected first fact: %q", facts[0].Content)
	}
}

func TestAtomic_SkipsNoise(t *testing.T) {
	e := New(sector.New())
	if facts := e.Atomic("hi. thanks. ok."); len(facts) != 0 {
		t.Fatalf("expected no facts from noise, got %+v", facts)
	}
}

func TestEssence_ShortInputUnchanged(t *testing.T) {
	e := New(sector.New())
	in := "User lives in Portland."
	if got := e.Essence(in, model.SectorSemantic, 200); got != in {
		t.Fatalf("short input changed: %q", got)
	}
}

func TestEssence_RespectsBudget(t *testing.T) {
	e := New(sector.New())
	in := "User moved to Denver in 2023 for a new job. " +
		"The weather that month was unusually mild. " +
		"There was a lot of paperwork involved in the relocation. " +
		"User started the new role at a hardware company on March 3. " +
		"The office has a decent coffee machine."

	got := e.Essence(in, model.SectorEpisodic, 120)
	if len(got) > 120 {
		t.Fatalf("essence length %d exceeds budget: %q", len(got), got)
	}
	if !strings.Contains(got, "Denver") {
		t.Errorf("first sentence should survive condensation: %q", got)
	}
}

func TestEssence_PreservesSentenceOrder(t *testing.T) {
	e := New(sector.New())
	in := "User was born in 1990 in Lyon. " +
		"Filler sentence about nothing in particular here. " +
		"User moved to Berlin on May 12 2015 for work."

	got := e.Essence(in, model.SectorSemantic, 80)
	born := strings.Index(got, "1990")
	moved := strings.Index(got, "Berlin")
	if born >= 0 && moved >= 0 && born > moved {
		t.Fatalf("selected sentences out of original order: %q", got)
	}
}

func TestDeriveTags(t *testing.T) {
	tags := DeriveTags("User works at a hospital and loves running", model.SectorSemantic)
	want := map[string]bool{"semantic": true, "work": true, "preference": true}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want keys %v", tags, want)
	}
	for _, tag := range tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q in %v", tag, tags)
		}
	}
}
