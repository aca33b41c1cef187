package resolver

import (
	"testing"

	"killtony-catalog/pkg/domain"
)

func chapter(name string, start int) domain.CandidateMention {
	return domain.CandidateMention{
		Source:         domain.SourceChapter,
		ContestantName: name,
		StartSeconds:   start,
		Confidence:     0.95,
	}
}

func transcript(name string, start int) domain.CandidateMention {
	return domain.CandidateMention{
		Source:         domain.SourceTranscript,
		ContestantName: name,
		StartSeconds:   start,
		Confidence:     0.7,
	}
}

func TestResolve_EndFromSuccessor(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		chapter("Jane Doe", 754),
		chapter("John Smith", 2710),
	})

	if len(performances) != 2 {
		t.Fatalf("Expected 2 performances, got %d", len(performances))
	}

	first := performances[0]
	if first.StartSeconds != 754 {
		t.Errorf("Unexpected first start: %d", first.StartSeconds)
	}
	if first.EndSeconds == nil || *first.EndSeconds != 2705 {
		t.Errorf("Expected first end 2705, got %v", first.EndSeconds)
	}

	last := performances[1]
	if last.EndSeconds != nil {
		t.Errorf("Expected open end for last chapter performance, got %d", *last.EndSeconds)
	}
	if first.EpisodeYouTubeID != "vid1" || last.EpisodeYouTubeID != "vid1" {
		t.Error("Expected video ID carried onto every performance")
	}
}

func TestResolve_MinimumDuration(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		chapter("Jane Doe", 100),
		chapter("John Smith", 135),
	})

	if len(performances) != 2 {
		t.Fatalf("Expected 2 performances, got %d", len(performances))
	}
	// The tightest spacing that survives still yields the minimum set length.
	if got := performances[0].EndSeconds; got == nil || *got != 130 {
		t.Errorf("Expected end 130, got %v", got)
	}
	if *performances[0].EndSeconds-performances[0].StartSeconds != MinSetSeconds {
		t.Errorf("Expected minimum-length set, got %+v", performances[0])
	}
}

func TestResolve_DedupWindow(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		transcript("Casey Rocket", 754),
		transcript("casey rocket", 800),
		transcript("Casey Rocket", 1000),
	})

	if len(performances) != 2 {
		t.Fatalf("Expected 2 performances after dedup, got %d: %+v", len(performances), performances)
	}
	if performances[0].StartSeconds != 754 || performances[1].StartSeconds != 1000 {
		t.Errorf("Unexpected survivors: %+v", performances)
	}
}

func TestResolve_RepeatOutsideWindowSurvives(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		transcript("Casey Rocket", 754),
		transcript("Casey Rocket", 900),
	})

	if len(performances) != 2 {
		t.Fatalf("Expected re-mention past the dedup window to survive, got %d", len(performances))
	}
}

func TestResolve_TooCloseDifferentNames(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		transcript("Jane Doe", 100),
		transcript("John Smith", 110),
		transcript("Hans Kim", 300),
	})

	if len(performances) != 2 {
		t.Fatalf("Expected the too-close mention to be dropped, got %d: %+v", len(performances), performances)
	}
	if performances[0].ContestantName != "Jane Doe" || performances[1].ContestantName != "Hans Kim" {
		t.Errorf("Unexpected survivors: %+v", performances)
	}
}

func TestResolve_UnsortedInput(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		transcript("John Smith", 2000),
		transcript("Jane Doe", 500),
	})

	if len(performances) != 2 {
		t.Fatalf("Expected 2 performances, got %d", len(performances))
	}
	if performances[0].ContestantName != "Jane Doe" {
		t.Errorf("Expected ascending start order, got %+v", performances)
	}
}

func TestResolve_MaximumDurationForTranscriptMentions(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		transcript("Jane Doe", 100),
		transcript("John Smith", 1000),
	})

	if len(performances) != 2 {
		t.Fatalf("Expected 2 performances, got %d", len(performances))
	}
	// The gap to the next mention is far longer than any one set; the
	// estimate is capped rather than swallowing the whole gap.
	if got := performances[0].EndSeconds; got == nil || *got != 220 {
		t.Errorf("Expected end capped at 220, got %v", got)
	}
}

func TestResolve_ChapterEndsNotCapped(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		chapter("Jane Doe", 100),
		chapter("John Smith", 1000),
	})

	if len(performances) != 2 {
		t.Fatalf("Expected 2 performances, got %d", len(performances))
	}
	if got := performances[0].EndSeconds; got == nil || *got != 995 {
		t.Errorf("Expected chapter end to run to the next marker, got %v", got)
	}
}

func TestResolve_LastTranscriptMentionGetsTypicalSet(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		transcript("Jane Doe", 500),
	})

	if len(performances) != 1 {
		t.Fatalf("Expected 1 performance, got %d", len(performances))
	}
	if got := performances[0].EndSeconds; got == nil || *got != 560 {
		t.Errorf("Expected estimated end 560, got %v", got)
	}
}

func TestResolve_Monotonic(t *testing.T) {
	performances := Resolve("vid1", []domain.CandidateMention{
		transcript("A One", 100),
		transcript("B Two", 150),
		transcript("C Three", 190),
		transcript("D Four", 400),
	})

	for i := 1; i < len(performances); i++ {
		prev, cur := performances[i-1], performances[i]
		if cur.StartSeconds <= prev.StartSeconds {
			t.Errorf("Starts not strictly increasing at %d: %+v", i, performances)
		}
		if prev.EndSeconds != nil && *prev.EndSeconds > cur.StartSeconds {
			t.Errorf("Performance %d overlaps its successor: %+v", i-1, performances)
		}
	}
	for _, p := range performances {
		if p.EndSeconds != nil && *p.EndSeconds-p.StartSeconds < MinSetSeconds {
			t.Errorf("Performance shorter than minimum: %+v", p)
		}
	}
}

func TestResolve_Empty(t *testing.T) {
	if got := Resolve("vid1", nil); got != nil {
		t.Fatalf("Expected nil for no candidates, got %+v", got)
	}
}
