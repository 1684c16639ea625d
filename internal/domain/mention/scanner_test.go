package mention

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/lorelink/internal/domain/entity"
)

func campaignIndex() *Index {
	return Build([]entity.Record{
		rec("npc-bandit", "Bandit", entity.TypeNPC),
		rec("loc-camp", "Bandit Camp", entity.TypeLocation),
		rec("npc-aerith", "Aerith", entity.TypeNPC),
		rec("loc-io", "Io", entity.TypeLocation),
		rec("q-ring", "The Lost Ring", entity.TypeQuest),
	}, 1)
}

func bothEngines(t *testing.T, fn func(t *testing.T, e Engine)) {
	t.Helper()
	for _, e := range []Engine{EngineRegexp, EngineAutomaton} {
		t.Run(string(e), func(t *testing.T) { fn(t, e) })
	}
}

func TestAnnotate_LongestNameWins(t *testing.T) {
	bothEngines(t, func(t *testing.T, e Engine) {
		got := Annotate("We raided the Bandit Camp. One Bandit fled.", campaignIndex(), WithEngine(e))
		want := "We raided the [Bandit Camp](#entity/loc-camp/location). One [Bandit](#entity/npc-bandit/npc) fled."
		if got != want {
			t.Errorf("got  %q\nwant %q", got, want)
		}
	})
}

func TestAnnotate_PreservesCase(t *testing.T) {
	bothEngines(t, func(t *testing.T, e Engine) {
		got := Annotate("AERITH and aerith", campaignIndex(), WithEngine(e))
		want := "[AERITH](#entity/npc-aerith/npc) and [aerith](#entity/npc-aerith/npc)"
		if got != want {
			t.Errorf("got  %q\nwant %q", got, want)
		}
	})
}

func TestAnnotate_WholeWordsOnly(t *testing.T) {
	bothEngines(t, func(t *testing.T, e Engine) {
		text := "Aerithian scholars and Banditry are not names. Iona is not Io either."
		got := Annotate(text, campaignIndex(), WithEngine(e))
		want := "Aerithian scholars and Banditry are not names. Iona is not [Io](#entity/loc-io/location) either."
		if got != want {
			t.Errorf("got  %q\nwant %q", got, want)
		}
	})
}

func TestAnnotate_PunctuationBoundaries(t *testing.T) {
	got := Annotate("(Aerith's flower) - Aerith.", campaignIndex())
	want := "([Aerith](#entity/npc-aerith/npc)'s flower) - [Aerith](#entity/npc-aerith/npc)."
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestAnnotate_ShortNameSkipped(t *testing.T) {
	idx := Build([]entity.Record{rec("a", "A", entity.TypeNPC)}, 1)
	text := "A quiet night."
	if got := Annotate(text, idx); got != text {
		t.Errorf("single-character names must never link, got %q", got)
	}
}

func TestAnnotate_ProtectedSegmentsUntouched(t *testing.T) {
	bothEngines(t, func(t *testing.T, e Engine) {
		text := "See [Aerith](https://wiki.example/aerith) and [the Bandit Camp](#entity/loc-camp/location); Io waits."
		got := Annotate(text, campaignIndex(), WithEngine(e))
		want := "See [Aerith](https://wiki.example/aerith) and [the Bandit Camp](#entity/loc-camp/location); [Io](#entity/loc-io/location) waits."
		if got != want {
			t.Errorf("got  %q\nwant %q", got, want)
		}
	})
}

func TestAnnotate_Idempotent(t *testing.T) {
	texts := []string{
		"Aerith met a Bandit near the Bandit Camp.",
		"the lost ring was found on Io, by aerith.",
		"Nothing to see here.",
		"",
	}
	bothEngines(t, func(t *testing.T, e Engine) {
		idx := campaignIndex()
		for _, text := range texts {
			once := Annotate(text, idx, WithEngine(e))
			twice := Annotate(once, idx, WithEngine(e))
			if once != twice {
				t.Errorf("not idempotent for %q:\nonce  %q\ntwice %q", text, once, twice)
			}
		}
	})
}

func TestAnnotate_StripRoundTrip(t *testing.T) {
	texts := []string{
		"Aerith met a Bandit near the Bandit Camp.",
		"The Lost Ring, the lost ring, THE LOST RING.",
		"A [plain link](https://example.com) next to Io.",
	}
	idx := campaignIndex()
	for _, text := range texts {
		if got := StripReferences(Annotate(text, idx)); got != text {
			t.Errorf("round trip changed text:\nin  %q\nout %q", text, got)
		}
	}
}

func TestScan_NonOverlappingAndOrdered(t *testing.T) {
	bothEngines(t, func(t *testing.T, e Engine) {
		segment := "Io, the Bandit Camp, a Bandit, and Aerith on Io."
		matches := Scan(segment, campaignIndex(), WithEngine(e))
		if len(matches) != 5 {
			t.Fatalf("expected 5 matches, got %+v", matches)
		}
		for i, m := range matches {
			if segment[m.Start:m.End] != m.MatchedText {
				t.Errorf("match %d text %q does not match span", i, m.MatchedText)
			}
			if i > 0 && m.Start < matches[i-1].End {
				t.Errorf("match %d overlaps previous: %+v %+v", i, matches[i-1], m)
			}
		}
		if matches[1].EntityID != "loc-camp" {
			t.Errorf("expected Bandit Camp second, got %+v", matches[1])
		}
	})
}

func TestAnnotate_SelfReferenceNotLinked(t *testing.T) {
	idx := Build([]entity.Record{
		rec("red-dragon", "Red Dragon", entity.TypeNPC),
		rec("dragon", "Dragon", entity.TypeNPC),
		rec("cave", "Cave", entity.TypeLocation),
	}, 1)

	bothEngines(t, func(t *testing.T, e Engine) {
		got := Annotate("The Red Dragon sleeps in the Cave. Another Dragon circles.", idx,
			WithSelf("red-dragon"), WithEngine(e))
		want := "The Red Dragon sleeps in the [Cave](#entity/cave/location). Another [Dragon](#entity/dragon/npc) circles."
		if got != want {
			t.Errorf("got  %q\nwant %q", got, want)
		}
	})
}

func TestAnnotate_DuplicateNameFirstWins(t *testing.T) {
	idx := Build([]entity.Record{
		rec("cloud-a", "Cloud", entity.TypeCharacter),
		rec("cloud-b", "Cloud", entity.TypeNPC),
	}, 1)
	bothEngines(t, func(t *testing.T, e Engine) {
		got := Annotate("Cloud and cloud", idx, WithEngine(e))
		want := "[Cloud](#entity/cloud-a/character) and [cloud](#entity/cloud-a/character)"
		if got != want {
			t.Errorf("got  %q\nwant %q", got, want)
		}
	})
}

func TestAnnotate_RegexMetacharactersInNames(t *testing.T) {
	idx := Build([]entity.Record{rec("q", "Q.E.D Society", entity.TypeFaction)}, 1)
	got := Annotate("Members of Q.E.D Society and QxEyD Society.", idx)
	want := "Members of [Q.E.D Society](#entity/q/faction) and QxEyD Society."
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestAnnotate_EmptyInputs(t *testing.T) {
	if got := Annotate("", campaignIndex()); got != "" {
		t.Errorf("empty text changed: %q", got)
	}
	text := "Aerith waits."
	if got := Annotate(text, Build(nil, 0)); got != text {
		t.Errorf("empty index changed text: %q", got)
	}
	if got := Annotate(text, nil); got != text {
		t.Errorf("nil index changed text: %q", got)
	}
}

func TestRewrite_NilIndex(t *testing.T) {
	res, err := Rewrite("Aerith", nil)
	if !errors.Is(err, ErrNilIndex) {
		t.Fatalf("expected ErrNilIndex, got %v", err)
	}
	if res.Text != "Aerith" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestRewrite_CountsMentions(t *testing.T) {
	res, err := Rewrite("Aerith, Io, [Aerith](#entity/npc-aerith/npc), Aerith", campaignIndex(),
		WithSelf("loc-io"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mentions != 2 {
		t.Errorf("Mentions = %d, want 2", res.Mentions)
	}
}

func TestWithEngine_UnknownFallsBack(t *testing.T) {
	got := Annotate("Aerith", campaignIndex(), WithEngine(Engine("bogus")))
	if !strings.HasPrefix(got, "[Aerith]") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestAnnotate_LargeCatalog(t *testing.T) {
	records := make([]entity.Record, 0, 500)
	for i := 0; i < 500; i++ {
		name := "Keeper " + strings.Repeat("x", i%7+1) + string(rune('a'+i%26))
		records = append(records, rec("e"+string(rune('a'+i%26))+strings.Repeat("0", i/26), name, entity.TypeNPC))
	}
	idx := Build(records, 1)
	text := strings.Repeat("Keeper xa walked by. ", 100)
	for _, e := range []Engine{EngineRegexp, EngineAutomaton} {
		once := Annotate(text, idx, WithEngine(e))
		if once == text {
			t.Fatalf("%s: expected mentions", e)
		}
		if Annotate(once, idx, WithEngine(e)) != once {
			t.Errorf("%s: not idempotent", e)
		}
	}
}

func TestAnnotate_BasicScenario(t *testing.T) {
	idx := Build([]entity.Record{rec("e1", "Aerith", entity.TypeNPC)}, 1)
	got := Annotate("I met Aerith in town.", idx)
	if got != "I met [Aerith](#entity/e1/npc) in town." {
		t.Errorf("got %q", got)
	}
}

func TestAnnotate_LongestMatchOnlyOnce(t *testing.T) {
	idx := Build([]entity.Record{
		rec("loc1", "Bandit Camp", entity.TypeLocation),
		rec("npc1", "Bandit", entity.TypeNPC),
	}, 1)
	got := Annotate("the Bandit Camp was empty", idx)
	if got != "the [Bandit Camp](#entity/loc1/location) was empty" {
		t.Errorf("got %q", got)
	}
}

func TestAnnotate_AwkwardNames(t *testing.T) {
	cases := []struct {
		name    string
		records []entity.Record
		text    string
		want    string
	}{
		{
			name:    "brackets in name",
			records: []entity.Record{rec("inn", "The [Old] Inn", entity.TypeLocation)},
			text:    "We drank at The [Old] Inn tonight.",
			want:    `We drank at [The \[Old\] Inn](#entity/inn/location) tonight.`,
		},
		{
			name:    "backslash in name",
			records: []entity.Record{rec("vale", `Ash\Vale`, entity.TypeLocation)},
			text:    `Ash\Vale burns.`,
			want:    `[Ash\\Vale](#entity/vale/location) burns.`,
		},
		{
			name: "longer name runs into a word",
			records: []entity.Record{
				rec("npc-bandit", "Bandit", entity.TypeNPC),
				rec("loc-camp", "Bandit Camp", entity.TypeLocation),
			},
			text: "the Bandit Campfire burned",
			want: "the [Bandit](#entity/npc-bandit/npc) Campfire burned",
		},
		{
			name: "straddling names, first listed wins",
			records: []entity.Record{
				rec("red", "Red Dragon", entity.TypeNPC),
				rec("lord", "Dragon Lord", entity.TypeNPC),
			},
			text: "the Red Dragon Lord roared",
			want: "the [Red Dragon](#entity/red/npc) Lord roared",
		},
		{
			name: "straddling names, other order",
			records: []entity.Record{
				rec("lord", "Dragon Lord", entity.TypeNPC),
				rec("red", "Red Dragon", entity.TypeNPC),
			},
			text: "the Red Dragon Lord roared",
			want: "the Red [Dragon Lord](#entity/lord/npc) roared",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			idx := Build(tc.records, 1)
			bothEngines(t, func(t *testing.T, e Engine) {
				once := Annotate(tc.text, idx, WithEngine(e))
				if once != tc.want {
					t.Errorf("got  %q\nwant %q", once, tc.want)
				}
				if twice := Annotate(once, idx, WithEngine(e)); twice != once {
					t.Errorf("not idempotent:\nonce  %q\ntwice %q", once, twice)
				}
				if back := StripReferences(once); back != tc.text {
					t.Errorf("round trip changed text:\nin  %q\nout %q", tc.text, back)
				}
			})
		})
	}
}
