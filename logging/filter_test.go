package logging

import "testing"

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		event Event
		want  bool
	}{
		{"empty accepts", "", Event{Type: "x"}, true},
		{"category", `Category == "render"`, Event{Category: CategoryRender}, true},
		{"category mismatch", `Category == "render"`, Event{Category: CategoryNetwork}, false},
		{"severity helper", `AtLeast("warn")`, Event{Severity: SeverityError}, true},
		{"severity helper below", `AtLeast("warn")`, Event{Severity: SeverityInfo}, false},
		{"prefix helper", `HasPrefix(Type, "network.")`, Event{Type: "network.connected"}, true},
		{"actor", `Actor == "p1" && ActorKind == "player"`, Event{Actor: PlayerRef("p1")}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			filter, err := CompileFilter(tc.src)
			if err != nil {
				t.Fatalf("CompileFilter(%q) failed: %v", tc.src, err)
			}
			if got := filter.Match(tc.event); got != tc.want {
				t.Fatalf("Match = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterRequiresBooleanExpression(t *testing.T) {
	if _, err := CompileFilter(`Seq + 1`); err == nil {
		t.Fatalf("expected non-boolean filter to be rejected")
	}
}

func TestParseSeverity(t *testing.T) {
	if sev, ok := ParseSeverity("warning"); !ok || sev != SeverityWarn {
		t.Fatalf("ParseSeverity(warning) = %v, %v", sev, ok)
	}
	if _, ok := ParseSeverity("loud"); ok {
		t.Fatalf("expected unknown severity to be rejected")
	}
}
