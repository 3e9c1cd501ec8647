package incremental

import "testing"

func TestEventKindConstants(t *testing.T) {
	kinds := []EventKind{
		EventInitialBuild, EventCachedLoad, EventIncrementalBuild,
		EventFileUpdated, EventFileRemoved, EventIndexError,
	}
	seen := make(map[EventKind]bool)
	for _, k := range kinds {
		if k == "" {
			t.Error("EventKind constant should not be empty")
		}
		if seen[k] {
			t.Errorf("duplicate EventKind value %q", k)
		}
		seen[k] = true
	}
}

func TestFileChangeKindConstants(t *testing.T) {
	kinds := []FileChangeKind{FileCreated, FileModified, FileDeleted}
	seen := make(map[FileChangeKind]bool)
	for _, k := range kinds {
		if k == "" {
			t.Error("FileChangeKind constant should not be empty")
		}
		if seen[k] {
			t.Errorf("duplicate FileChangeKind value %q", k)
		}
		seen[k] = true
	}
}

func TestFileOutcomeConstants(t *testing.T) {
	outcomes := []FileOutcome{OutcomeUnchanged, OutcomeUpdated, OutcomeSkipped, OutcomeErrored}
	seen := make(map[FileOutcome]bool)
	for _, o := range outcomes {
		if o == "" {
			t.Error("FileOutcome constant should not be empty")
		}
		if seen[o] {
			t.Errorf("duplicate FileOutcome value %q", o)
		}
		seen[o] = true
	}
}
