package providers

import "testing"

func TestSplitModelRevisionDefaultsToMaster(t *testing.T) {
	model, revision := splitModelRevision("org/model")
	if model != "org/model" || revision != "master" {
		t.Fatalf("got (%q, %q)", model, revision)
	}
}

func TestSplitModelRevisionExplicit(t *testing.T) {
	model, revision := splitModelRevision("org/model@v2")
	if model != "org/model" || revision != "v2" {
		t.Fatalf("got (%q, %q)", model, revision)
	}
}
