package alert

import "testing"

func TestFingerprint_StableUnderLabelReordering(t *testing.T) {
	labels1 := map[string]string{"pod": "p", "ns": "d"}
	labels2 := map[string]string{"ns": "d", "pod": "p"}

	fp1 := Fingerprint("PodCrashLooping", labels1)
	fp2 := Fingerprint("PodCrashLooping", labels2)

	if fp1 != fp2 {
		t.Fatalf("fingerprints differ under label reordering: %s != %s", fp1, fp2)
	}
	if len(fp1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d (%s)", len(fp1), fp1)
	}
}

func TestFingerprint_DifferentLabelsDiffer(t *testing.T) {
	fp1 := Fingerprint("PodCrashLooping", map[string]string{"pod": "a"})
	fp2 := Fingerprint("PodCrashLooping", map[string]string{"pod": "b"})
	if fp1 == fp2 {
		t.Fatal("expected different fingerprints for different label values")
	}
}

func TestFingerprint_EmptyLabels(t *testing.T) {
	fp := Fingerprint("NoLabels", map[string]string{})
	if len(fp) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(fp))
	}
}
