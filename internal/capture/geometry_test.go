package capture

import (
	"testing"

	"pgregory.net/rapid"
)

func TestEffectiveDimensions(t *testing.T) {
	cases := []struct {
		name         string
		w, h         uint32
		rot          int
		wantW, wantH uint32
	}{
		{"landscape 0", 1920, 1080, 0, 1920, 1080},
		{"landscape 180", 1920, 1080, 180, 1920, 1080},
		{"portrait 90", 1080, 1920, 90, 1920, 1080},
		{"portrait 270", 1080, 1920, 270, 1920, 1080},
		{"square 90", 512, 512, 90, 512, 512},
		{"zero size", 0, 0, 90, 0, 0},
		{"out of contract treated as 0", 1920, 1080, 45, 1920, 1080},
		{"negative treated as 0", 1920, 1080, -90, 1920, 1080},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := EffectiveDimensions(tc.w, tc.h, tc.rot)
			if w != tc.wantW || h != tc.wantH {
				t.Errorf("EffectiveDimensions(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tc.w, tc.h, tc.rot, w, h, tc.wantW, tc.wantH)
			}
		})
	}
}

func TestRenderTransform(t *testing.T) {
	const w, h = 1080, 1920
	cases := []struct {
		rot  int
		want Transform
	}{
		{0, Transform{}},
		{90, Transform{TranslateX: 1920, TranslateY: 0, Angle: 90}},
		{180, Transform{TranslateX: 1080, TranslateY: 1920, Angle: 180}},
		{270, Transform{TranslateX: 0, TranslateY: 1080, Angle: 270}},
		// Out-of-contract rotation degrades to identity, never an
		// uninitialized transform.
		{37, Transform{}},
		{360, Transform{}},
	}
	for _, tc := range cases {
		if got := RenderTransform(tc.rot, w, h); got != tc.want {
			t.Errorf("RenderTransform(%d, %d, %d) = %+v, want %+v", tc.rot, w, h, got, tc.want)
		}
	}
	if !RenderTransform(0, w, h).IsIdentity() {
		t.Error("RenderTransform(0) is not identity")
	}
}

func TestNormalizeRotation(t *testing.T) {
	for _, rot := range []int{0, 90, 180, 270} {
		if got := NormalizeRotation(rot); got != rot {
			t.Errorf("NormalizeRotation(%d) = %d", rot, got)
		}
	}
	for _, rot := range []int{-90, 1, 45, 91, 359, 360, 450} {
		if got := NormalizeRotation(rot); got != 0 {
			t.Errorf("NormalizeRotation(%d) = %d, want 0", rot, got)
		}
	}
}

func TestEffectiveDimensionsProperties(t *testing.T) {
	rotations := []int{0, 90, 180, 270}

	rapid.Check(t, func(t *rapid.T) {
		w := rapid.Uint32().Draw(t, "w")
		h := rapid.Uint32().Draw(t, "h")
		rot := rapid.SampledFrom(rotations).Draw(t, "rot")

		ew, eh := EffectiveDimensions(w, h, rot)

		// Swap happens iff rotation is an odd quarter-turn.
		if rot == 90 || rot == 270 {
			if ew != h || eh != w {
				t.Fatalf("rot %d: got (%d,%d), want swapped (%d,%d)", rot, ew, eh, h, w)
			}
		} else {
			if ew != w || eh != h {
				t.Fatalf("rot %d: got (%d,%d), want unchanged (%d,%d)", rot, ew, eh, w, h)
			}
		}

		// Applying twice with the same rotation parity is the identity.
		w2, h2 := EffectiveDimensions(ew, eh, rot)
		if w2 != w || h2 != h {
			t.Fatalf("rot %d: double application (%d,%d) != (%d,%d)", rot, w2, h2, w, h)
		}
	})
}
